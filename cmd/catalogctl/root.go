package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pokecatalog/internal/config"
	"github.com/JonMunkholm/pokecatalog/internal/core"
	"github.com/JonMunkholm/pokecatalog/internal/logging"
	"github.com/JonMunkholm/pokecatalog/internal/store"
)

// app carries what every subcommand needs once the root has loaded the
// environment.
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Pokemon catalog operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	cmd.SetFlagErrorFunc(flagUsageError)

	cmd.AddCommand(newImportCmd(a))
	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newUserCmd(a))
	cmd.AddCommand(newAPIKeyCmd(a))
	cmd.AddCommand(newResetCmd(a))
	return cmd
}

// load reads .env (without overriding the shell) and the store settings.
// Logs go to stderr so stdout stays machine readable.
func (a *app) load() error {
	_ = godotenv.Load()

	var cfg config.Config
	if err := config.Populate(&cfg); err != nil {
		return withCode(exitUsage, err)
	}
	if err := cfg.ValidateStore(); err != nil {
		return withCode(exitUsage, err)
	}

	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	a.cfg = &cfg
	return nil
}

// withStore opens the configured store, runs fn and releases the store.
func (a *app) withStore(ctx context.Context, fn func(core.Store) error) error {
	st, closeStore, err := store.Open(ctx, a.cfg)
	if err != nil {
		return withCode(exitDB, fmt.Errorf("open store: %w", err))
	}
	defer closeStore()
	return fn(st)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commandUsageError(newRootCmd().ExecuteContext(ctx)); err != nil {
		stop()
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
