package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pokecatalog/internal/config"
	"github.com/JonMunkholm/pokecatalog/internal/store/postgres"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Args:  usageArgs(cobra.NoArgs),
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePostgres(a.cfg); err != nil {
				return err
			}
			pool, err := postgres.Open(cmd.Context(), a.cfg.Database)
			if err != nil {
				return withCode(exitDB, err)
			}
			defer pool.Close()

			if err := postgres.Migrate(cmd.Context(), pool); err != nil {
				return withCode(exitDBWrite, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Args:  usageArgs(cobra.NoArgs),
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePostgres(a.cfg); err != nil {
				return err
			}
			pool, err := postgres.Open(cmd.Context(), a.cfg.Database)
			if err != nil {
				return withCode(exitDB, err)
			}
			defer pool.Close()

			states, err := postgres.MigrationStatus(cmd.Context(), pool)
			if err != nil {
				return withCode(exitDB, err)
			}
			for _, st := range states {
				state := "pending"
				if st.Applied {
					state = "applied"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%05d  %-8s %s\n", st.Version, state, st.File)
			}
			return nil
		},
	})
	return cmd
}

func requirePostgres(cfg *config.Config) error {
	if !strings.EqualFold(cfg.Store.Driver, config.DriverPostgres) {
		return withCode(exitUsage, fmt.Errorf("migrations need STORE_DRIVER=postgres (got %q)", cfg.Store.Driver))
	}
	return nil
}
