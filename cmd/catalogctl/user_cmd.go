package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pokecatalog/internal/auth"
	"github.com/JonMunkholm/pokecatalog/internal/core"
)

func (a *app) authenticator(st core.Store) *auth.Authenticator {
	return auth.New(st, auth.Config{
		Secret:     []byte(a.cfg.Security.JWTSecret),
		Issuer:     a.cfg.Security.JWTIssuer,
		AccessTTL:  a.cfg.Security.AccessTokenTTL,
		RefreshTTL: a.cfg.Security.RefreshTokenTTL,
	})
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}

	var (
		username      string
		password      string
		passwordStdin bool
	)
	create := &cobra.Command{
		Use:   "create",
		Args:  usageArgs(cobra.NoArgs),
		Short: "Create a user for Basic auth and token login",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				p, err := readSecret(cmd.InOrStdin())
				if err != nil {
					return withCode(exitUsage, err)
				}
				password = p
			}
			if strings.TrimSpace(username) == "" || password == "" {
				return withCode(exitUsage, errors.New("--username and a password are required"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(st core.Store) error {
				user, err := a.authenticator(st).CreateUser(cmd.Context(), username, password)
				if err != nil {
					return withCode(catalogCode(err), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d) at %s\n",
					user.Username, user.ID, user.CreatedAt.Format(time.RFC3339))
				return nil
			})
		},
	}
	create.Flags().StringVar(&username, "username", "", "Username (required)")
	create.Flags().StringVar(&password, "password", "", "Password")
	create.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = create.MarkFlagRequired("username")

	cmd.AddCommand(create)
	return cmd
}

func newAPIKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}

	var username string
	create := &cobra.Command{
		Use:   "create",
		Args:  usageArgs(cobra.NoArgs),
		Short: "Issue an API key; the key is printed once and only its hash is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(st core.Store) error {
				raw, key, err := a.authenticator(st).CreateAPIKey(cmd.Context(), username)
				if err != nil {
					return withCode(catalogCode(err), err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "created api key %s (prefix %s) for %s\n", key.ID, key.Prefix, username)
				fmt.Fprintln(cmd.OutOrStdout(), raw)
				return nil
			})
		},
	}
	create.Flags().StringVar(&username, "username", "", "Owner of the key (required)")
	_ = create.MarkFlagRequired("username")

	cmd.AddCommand(create)
	return cmd
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
