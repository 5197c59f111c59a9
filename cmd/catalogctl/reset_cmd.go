package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pokecatalog/internal/admin"
	"github.com/JonMunkholm/pokecatalog/internal/core"
)

func newResetCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Args:  usageArgs(cobra.NoArgs),
		Short: "Delete all Pokemon, Types and Generations (users and keys are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return withCode(exitUsage, errors.New("refusing to reset without --yes"))
			}
			return a.withStore(cmd.Context(), func(st core.Store) error {
				res, err := admin.ResetCatalog(cmd.Context(), st, yes)
				if err != nil {
					return withCode(catalogCode(err), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d pokemon, %d types, %d generations\n",
					res.Pokemon, res.Types, res.Generations)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
