package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pokecatalog/internal/core"
)

func newImportCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "import <csv-file>",
		Short: "Import a Pokemon dataset in one all-or-nothing transaction",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(st core.Store) error {
				res, err := core.NewImporter(st).ImportFile(cmd.Context(), args[0])
				if err != nil {
					return importError(err)
				}
				if asJSON {
					return writeJSONLine(cmd.OutOrStdout(), res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d pokemon from %s (%d new types, %d new generations) in %s\n",
					res.Rows, res.Source, res.TypesCreated, res.GenerationsCreated, res.Duration.Round(time.Millisecond))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as a JSON line")
	return cmd
}

// importError keeps the row location in the message and picks the exit code.
func importError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return withCode(exitUsage, err)
	}

	msg := core.FormatUserError(err)
	if msg == "" || !core.IsUserFacing(err) {
		return withCode(catalogCode(err), err)
	}
	if core.IsRetryable(err) {
		msg += "\n  nothing was committed; rerun the same import once the database is reachable"
	}
	return withCode(catalogCode(err), fmt.Errorf("%s\n  cause: %w", msg, err))
}
