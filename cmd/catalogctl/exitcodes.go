package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pokecatalog/internal/core"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitDBWrite    = 5
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

// usageArgs reports positional argument mistakes as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return withCode(exitUsage, validate(cmd, args))
	}
}

func flagUsageError(_ *cobra.Command, err error) error {
	return withCode(exitUsage, err)
}

// commandUsageError tags the unknown-command error cobra returns while
// resolving the subcommand, before any Args or flag hook runs.
func commandUsageError(err error) error {
	var ce *cliError
	if err == nil || errors.As(err, &ce) {
		return err
	}
	if strings.HasPrefix(err.Error(), "unknown command") {
		return withCode(exitUsage, err)
	}
	return err
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}

// catalogCode classifies catalog errors: bad input is a validation failure,
// an unreachable store is a DB failure, and a rejected write is a DB write
// failure.
func catalogCode(err error) int {
	var (
		malformed *core.MalformedNameError
		field     *core.FieldError
		ref       *core.ReferenceResolutionError
	)
	switch {
	case errors.Is(err, core.ErrStorageUnavailable):
		return exitDB
	case errors.Is(err, core.ErrUniquenessViolation),
		errors.Is(err, core.ErrConflict),
		errors.Is(err, core.ErrInUse):
		return exitDBWrite
	case errors.As(err, &malformed),
		errors.As(err, &field),
		errors.As(err, &ref),
		errors.Is(err, core.ErrMissingColumn),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrNotFound):
		return exitValidation
	}
	return 1
}
