package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUniquenessViolation is returned when a Pokemon with the same
	// (number, name, version) already exists.
	ErrUniquenessViolation = errors.New("duplicate pokemon: natural key already exists")

	// ErrStorageUnavailable wraps transient failures talking to the store.
	// The importer never retries them.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNotFound is returned by lookups that match nothing.
	ErrNotFound = errors.New("not found")

	// ErrInUse is returned when deleting a Type still referenced by a Pokemon.
	ErrInUse = errors.New("record in use")

	// ErrConflict is returned when a Type rename or user creation collides
	// with an existing unique value.
	ErrConflict = errors.New("unique value already exists")

	// ErrEmptyFile is returned for sources with no header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
)

// MalformedNameError reports a Name cell that does not split into a
// species name and an optional version.
type MalformedNameError struct {
	Value string
}

func (e *MalformedNameError) Error() string {
	return fmt.Sprintf("malformed name %q: want an uppercase letter, lowercase letters, then an optional version", e.Value)
}

// ReferenceResolutionError reports a Type or Generation that could not be
// resolved or created.
type ReferenceResolutionError struct {
	Kind string // "type" or "generation"
	Key  string
	Err  error
}

func (e *ReferenceResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unresolved reference: %s %q", e.Kind, e.Key)
	}
	return fmt.Sprintf("unresolved reference: %s %q: %v", e.Kind, e.Key, e.Err)
}

func (e *ReferenceResolutionError) Unwrap() error {
	return e.Err
}

// FieldError reports a cell that could not be parsed or is out of range.
type FieldError struct {
	Column string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid value in column %q: %q %s", e.Column, e.Value, e.Reason)
}

// RowError identifies the row that aborted an import. Key is set once the
// name has been split.
type RowError struct {
	Source string
	Row    int // 1-based data row, header excluded
	Line   int // 1-based line in the source file
	Key    *NaturalKey
	Err    error
}

func (e *RowError) Error() string {
	loc := fmt.Sprintf("row %d (line %d)", e.Row, e.Line)
	if e.Source != "" {
		loc = e.Source + ": " + loc
	}
	if e.Key != nil {
		loc += fmt.Sprintf(" #%d %s%s", e.Key.Number, e.Key.Name, e.Key.Version)
	}
	return fmt.Sprintf("%s: %v", loc, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is transient and the whole run may be
// retried unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
