package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "malformed name inside row error",
			err:      &RowError{Row: 3, Line: 4, Err: &MalformedNameError{Value: "charizard"}},
			wantCode: "VAL001",
		},
		{
			name:     "field error",
			err:      &FieldError{Column: "HP", Value: "x", Reason: "is not an integer"},
			wantCode: "VAL002",
		},
		{
			name:     "missing type 1",
			err:      &ReferenceResolutionError{Kind: "type", Err: errors.New("type 1 is required")},
			wantCode: "VAL003",
		},
		{
			name:     "missing column",
			err:      fmt.Errorf("%w: Speed", ErrMissingColumn),
			wantCode: "VAL004",
		},
		{
			name:     "duplicate pokemon",
			err:      &RowError{Row: 1, Err: fmt.Errorf("insert pokemon: %w", ErrUniquenessViolation)},
			wantCode: "DB001",
		},
		{
			name:     "unavailable beats reference",
			err:      &ReferenceResolutionError{Kind: "type", Key: "Grass", Err: ErrStorageUnavailable},
			wantCode: "DB004",
		},
		{
			name:     "unresolved generation",
			err:      &ReferenceResolutionError{Kind: "generation", Key: "9", Err: errors.New("rejected")},
			wantCode: "DB003",
		},
		{
			name:     "type in use",
			err:      fmt.Errorf("delete type: %w", ErrInUse),
			wantCode: "DB008",
		},
		{
			name:     "not found",
			err:      ErrNotFound,
			wantCode: "NF001",
		},
		{
			name:     "import busy",
			err:      ErrTooManyImports,
			wantCode: "IMP001",
		},
		{
			name:     "import limiter closed",
			err:      ErrImportsClosed,
			wantCode: "IMP004",
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			wantCode: "IMP003",
		},
		{
			name:     "raw pg unique violation",
			err:      errors.New("ERROR: duplicate key value violates unique constraint"),
			wantCode: "DB002",
		},
		{
			name:     "connection refused pattern",
			err:      errors.New("dial tcp: connection refused"),
			wantCode: "DB004",
		},
		{
			name:     "expired token pattern",
			err:      errors.New("auth: token expired"),
			wantCode: "AUTH004",
		},
		{
			name:     "case insensitive matching",
			err:      errors.New("RATE LIMIT exceeded"),
			wantCode: "RATE001",
		},
		{
			name:     "unknown error returns default",
			err:      errors.New("some random internal error"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := &RowError{Row: 5, Line: 6, Err: ErrUniquenessViolation}

	want := "Row 5 (line 6): A Pokemon with this number, name and version already exists (Code: DB001). " +
		"Nothing was imported. Remove rows that are already in the catalog and retry"
	if got := FormatUserError(err); got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"typed error is user facing", ErrNotFound, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}
