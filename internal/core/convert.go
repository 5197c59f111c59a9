package core

// convert.go turns dataset cells into typed values. Cells are cleaned of
// spreadsheet artifacts first, so `="45"` and ` 45 ` both parse as 45.

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Column limits shared with the database schema.
const (
	MaxCellInt    = 32767
	MaxNameLength = 64
)

// HeaderIndex maps lowercase column names to their position.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

// Get returns the cleaned cell for column, or "" if the column is absent
// or the row is short.
func (h HeaderIndex) Get(row []string, column string) string {
	pos, ok := h[strings.ToLower(column)]
	if !ok || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}

// Raw returns the cell for column exactly as read, or "".
func (h HeaderIndex) Raw(row []string, column string) string {
	pos, ok := h[strings.ToLower(column)]
	if !ok || pos >= len(row) {
		return ""
	}
	return row[pos]
}

// CleanCell trims whitespace, the Excel formula prefix (="...") and
// surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	if len(s) >= 2 && strings.HasPrefix(s, "\"") && strings.HasSuffix(s, "\"") {
		s = s[1 : len(s)-1]
	}

	return strings.TrimSpace(s)
}

// ParsePositiveInt parses an integer cell in [1, MaxCellInt]. Thousands
// separators are accepted.
func ParsePositiveInt(column, raw string) (int, error) {
	s := strings.ReplaceAll(raw, ",", "")
	if s == "" {
		return 0, &FieldError{Column: column, Value: raw, Reason: "is empty"}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &FieldError{Column: column, Value: raw, Reason: "is not an integer"}
	}
	if n <= 0 {
		return 0, &FieldError{Column: column, Value: raw, Reason: "must be positive"}
	}
	if n > MaxCellInt {
		return 0, &FieldError{Column: column, Value: raw, Reason: "exceeds " + strconv.Itoa(MaxCellInt)}
	}
	return n, nil
}

// CheckLength rejects values longer than MaxNameLength characters.
func CheckLength(column, value string) error {
	if utf8.RuneCountInString(value) > MaxNameLength {
		return &FieldError{Column: column, Value: value, Reason: "is longer than " + strconv.Itoa(MaxNameLength) + " characters"}
	}
	return nil
}

// ParseFlag parses a boolean-like cell: true/false, t/f, yes/no, y/n, 1/0.
// An empty cell is false.
func ParseFlag(column, raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0", "":
		return false, nil
	default:
		return false, &FieldError{Column: column, Value: raw, Reason: "is not a boolean"}
	}
}
