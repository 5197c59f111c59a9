package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Typed catalog errors are matched first with errors.Is/As;
// anything else falls back to case-insensitive substring patterns.
//
// Codes by category:
//
//	VAL001 malformed Name cell         VAL002 invalid or out-of-range cell
//	VAL003 Type 1 missing              VAL004 missing column
//	VAL005 invalid Type name           VAL006 malformed JSON body
//	DB001  duplicate Pokemon           DB002  unique value exists
//	DB003  unresolved reference        DB004  storage unavailable
//	DB005  connection reset            DB006  timeout
//	DB007  deadlock                    DB008  record in use
//	FILE001 file too large             FILE002 invalid CSV
//	FILE004 no file                    FILE005 empty file
//	IMP001 import busy                 IMP002 request cancelled
//	IMP003 request timed out           IMP004 shutting down
//	AUTH001 bad credentials            AUTH002 bad API key
//	AUTH003 bad token                  AUTH004 expired token
//	NF001  not found                   RATE001 rate limited
//	ERR000 anything else; check the logs for the technical error

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgMalformedName = UserMessage{
		Message: "A Name value could not be split into species and version",
		Action:  "Names must start with an uppercase letter followed by lowercase letters",
		Code:    "VAL001",
	}
	msgInvalidField = UserMessage{
		Message: "Invalid or out-of-range value detected",
		Action:  "Stats, # and Generation must be whole numbers from 1 to 32767, names at most 64 characters, Legendary True or False",
		Code:    "VAL002",
	}
	msgTypeRequired = UserMessage{
		Message: "Required field is empty",
		Action:  "Every row needs a Type 1 value",
		Code:    "VAL003",
	}
	msgMissingColumn = UserMessage{
		Message: "Required column is missing from CSV",
		Action:  "Check that all dataset columns are present in the header",
		Code:    "VAL004",
	}
	msgTypeName = UserMessage{
		Message: "Type name is invalid",
		Action:  "Names are required and at most 64 characters",
		Code:    "VAL005",
	}
	msgDuplicate = UserMessage{
		Message: "A Pokemon with this number, name and version already exists",
		Action:  "Nothing was imported. Remove rows that are already in the catalog and retry",
		Code:    "DB001",
	}
	msgConflict = UserMessage{
		Message: "This value must be unique but already exists",
		Action:  "Choose a different name",
		Code:    "DB002",
	}
	msgReference = UserMessage{
		Message: "A referenced Type or Generation could not be resolved",
		Action:  "Nothing was imported. Check the Type and Generation columns",
		Code:    "DB003",
	}
	msgUnavailable = UserMessage{
		Message: "Unable to reach the catalog database",
		Action:  "Nothing was imported. Please retry the whole import in a few moments",
		Code:    "DB004",
	}
	msgInUse = UserMessage{
		Message: "This record is still referenced by Pokemon",
		Action:  "Reassign or remove those Pokemon first",
		Code:    "DB008",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header and data rows",
		Code:    "FILE005",
	}
	msgBusy = UserMessage{
		Message: "Another import is in progress",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}
	msgClosed = UserMessage{
		Message: "The server is shutting down",
		Action:  "Retry the import once the service is back",
		Code:    "IMP004",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "IMP002",
	}
	msgDeadline = UserMessage{
		Message: "Request timed out",
		Action:  "Try again later; nothing was committed",
		Code:    "IMP003",
	}
	msgNotFound = UserMessage{
		Message: "Not found",
		Action:  "Check the identifier and try again",
		Code:    "NF001",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catches errors that did not come through a typed path.
// The first match wins, so specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{"duplicate key", msgConflict},
	{"violates unique", msgConflict},
	{"violates foreign key", msgReference},
	{"connection refused", msgUnavailable},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{"invalid number", msgInvalidField},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "Request body could not be read",
			Action:  "Send a JSON object with the documented fields",
			Code:    "VAL006",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "The dataset should be well under the upload limit; check you picked the right file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with a single header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please attach a CSV file in the \"file\" form field",
			Code:    "FILE004",
		},
	},
	{
		pattern: "invalid credentials",
		msg: UserMessage{
			Message: "Invalid username or password",
			Action:  "Check your credentials and try again",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "api key",
		msg: UserMessage{
			Message: "Missing or invalid API key",
			Action:  "Send a valid key in the X-API-Key header",
			Code:    "AUTH002",
		},
	},
	{
		pattern: "token expired",
		msg: UserMessage{
			Message: "Your session has expired",
			Action:  "Obtain a new token or use your refresh token",
			Code:    "AUTH004",
		},
	},
	{
		pattern: "token",
		msg: UserMessage{
			Message: "Missing or invalid bearer token",
			Action:  "Obtain a token from /api/auth/token/obtain",
			Code:    "AUTH003",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(err)
//	// for a re-imported dataset: msg.Code == "DB001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	var malformed *MalformedNameError
	var field *FieldError
	var ref *ReferenceResolutionError

	switch {
	case errors.As(err, &malformed):
		return msgMalformedName, true
	case errors.As(err, &field):
		return msgInvalidField, true
	case errors.Is(err, ErrUniquenessViolation):
		return msgDuplicate, true
	case errors.Is(err, ErrStorageUnavailable):
		return msgUnavailable, true
	case errors.As(err, &ref):
		if ref.Kind == "type" && ref.Key == "" {
			return msgTypeRequired, true
		}
		return msgReference, true
	case errors.Is(err, ErrInvalidTypeName):
		return msgTypeName, true
	case errors.Is(err, ErrMissingColumn):
		return msgMissingColumn, true
	case errors.Is(err, ErrEmptyFile):
		return msgEmptyFile, true
	case errors.Is(err, ErrConflict):
		return msgConflict, true
	case errors.Is(err, ErrInUse):
		return msgInUse, true
	case errors.Is(err, ErrNotFound):
		return msgNotFound, true
	case errors.Is(err, ErrTooManyImports):
		return msgBusy, true
	case errors.Is(err, ErrImportsClosed):
		return msgClosed, true
	case errors.Is(err, context.Canceled):
		return msgCancelled, true
	case errors.Is(err, context.DeadlineExceeded):
		return msgDeadline, true
	}
	return UserMessage{}, false
}

// FormatUserError formats err as "Message (Code: XXX). Action". A *RowError
// is prefixed with its location so operators can find the row.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	out := fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)

	var rowErr *RowError
	if errors.As(err, &rowErr) {
		out = fmt.Sprintf("Row %d (line %d): %s", rowErr.Row, rowErr.Line, out)
	}
	return out
}

// IsUserFacing reports whether err maps to something more specific than
// ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
