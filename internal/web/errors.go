package web

// errors.go renders every API failure the same way: the technical error is
// logged with the request ID, and the client receives the mapped
// core.UserMessage as JSON. A failing import row adds row, line and detail
// so the CSV can be fixed without reading server logs.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/pokecatalog/internal/auth"
	"github.com/JonMunkholm/pokecatalog/internal/core"
	"github.com/JonMunkholm/pokecatalog/internal/logging"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errNoFile      = errors.New("no file provided")
	errFileTooBig  = errors.New("file too large")
	errBadBody     = errors.New("invalid request body")
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Row     int    `json:"row,omitempty"`
	Line    int    `json:"line,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// respondError logs err and writes its user-facing form with statusCode.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	var rowErr *core.RowError
	if errors.As(err, &rowErr) {
		resp.Row = rowErr.Row
		resp.Line = rowErr.Line
		if rowErr.Err != nil {
			resp.Detail = rowErr.Err.Error()
		}
	}
	if core.IsRetryable(err) {
		w.Header().Set("Retry-After", "5")
	}
	writeJSONStatus(w, statusCode, resp)
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var (
		malformed *core.MalformedNameError
		field     *core.FieldError
		ref       *core.ReferenceResolutionError
	)

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrMissingAPIKey),
		errors.Is(err, auth.ErrInvalidAPIKey):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrStorageUnavailable),
		errors.Is(err, core.ErrTooManyImports),
		errors.Is(err, core.ErrImportsClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUniquenessViolation),
		errors.Is(err, core.ErrConflict),
		errors.Is(err, core.ErrInUse):
		return http.StatusConflict
	case errors.As(err, &malformed),
		errors.As(err, &field),
		errors.As(err, &ref),
		errors.Is(err, core.ErrMissingColumn),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrInvalidTypeName),
		errors.Is(err, errNoFile),
		errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, errFileTooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.Canceled):
		return 499
	}

	var rowErr *core.RowError
	if errors.As(err, &rowErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail is respondError with the status chosen by statusFor.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, statusFor(err))
}
