package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/pokecatalog/internal/auth"
	"github.com/JonMunkholm/pokecatalog/internal/core"
	"github.com/JonMunkholm/pokecatalog/internal/logging"
)

// Principal identifies who made an authenticated request.
type Principal struct {
	Username string `json:"username,omitempty"`
	UserID   int64  `json:"user_id,omitempty"`
	KeyID    string `json:"key_id,omitempty"`
	Method   string `json:"method"` // "basic", "api_key" or "bearer"
}

type principalKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal set by one of the auth middlewares.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// KeyAuthenticator resolves raw API keys.
type KeyAuthenticator interface {
	AuthenticateKey(ctx context.Context, raw string) (core.APIKey, error)
}

// PasswordAuthenticator checks username/password pairs.
type PasswordAuthenticator interface {
	Login(ctx context.Context, username, password string) (core.User, error)
}

// TokenParser validates bearer tokens.
type TokenParser interface {
	ParseToken(token string, kind auth.Kind) (auth.Claims, error)
}

// APIKeyAuth requires a valid key in the X-API-Key header or an
// "Authorization: Api-Key <key>" header.
func APIKeyAuth(keys KeyAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-API-Key")
			if raw == "" {
				raw, _ = authorizationValue(r, "Api-Key")
			}

			key, err := keys.AuthenticateKey(r.Context(), raw)
			if err != nil {
				rejectAuth(w, r, err, "")
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{UserID: key.UserID, KeyID: key.ID.String(), Method: "api_key"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BasicAuth requires HTTP Basic credentials for a stored user.
func BasicAuth(users PasswordAuthenticator, realm string) func(http.Handler) http.Handler {
	challenge := `Basic realm="` + realm + `"`
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok {
				rejectAuth(w, r, auth.ErrInvalidCredentials, challenge)
				return
			}

			user, err := users.Login(r.Context(), username, password)
			if err != nil {
				rejectAuth(w, r, err, challenge)
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{Username: user.Username, UserID: user.ID, Method: "basic"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerAuth requires a valid access token in the Authorization header.
func BearerAuth(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := authorizationValue(r, "Bearer")
			if !ok {
				rejectAuth(w, r, auth.ErrInvalidToken, "Bearer")
				return
			}

			claims, err := tokens.ParseToken(token, auth.KindAccess)
			if err != nil {
				rejectAuth(w, r, err, "Bearer")
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{Username: claims.Username, Method: "bearer"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authorizationValue(r *http.Request, scheme string) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) <= len(scheme)+1 || !strings.EqualFold(h[:len(scheme)], scheme) || h[len(scheme)] != ' ' {
		return "", false
	}
	return strings.TrimSpace(h[len(scheme)+1:]), true
}

// rejectAuth answers 401 for credential problems and 503 when the store
// could not be asked.
func rejectAuth(w http.ResponseWriter, r *http.Request, err error, challenge string) {
	status := http.StatusUnauthorized
	if errors.Is(err, core.ErrStorageUnavailable) {
		status = http.StatusServiceUnavailable
	} else if !isAuthError(err) {
		status = http.StatusInternalServerError
	}

	msg := core.MapError(err)
	logging.FromContext(r.Context()).Warn("auth: rejected",
		"path", r.URL.Path,
		"method", r.Method,
		"remote_addr", r.RemoteAddr,
		"error", err,
		"code", msg.Code,
	)

	if challenge != "" && status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", challenge)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   msg.Message,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}

func isAuthError(err error) bool {
	return errors.Is(err, auth.ErrInvalidCredentials) ||
		errors.Is(err, auth.ErrMissingAPIKey) ||
		errors.Is(err, auth.ErrInvalidAPIKey) ||
		errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrTokenExpired)
}
