package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/pokecatalog/internal/logging"
	"github.com/JonMunkholm/pokecatalog/internal/web/middleware"
)

// withRequestMetadata tags log entries for long-running work with the
// caller's address, user agent and principal.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	fields := []any{"ip", clientIP(r), "user_agent", r.UserAgent()}
	if p, ok := middleware.PrincipalFrom(ctx); ok {
		fields = append(fields, "auth_method", p.Method, "user_id", p.UserID)
	}
	return logging.ContextWithFields(ctx, fields...)
}

// clientIP strips the port from RemoteAddr, which TrustedRealIP may already
// have replaced with a bare address.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
