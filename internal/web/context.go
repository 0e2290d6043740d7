package web

import (
	"context"
	"net"
	"net/http"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
)

// WithRequestMetadata adds client IP and User-Agent to context for import logs.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithClientIP(ctx, clientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}

// clientIP strips the port from RemoteAddr when present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
