package common

import (
	"context"
	"time"
)

// RequestContext carries per-request metadata set by the HTTP middleware.
type RequestContext struct {
	CorrelationID string
	Started       time.Time
}

type contextKey int

const requestContextKey contextKey = iota

// WithRequestContext stores a RequestContext in the request context.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// RequestContextFromContext retrieves the RequestContext from context, or nil if absent.
func RequestContextFromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey).(*RequestContext)
	return rc
}

// CorrelationID returns the request correlation ID, or "-" outside of a request.
func CorrelationID(ctx context.Context) string {
	if rc := RequestContextFromContext(ctx); rc != nil && rc.CorrelationID != "" {
		return rc.CorrelationID
	}
	return "-"
}
