// Package requestid correlates log lines and error responses belonging to
// one pipeline request.
package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey struct{}

var requestIDKey contextKey

// Generate mints a fresh request ID.
func Generate() string {
	return uuid.New().String()
}

// ToContext stores the request ID for the rest of the request's call chain.
func ToContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// FromContext returns the request ID, or "" when the context carries none.
func FromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}

// FromContextPtr is FromContext for response payloads whose requestId field
// is optional; it returns nil instead of an empty string.
func FromContextPtr(ctx context.Context) *string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return &requestID
	}
	return nil
}

func FromRequest(r *http.Request) string {
	return FromContext(r.Context())
}
