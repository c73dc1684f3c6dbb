package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// HeaderName is the request/response header carrying the trace ID.
const HeaderName = "X-Trace-ID"

type ctxKey struct{}

// GenerateTraceID returns 32 random hex characters.
func GenerateTraceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext returns the trace ID stored in ctx, or "".
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(ctxKey{}).(string); ok {
		return traceID
	}
	return ""
}

func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}
