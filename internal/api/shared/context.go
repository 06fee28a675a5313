// Package shared holds the request context and response helpers used by the
// HTTP handlers and middleware.
package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/phrazzld/paperpilot/internal/platform/logger"
)

// TraceIDLength is the number of random bytes in a trace ID.
const TraceIDLength = 16

// SetTraceID returns a copy of ctx carrying a freshly generated trace ID.
// The ID is stored where logger.FromContextOrDefault finds it, so every log
// line written while serving the request carries it.
func SetTraceID(ctx context.Context) context.Context {
	return logger.WithTraceID(ctx, generateTraceID())
}

// GetTraceID returns the trace ID carried by ctx, or "".
func GetTraceID(ctx context.Context) string {
	return logger.TraceIDFromContext(ctx)
}

// generateTraceID returns 32 hex characters. crypto/rand.Read does not fail
// on supported platforms.
func generateTraceID() string {
	b := make([]byte, TraceIDLength)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
