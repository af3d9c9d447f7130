package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single blob
// operation dispatched through pkg/blobsvc.
type LogContext struct {
	CorrelationID string    // per-call correlation id (uuid)
	Operation     string    // open, read, write, writeMeta, commit, stat, close, expire, delete
	SessionID     int32     // blob session id, -1 if the operation is session-less (stat/delete by path)
	BlobID        string    // blob path the operation targets
	StartTime     time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a blob operation.
func NewLogContext(correlationID, operation string) *LogContext {
	return &LogContext{
		CorrelationID: correlationID,
		Operation:     operation,
		SessionID:     -1,
		StartTime:     time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithSession returns a copy with the session id set
func (lc *LogContext) WithSession(sessionID uint16) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.SessionID = int32(sessionID)
	}
	return clone
}

// WithBlob returns a copy with the blob id set
func (lc *LogContext) WithBlob(blobID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.BlobID = blobID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
