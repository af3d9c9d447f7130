package logger

import "log/slog"

// Standard field keys for structured logging across the blob handler.
// Use these keys consistently so log aggregation and querying stays uniform
// across open/read/write/commit/close call sites.
const (
	// Correlation
	KeyCorrelationID = "correlation_id" // per-call correlation id (uuid)
	KeyOperation     = "operation"      // open, read, write, writeMeta, commit, stat, close, expire, delete

	// Blob / session identity
	KeySessionID = "session_id" // blob session id
	KeyBlobID    = "blob_id"    // blob path

	// Operation metadata
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyErrorCode  = "error_code"  // blobsvc.ErrorCode

	// I/O
	KeyOffset       = "offset"        // offset for read/write/writeMeta
	KeyCount        = "count"         // byte count requested
	KeyBytesRead    = "bytes_read"    // actual bytes read
	KeyBytesWritten = "bytes_written" // actual bytes written

	// FSM
	KeyState        = "state"         // UpdateState / ActionStatus / VerifyStatus string
	KeyUploadTarget = "upload_target" // current firmware upload target blob id

	// Transport
	KeyTransport = "transport" // bt, p2a, lpc
)

// Operation returns a slog.Attr for the blob operation name.
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// BlobID returns a slog.Attr for a blob path.
func BlobID(id string) slog.Attr {
	return slog.String(KeyBlobID, id)
}

// SessionID returns a slog.Attr for a blob session id.
func SessionID(id uint16) slog.Attr {
	return slog.Int(KeySessionID, int(id))
}

// State returns a slog.Attr for a firmware/version FSM state.
func State(s string) slog.Attr {
	return slog.String(KeyState, s)
}

// Err returns a slog.Attr wrapping an error's message. Returns the empty
// attr for a nil error so it can be appended unconditionally.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
