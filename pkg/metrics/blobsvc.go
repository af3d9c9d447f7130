package metrics

import "time"

// BlobMetrics provides observability for pkg/blobsvc dispatch operations.
//
// Pass nil to pkg/blobsvc.NewInstrumentedDispatcher to disable metrics
// collection with zero overhead.
type BlobMetrics interface {
	// RecordOperation records a completed blob operation: its name
	// (open, read, write, writeMeta, commit, stat, close, expire, delete),
	// the blob id it targeted, its duration, and whether it succeeded.
	RecordOperation(operation, blobID string, duration time.Duration, ok bool)

	// SetUpdateState reports the firmware handler's current UpdateState as
	// a label on a single gauge (1 for the active state, 0 for the rest).
	SetUpdateState(state string)

	// RecordVerifyPoll records one CheckVerificationState poll and its
	// resulting VerifyStatus.
	RecordVerifyPoll(status string)

	// RecordVersionTrigger records one VersionTrigger.Trigger() call for a
	// given version blob id and whether it succeeded.
	RecordVersionTrigger(blobID string, ok bool)
}
