package blobsvc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/blobflashd/internal/logger"
	"github.com/marmos91/blobflashd/pkg/metrics"
)

func contextFromLC(lc *logger.LogContext) context.Context {
	return logger.WithContext(context.Background(), lc)
}

// InstrumentedDispatcher wraps a Dispatcher with structured logging and
// Prometheus metrics on every operation, mirroring the teacher's pattern of
// logging RPC dispatch at Debug on entry and Warn on a boolean failure.
// Pass a nil metrics.BlobMetrics to disable metrics collection.
type InstrumentedDispatcher struct {
	inner   *Dispatcher
	metrics metrics.BlobMetrics
}

// NewInstrumentedDispatcher wraps d for logging and metrics.
func NewInstrumentedDispatcher(d *Dispatcher, m metrics.BlobMetrics) *InstrumentedDispatcher {
	return &InstrumentedDispatcher{inner: d, metrics: m}
}

func (d *InstrumentedDispatcher) logCtx(op string, session uint16, blob BlobID) *logger.LogContext {
	lc := logger.NewLogContext(uuid.NewString(), op)
	if session != 0 {
		lc = lc.WithSession(session)
	}
	if blob != "" {
		lc = lc.WithBlob(string(blob))
	}
	return lc
}

// logFailure logs a Warn-level failure, appending the HandlerError's code
// (§7) when the dispatcher classified one for this call.
func (d *InstrumentedDispatcher) logFailure(lc *logger.LogContext, msg string, kvs ...any) {
	if err := d.inner.LastError(); err != nil {
		kvs = append(kvs, "code", err.Code.String())
	}
	logger.WarnCtx(contextFromLC(lc), msg, kvs...)
}

func (d *InstrumentedDispatcher) finish(lc *logger.LogContext, op string, blob BlobID, ok bool) {
	if d.metrics == nil {
		return
	}
	duration := time.Duration(lc.DurationMs() * float64(time.Millisecond))
	d.metrics.RecordOperation(op, string(blob), duration, ok)
	d.metrics.SetUpdateState(d.inner.Firmware().State().String())
}

// CanHandleBlob implements canHandleBlob(path) (§4.1). Not logged: it is a
// pure predicate, called far more often than any mutating operation.
func (d *InstrumentedDispatcher) CanHandleBlob(path BlobID) bool {
	return d.inner.CanHandleBlob(path)
}

// GetBlobIds implements getBlobIds() (§4.1).
func (d *InstrumentedDispatcher) GetBlobIds() []BlobID {
	return d.inner.GetBlobIds()
}

// StatBlob implements stat(path, &meta) (§4.1).
func (d *InstrumentedDispatcher) StatBlob(path BlobID) (BlobMeta, bool) {
	lc := d.logCtx("stat", 0, path)
	logger.DebugCtx(contextFromLC(lc), "stat")
	meta, ok := d.inner.StatBlob(path)
	if !ok {
		d.logFailure(lc, "stat failed")
	}
	d.finish(lc, "stat", path, ok)
	return meta, ok
}

// Open implements open(session, flags, path) (§4.1).
func (d *InstrumentedDispatcher) Open(session uint16, flags OpenFlags, path BlobID) bool {
	lc := d.logCtx("open", session, path)
	logger.DebugCtx(contextFromLC(lc), "open", "flags", flags.String())
	ok := d.inner.Open(session, flags, path)
	if !ok {
		d.logFailure(lc, "open failed", "flags", flags.String())
	}
	if d.metrics != nil && d.inner.Version().CanHandleBlob(path) {
		d.metrics.RecordVersionTrigger(string(path), ok)
	}
	d.finish(lc, "open", path, ok)
	return ok
}

// Read implements read(session, offset, size) (§4.1).
func (d *InstrumentedDispatcher) Read(session uint16, offset, size uint32) []byte {
	lc := d.logCtx("read", session, "")
	logger.DebugCtx(contextFromLC(lc), "read", "offset", offset, "size", size)
	data := d.inner.Read(session, offset, size)
	d.finish(lc, "read", "", len(data) > 0 || size == 0)
	return data
}

// Write implements write(session, offset, data) (§4.1).
func (d *InstrumentedDispatcher) Write(session uint16, offset uint32, data []byte) bool {
	lc := d.logCtx("write", session, "")
	logger.DebugCtx(contextFromLC(lc), "write", "offset", offset, "count", len(data))
	ok := d.inner.Write(session, offset, data)
	if !ok {
		d.logFailure(lc, "write failed", "offset", offset)
	}
	d.finish(lc, "write", "", ok)
	return ok
}

// WriteMeta implements writeMeta(session, offset, data) (§4.1).
func (d *InstrumentedDispatcher) WriteMeta(session uint16, offset uint32, data []byte) bool {
	lc := d.logCtx("writeMeta", session, "")
	logger.DebugCtx(contextFromLC(lc), "writeMeta", "offset", offset, "count", len(data))
	ok := d.inner.WriteMeta(session, offset, data)
	if !ok {
		d.logFailure(lc, "writeMeta failed", "offset", offset)
	}
	d.finish(lc, "writeMeta", "", ok)
	return ok
}

// Commit implements commit(session, data) (§4.1).
func (d *InstrumentedDispatcher) Commit(session uint16, data []byte) bool {
	lc := d.logCtx("commit", session, "")
	logger.DebugCtx(contextFromLC(lc), "commit")
	ok := d.inner.Commit(session, data)
	if !ok {
		d.logFailure(lc, "commit failed")
	}
	d.finish(lc, "commit", "", ok)
	return ok
}

// StatSession implements stat(session, &meta) (§4.1).
func (d *InstrumentedDispatcher) StatSession(session uint16) (BlobMeta, bool) {
	lc := d.logCtx("statSession", session, "")
	logger.DebugCtx(contextFromLC(lc), "statSession")
	meta, ok := d.inner.StatSession(session)
	if !ok {
		d.logFailure(lc, "statSession failed")
	}
	if ok && len(meta.Metadata) > 0 && d.metrics != nil {
		if sess, exists := d.inner.sessions.Get(session); exists && sess.Role == RoleVerify {
			d.metrics.RecordVerifyPoll(VerifyStatus(meta.Metadata[0]).String())
		}
	}
	d.finish(lc, "statSession", "", ok)
	return meta, ok
}

// Close implements close(session) (§4.1).
func (d *InstrumentedDispatcher) Close(session uint16) bool {
	lc := d.logCtx("close", session, "")
	logger.DebugCtx(contextFromLC(lc), "close")
	ok := d.inner.Close(session)
	if !ok {
		d.logFailure(lc, "close failed")
	}
	d.finish(lc, "close", "", ok)
	return ok
}

// Expire implements expire(session) (§4.1).
func (d *InstrumentedDispatcher) Expire(session uint16) bool {
	lc := d.logCtx("expire", session, "")
	logger.DebugCtx(contextFromLC(lc), "expire")
	ok := d.inner.Expire(session)
	if !ok {
		d.logFailure(lc, "expire failed")
	}
	d.finish(lc, "expire", "", ok)
	return ok
}

// Delete implements delete(path) (§4.1).
func (d *InstrumentedDispatcher) Delete(path BlobID) bool {
	lc := d.logCtx("delete", 0, path)
	logger.DebugCtx(contextFromLC(lc), "delete")
	ok := d.inner.Delete(path)
	if !ok {
		d.logFailure(lc, "delete failed")
	}
	d.finish(lc, "delete", path, ok)
	return ok
}
