package audit

import (
	"github.com/marmos91/blobflashd/internal/logger"
	"github.com/marmos91/blobflashd/pkg/blobsvc"
)

// RecordingDispatcher wraps a blobsvc.Dispatcher and appends an audit
// entry to a Store whenever an operation leaves the firmware FSM or one
// of the version blobs in a different state than it found it. It never
// looks at in-flight session data, only the two FSMs' observable states,
// so it carries no responsibility for resuming anything after a restart.
//
// It takes the raw Dispatcher separately from the Facade it delegates
// calls to, so it can sit on top of an InstrumentedDispatcher (both
// wrapping the same raw Dispatcher) without losing access to the
// Firmware()/Version() accessors that only the concrete type exposes.
type RecordingDispatcher struct {
	raw   *blobsvc.Dispatcher
	next  blobsvc.Facade
	store *Store
}

// NewRecordingDispatcher wraps next (raw, or raw wrapped in an
// InstrumentedDispatcher), recording transitions observed on raw to store.
func NewRecordingDispatcher(raw *blobsvc.Dispatcher, next blobsvc.Facade, store *Store) *RecordingDispatcher {
	return &RecordingDispatcher{raw: raw, next: next, store: store}
}

func (d *RecordingDispatcher) snapshot() (blobsvc.UpdateState, map[blobsvc.BlobID]blobsvc.ActionStatus) {
	versions := make(map[blobsvc.BlobID]blobsvc.ActionStatus)
	for _, id := range d.raw.Version().GetBlobIds() {
		if status, ok := d.raw.Version().StatusOf(id); ok {
			versions[id] = status
		}
	}
	return d.raw.Firmware().State(), versions
}

func (d *RecordingDispatcher) recordDiff(before blobsvc.UpdateState, beforeVersions map[blobsvc.BlobID]blobsvc.ActionStatus) {
	after, afterVersions := d.snapshot()

	if after != before {
		if err := d.store.Record("firmware", "", before.String(), after.String()); err != nil {
			logger.Warn("failed to record firmware transition", "error", err)
		}
	}

	for id, status := range afterVersions {
		if beforeVersions[id] != status {
			if err := d.store.Record("version", string(id), beforeVersions[id].String(), status.String()); err != nil {
				logger.Warn("failed to record version transition", "error", err)
			}
		}
	}
}

// CanHandleBlob implements canHandleBlob(path) (§4.1). Not audited: a pure
// predicate.
func (d *RecordingDispatcher) CanHandleBlob(path blobsvc.BlobID) bool {
	return d.next.CanHandleBlob(path)
}

// GetBlobIds implements getBlobIds() (§4.1).
func (d *RecordingDispatcher) GetBlobIds() []blobsvc.BlobID {
	return d.next.GetBlobIds()
}

// StatBlob implements stat(path, &meta) (§4.1). Not audited: read-only.
func (d *RecordingDispatcher) StatBlob(path blobsvc.BlobID) (blobsvc.BlobMeta, bool) {
	return d.next.StatBlob(path)
}

// Open implements open(session, flags, path) (§4.1).
func (d *RecordingDispatcher) Open(session uint16, flags blobsvc.OpenFlags, path blobsvc.BlobID) bool {
	before, beforeVersions := d.snapshot()
	ok := d.next.Open(session, flags, path)
	d.recordDiff(before, beforeVersions)
	return ok
}

// Read implements read(session, offset, size) (§4.1). Not audited:
// read-only and can run arbitrarily often during verification/version
// polling.
func (d *RecordingDispatcher) Read(session uint16, offset, size uint32) []byte {
	return d.next.Read(session, offset, size)
}

// Write implements write(session, offset, data) (§4.1). Not audited:
// upload progress within uploadInProgress is not a distinct FSM state.
func (d *RecordingDispatcher) Write(session uint16, offset uint32, data []byte) bool {
	return d.next.Write(session, offset, data)
}

// WriteMeta implements writeMeta(session, offset, data) (§4.1).
func (d *RecordingDispatcher) WriteMeta(session uint16, offset uint32, data []byte) bool {
	return d.next.WriteMeta(session, offset, data)
}

// Commit implements commit(session, data) (§4.1).
func (d *RecordingDispatcher) Commit(session uint16, data []byte) bool {
	before, beforeVersions := d.snapshot()
	ok := d.next.Commit(session, data)
	d.recordDiff(before, beforeVersions)
	return ok
}

// StatSession implements stat(session, &meta) (§4.1). Polling a version
// blob's status through stat can itself observe a running->success/failed
// transition, so this is audited too.
func (d *RecordingDispatcher) StatSession(session uint16) (blobsvc.BlobMeta, bool) {
	before, beforeVersions := d.snapshot()
	meta, ok := d.next.StatSession(session)
	d.recordDiff(before, beforeVersions)
	return meta, ok
}

// Close implements close(session) (§4.1).
func (d *RecordingDispatcher) Close(session uint16) bool {
	before, beforeVersions := d.snapshot()
	ok := d.next.Close(session)
	d.recordDiff(before, beforeVersions)
	return ok
}

// Expire implements expire(session) (§4.1).
func (d *RecordingDispatcher) Expire(session uint16) bool {
	before, beforeVersions := d.snapshot()
	ok := d.next.Expire(session)
	d.recordDiff(before, beforeVersions)
	return ok
}

// Delete implements delete(path) (§4.1). Never audited: delete() always
// reports false (§4.2 open question), so it never changes either FSM.
func (d *RecordingDispatcher) Delete(path blobsvc.BlobID) bool {
	return d.next.Delete(path)
}
