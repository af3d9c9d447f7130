package blobsvc

// Session is a short-lived identifier bound to one open blob and its
// cursor (§3). Sessions are keyed by id only; the blob-side state never
// holds a pointer back to a Session, avoiding the cyclic references the
// design notes (§9) warn about.
type Session struct {
	ID    uint16
	Blob  BlobID
	Flags OpenFlags
	Role  Role
	// Cursor tracks the last-seen offset for sequential callers; the core
	// never enforces monotonicity on it, callers pass offset explicitly
	// on every read/write.
	Cursor uint32
}

// SessionTable enforces I1 (one open session per blob) and I2 (globally
// unique session ids) across both the firmware and version handlers. The
// dispatcher constructs a single table and hands it to both so session ids
// are unique process-wide, not just per-handler.
//
// The outer dispatch loop is single-threaded (§5), so this table carries
// no internal locking.
type SessionTable struct {
	byID   map[uint16]*Session
	byBlob map[BlobID]uint16
}

// NewSessionTable returns an empty session table.
func NewSessionTable() *SessionTable {
	return &SessionTable{
		byID:   make(map[uint16]*Session),
		byBlob: make(map[BlobID]uint16),
	}
}

// Exists reports whether a session id is currently in use (I2).
func (t *SessionTable) Exists(id uint16) bool {
	_, ok := t.byID[id]
	return ok
}

// BlobOpen reports whether some session currently holds blob (I1).
func (t *SessionTable) BlobOpen(blob BlobID) bool {
	_, ok := t.byBlob[blob]
	return ok
}

// Open registers a new session. Callers must have already checked Exists
// and BlobOpen; Open itself does not re-validate so that the two checks
// and the eventual capability call can be interleaved by the FSM.
func (t *SessionTable) Open(id uint16, blob BlobID, flags OpenFlags, role Role) *Session {
	s := &Session{ID: id, Blob: blob, Flags: flags, Role: role}
	t.byID[id] = s
	t.byBlob[blob] = id
	return s
}

// Get returns the session for id, or (nil, false) if unknown.
func (t *SessionTable) Get(id uint16) (*Session, bool) {
	s, ok := t.byID[id]
	return s, ok
}

// Remove destroys a session, freeing its id and its blob's single-open
// slot. Idempotent: removing an unknown id is a no-op.
func (t *SessionTable) Remove(id uint16) {
	s, ok := t.byID[id]
	if !ok {
		return
	}
	delete(t.byID, id)
	delete(t.byBlob, s.Blob)
}

// Len returns the number of live sessions, for status/metrics reporting.
func (t *SessionTable) Len() int { return len(t.byID) }
