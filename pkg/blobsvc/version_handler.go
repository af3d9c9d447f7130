package blobsvc

// versionBlobState holds the capability pair and cached status for one
// configured version blob id (§4.4).
type versionBlobState struct {
	trigger VersionTrigger
	source  VersionImageSource

	status       ActionStatus
	sourceOpened bool
}

// VersionHandler implements the version-query handler (C8): a uniform,
// read-only, multi-blob surface over trigger/status probes (§4.4).
type VersionHandler struct {
	blobs    map[BlobID]*versionBlobState
	order    []BlobID
	sessions *SessionTable

	// lastErr classifies the most recent boolean failure, for
	// InstrumentedDispatcher to log before collapsing to bool (§7). Reset
	// to nil at the start of every call; never part of the public
	// operation contract.
	lastErr *HandlerError
}

// NewVersionHandler constructs a handler for the given blob id -> trigger
// + source pairs, sharing sessions with the firmware handler so session
// ids stay unique process-wide (I2).
func NewVersionHandler(sessions *SessionTable) *VersionHandler {
	return &VersionHandler{
		blobs:    make(map[BlobID]*versionBlobState),
		sessions: sessions,
	}
}

// LastError returns the HandlerError classifying the most recent boolean
// failure, or nil following a success. Logged, never returned across the
// public API (§7).
func (h *VersionHandler) LastError() *HandlerError { return h.lastErr }

// Register adds a configured version blob id with its trigger/source pair.
// Intended to be called during construction, before the handler is
// exposed to the dispatcher.
func (h *VersionHandler) Register(id BlobID, trigger VersionTrigger, source VersionImageSource) {
	if _, exists := h.blobs[id]; !exists {
		h.order = append(h.order, id)
	}
	h.blobs[id] = &versionBlobState{trigger: trigger, source: source, status: ActionUnknown}
}

// StatusOf returns the last-cached ActionStatus for a configured version
// blob id, without polling its trigger.
func (h *VersionHandler) StatusOf(id BlobID) (ActionStatus, bool) {
	vb, ok := h.blobs[id]
	if !ok {
		return ActionUnknown, false
	}
	return vb.status, true
}

// CanHandleBlob reports whether path is one of the configured version ids.
// Version blobs are always visible; there is no state-gating analogue to
// the firmware catalog's I3/I4.
func (h *VersionHandler) CanHandleBlob(path BlobID) bool {
	_, ok := h.blobs[path]
	return ok
}

// GetBlobIds returns every configured version blob id.
func (h *VersionHandler) GetBlobIds() []BlobID {
	ids := make([]BlobID, len(h.order))
	copy(ids, h.order)
	return ids
}

// StatBlob implements path-level stat for version blobs: size is always
// reported as 0, and the metadata byte carries the cached ActionStatus.
func (h *VersionHandler) StatBlob(path BlobID) (BlobMeta, bool) {
	h.lastErr = nil
	vb, ok := h.blobs[path]
	if !ok {
		h.lastErr = newErr(ErrStructural, "stat", path)
		return BlobMeta{}, false
	}
	return BlobMeta{Size: 0, BlobState: 0, Metadata: []byte{byte(vb.status)}}, true
}

// Open implements open(session, read, blobId) for version blobs (§4.4).
// Only the bare read flag is valid; any other combination, including
// read|write or a transport bit, fails without triggering the probe.
func (h *VersionHandler) Open(session uint16, flags OpenFlags, path BlobID) bool {
	h.lastErr = nil
	vb, ok := h.blobs[path]
	if !ok {
		h.lastErr = newErr(ErrStructural, "open", path)
		return false
	}
	if flags != FlagRead {
		h.lastErr = newErr(ErrStructural, "open", path)
		return false
	}
	if h.sessions.Exists(session) {
		h.lastErr = newErr(ErrStructural, "open", path)
		return false
	}
	if h.sessions.BlobOpen(path) {
		h.lastErr = newErr(ErrStructural, "open", path)
		return false
	}
	if !vb.trigger.Trigger() {
		h.lastErr = newErr(ErrCapability, "open", path)
		return false
	}
	vb.status = ActionUnknown
	vb.sourceOpened = false
	h.sessions.Open(session, path, flags, RoleVersion)
	return true
}

// Read implements read(session, offset, size) for version blobs (§4.4):
// empty while the probe is running or unresolved, empty on failure, and
// the requested slice of the probe's payload on success.
func (h *VersionHandler) Read(session uint16, offset, size uint32) []byte {
	sess, ok := h.sessions.Get(session)
	if !ok {
		return []byte{}
	}
	vb, ok := h.blobs[sess.Blob]
	if !ok {
		return []byte{}
	}

	vb.status = vb.trigger.Status()
	switch vb.status {
	case ActionSuccess:
		if !vb.sourceOpened {
			if !vb.source.Open(sess.Blob) {
				return []byte{}
			}
			vb.sourceOpened = true
		}
		return vb.source.Read(offset, size)
	default:
		return []byte{}
	}
}

// Write, WriteMeta and Commit never succeed against a read-only version
// blob.
func (h *VersionHandler) Write(session uint16, offset uint32, data []byte) bool {
	h.lastErr = newErr(ErrStructural, "write", "")
	return false
}
func (h *VersionHandler) WriteMeta(session uint16, offset uint32, data []byte) bool {
	h.lastErr = newErr(ErrStructural, "writeMeta", "")
	return false
}
func (h *VersionHandler) Commit(session uint16, data []byte) bool {
	h.lastErr = newErr(ErrStructural, "commit", "")
	return false
}

// StatSession implements stat(session, &meta) for version blobs, polling
// the trigger's status (without re-triggering it) and reporting it as the
// single metadata byte.
func (h *VersionHandler) StatSession(session uint16) (BlobMeta, bool) {
	h.lastErr = nil
	sess, ok := h.sessions.Get(session)
	if !ok {
		h.lastErr = newErr(ErrStructural, "statSession", "")
		return BlobMeta{}, false
	}
	vb, ok := h.blobs[sess.Blob]
	if !ok {
		h.lastErr = newErr(ErrStructural, "statSession", sess.Blob)
		return BlobMeta{}, false
	}
	vb.status = vb.trigger.Status()
	return BlobMeta{Size: 0, BlobState: uint16(sess.Flags), Metadata: []byte{byte(vb.status)}}, true
}

// Close implements close(session) for version blobs: releases the
// session and the image source, if one was opened. A subsequent re-open
// re-triggers the probe from scratch.
func (h *VersionHandler) Close(session uint16) bool {
	h.lastErr = nil
	sess, ok := h.sessions.Get(session)
	if !ok {
		h.lastErr = newErr(ErrStructural, "close", "")
		return false
	}
	vb, ok := h.blobs[sess.Blob]
	if ok && vb.sourceOpened {
		vb.source.Close()
		vb.sourceOpened = false
	}
	h.sessions.Remove(session)
	return true
}

// Expire implements expire(session) for version blobs; teardown is
// identical to a cooperative close.
func (h *VersionHandler) Expire(session uint16) bool {
	return h.Close(session)
}

// Delete never succeeds against a version blob; they are not deletable.
func (h *VersionHandler) Delete(path BlobID) bool {
	h.lastErr = newErr(ErrStructural, "delete", path)
	return false
}
