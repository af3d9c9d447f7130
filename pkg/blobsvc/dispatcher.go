package blobsvc

// Dispatcher is the public blob operation facade (C9): it routes each
// operation to the firmware handler or the version handler, and owns the
// cross-cutting checks that apply regardless of which handler serves a
// given blob (principally session-id uniqueness, since I2 is a
// process-wide invariant, not a per-handler one).
//
// Dispatcher is the type external callers (the IPMI/OEM framing layer,
// out of scope per §1) hold; FirmwareHandler and VersionHandler are
// implementation details reachable only through it.
type Dispatcher struct {
	firmware *FirmwareHandler
	version  *VersionHandler
	sessions *SessionTable

	// lastErr classifies the most recent boolean failure, carried over
	// from whichever handler served the call (or set directly for
	// dispatcher-level rejections such as an unroutable path or a
	// duplicate session id). See FirmwareHandler.lastErr.
	lastErr *HandlerError
}

// NewDispatcher wires a firmware handler and a version handler over a
// shared session table.
func NewDispatcher(firmware *FirmwareHandler, version *VersionHandler, sessions *SessionTable) *Dispatcher {
	return &Dispatcher{firmware: firmware, version: version, sessions: sessions}
}

// Firmware exposes the underlying firmware handler for status reporting
// (current UpdateState, catalog) without widening the operation surface.
func (d *Dispatcher) Firmware() *FirmwareHandler { return d.firmware }

// Version exposes the underlying version handler for status reporting.
func (d *Dispatcher) Version() *VersionHandler { return d.version }

// LastError returns the HandlerError classifying the most recent boolean
// failure, carried over from whichever handler served the call. Logged,
// never returned across the public API (§7).
func (d *Dispatcher) LastError() *HandlerError { return d.lastErr }

// CanHandleBlob implements canHandleBlob(path) (§4.1).
func (d *Dispatcher) CanHandleBlob(path BlobID) bool {
	return d.firmware.CanHandleBlob(path) || d.version.CanHandleBlob(path)
}

// GetBlobIds implements getBlobIds() (§4.1): the union of both handlers'
// catalogs.
func (d *Dispatcher) GetBlobIds() []BlobID {
	ids := d.firmware.GetBlobIds()
	return append(ids, d.version.GetBlobIds()...)
}

// StatBlob implements stat(path, &meta) (§4.1).
func (d *Dispatcher) StatBlob(path BlobID) (BlobMeta, bool) {
	d.lastErr = nil
	if d.firmware.CanHandleBlob(path) {
		meta, ok := d.firmware.StatBlob(path)
		d.lastErr = d.firmware.LastError()
		return meta, ok
	}
	if d.version.CanHandleBlob(path) {
		meta, ok := d.version.StatBlob(path)
		d.lastErr = d.version.LastError()
		return meta, ok
	}
	d.lastErr = newErr(ErrStructural, "stat", path)
	return BlobMeta{}, false
}

// Open implements open(session, flags, path) (§4.1). Session-id
// uniqueness (I2) is enforced here across both handlers before either one
// is given a chance to register the session.
func (d *Dispatcher) Open(session uint16, flags OpenFlags, path BlobID) bool {
	d.lastErr = nil
	if d.sessions.Exists(session) {
		d.lastErr = newErr(ErrStructural, "open", path)
		return false
	}
	if d.firmware.CanHandleBlob(path) {
		ok := d.firmware.Open(session, flags, path)
		d.lastErr = d.firmware.LastError()
		return ok
	}
	if d.version.CanHandleBlob(path) {
		ok := d.version.Open(session, flags, path)
		d.lastErr = d.version.LastError()
		return ok
	}
	d.lastErr = newErr(ErrStructural, "open", path)
	return false
}

// handlerFor routes an established session to its owning handler by role,
// not by blob id, so it still works for ids that have since left the
// firmware catalog (e.g. Verify mid-commit).
func (d *Dispatcher) handlerFor(session uint16) (owner interface {
	Read(uint16, uint32, uint32) []byte
	Write(uint16, uint32, []byte) bool
	WriteMeta(uint16, uint32, []byte) bool
	Commit(uint16, []byte) bool
	StatSession(uint16) (BlobMeta, bool)
	Close(uint16) bool
	Expire(uint16) bool
	Delete(BlobID) bool
	LastError() *HandlerError
}, ok bool) {
	sess, ok := d.sessions.Get(session)
	if !ok {
		return nil, false
	}
	if sess.Role == RoleVersion {
		return d.version, true
	}
	return d.firmware, true
}

// Read implements read(session, offset, size) (§4.1).
func (d *Dispatcher) Read(session uint16, offset, size uint32) []byte {
	h, ok := d.handlerFor(session)
	if !ok {
		return []byte{}
	}
	return h.Read(session, offset, size)
}

// Write implements write(session, offset, data) (§4.1).
func (d *Dispatcher) Write(session uint16, offset uint32, data []byte) bool {
	d.lastErr = nil
	h, ok := d.handlerFor(session)
	if !ok {
		d.lastErr = newErr(ErrStructural, "write", "")
		return false
	}
	result := h.Write(session, offset, data)
	d.lastErr = h.LastError()
	return result
}

// WriteMeta implements writeMeta(session, offset, data) (§4.1).
func (d *Dispatcher) WriteMeta(session uint16, offset uint32, data []byte) bool {
	d.lastErr = nil
	h, ok := d.handlerFor(session)
	if !ok {
		d.lastErr = newErr(ErrStructural, "writeMeta", "")
		return false
	}
	result := h.WriteMeta(session, offset, data)
	d.lastErr = h.LastError()
	return result
}

// Commit implements commit(session, data) (§4.1).
func (d *Dispatcher) Commit(session uint16, data []byte) bool {
	d.lastErr = nil
	h, ok := d.handlerFor(session)
	if !ok {
		d.lastErr = newErr(ErrStructural, "commit", "")
		return false
	}
	result := h.Commit(session, data)
	d.lastErr = h.LastError()
	return result
}

// StatSession implements stat(session, &meta) (§4.1).
func (d *Dispatcher) StatSession(session uint16) (BlobMeta, bool) {
	d.lastErr = nil
	h, ok := d.handlerFor(session)
	if !ok {
		d.lastErr = newErr(ErrStructural, "statSession", "")
		return BlobMeta{}, false
	}
	meta, result := h.StatSession(session)
	d.lastErr = h.LastError()
	return meta, result
}

// Close implements close(session) (§4.1).
func (d *Dispatcher) Close(session uint16) bool {
	d.lastErr = nil
	h, ok := d.handlerFor(session)
	if !ok {
		d.lastErr = newErr(ErrStructural, "close", "")
		return false
	}
	result := h.Close(session)
	d.lastErr = h.LastError()
	return result
}

// Expire implements expire(session) (§4.1).
func (d *Dispatcher) Expire(session uint16) bool {
	d.lastErr = nil
	h, ok := d.handlerFor(session)
	if !ok {
		d.lastErr = newErr(ErrStructural, "expire", "")
		return false
	}
	result := h.Expire(session)
	d.lastErr = h.LastError()
	return result
}

// Delete implements delete(path) (§4.1); see FirmwareHandler.Delete for
// why this never succeeds yet.
func (d *Dispatcher) Delete(path BlobID) bool {
	d.lastErr = nil
	if d.firmware.CanHandleBlob(path) {
		ok := d.firmware.Delete(path)
		d.lastErr = d.firmware.LastError()
		return ok
	}
	if d.version.CanHandleBlob(path) {
		ok := d.version.Delete(path)
		d.lastErr = d.version.LastError()
		return ok
	}
	d.lastErr = newErr(ErrStructural, "delete", path)
	return false
}
