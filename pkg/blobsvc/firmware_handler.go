package blobsvc

// FirmwareHandler implements the firmware update state machine (C7) and
// the firmware side of the blob operation contract (§4.1, §4.3).
//
// It holds the single process-wide UpdateState instance (§3); there is
// exactly one FirmwareHandler per process, constructed once and driven by
// the single-threaded dispatch loop, so none of its methods take a lock
// (§5, §9 "avoid ambient singletons" is satisfied by making this an owned
// value rather than a package-level global).
type FirmwareHandler struct {
	catalog    *catalog
	transports *TransportRegistry
	sessions   *SessionTable
	imageWriter ImageWriter
	verifier    VerificationTrigger

	state UpdateState

	// currentUploadTarget is the blob id mid-upload, or the one most
	// recently uploaded while awaiting/undergoing verification. Empty
	// before the first upload starts.
	currentUploadTarget BlobID

	activeImagePresent bool
	activeHashPresent  bool

	// lastVerifyStatus caches the terminal VerifyStatus observed by
	// stat(session) so that a later stat (e.g. after the transition to
	// verificationCompleted, or on close) can be answered without
	// re-polling the trigger.
	lastVerifyStatus VerifyStatus

	// lastErr classifies the most recent boolean failure, for
	// InstrumentedDispatcher to log before collapsing to bool (§7). Reset
	// to nil at the start of every call; never part of the public
	// operation contract.
	lastErr *HandlerError
}

// NewFirmwareHandler constructs the handler in state notYetStarted.
// uploadTargets lists every blob id of kind UploadTarget (e.g.
// "/flash/image", "/flash/tarball"); hashTarget is the single HashTarget
// blob id ("/flash/hash"), or "" if none is configured.
func NewFirmwareHandler(uploadTargets []BlobID, hashTarget BlobID, transports *TransportRegistry, sessions *SessionTable, writer ImageWriter, verifier VerificationTrigger) *FirmwareHandler {
	return &FirmwareHandler{
		catalog:     newCatalog(uploadTargets, hashTarget),
		transports:  transports,
		sessions:    sessions,
		imageWriter: writer,
		verifier:    verifier,
		state:       StateNotYetStarted,
	}
}

// State returns the current UpdateState, for status reporting.
func (h *FirmwareHandler) State() UpdateState { return h.state }

// LastError returns the HandlerError classifying the most recent boolean
// failure, or nil following a success. Logged, never returned across the
// public API (§7).
func (h *FirmwareHandler) LastError() *HandlerError { return h.lastErr }

// CurrentUploadTarget returns the blob id mid-upload, or the one most
// recently uploaded while awaiting/undergoing verification. Empty before
// the first upload starts.
func (h *FirmwareHandler) CurrentUploadTarget() BlobID { return h.currentUploadTarget }

// CanHandleBlob reports whether path is currently visible (§4.1).
func (h *FirmwareHandler) CanHandleBlob(path BlobID) bool {
	return h.catalog.contains(h.state, h.activeImagePresent, h.activeHashPresent, path)
}

// GetBlobIds returns the catalog snapshot at the current state (§4.2).
func (h *FirmwareHandler) GetBlobIds() []BlobID {
	return h.catalog.snapshot(h.state, h.activeImagePresent, h.activeHashPresent)
}

// StatBlob implements path-level stat (§4.1). ActiveImage, ActiveHash and
// Verify never succeed at this granularity; UploadTarget/HashTarget report
// size 0 and the transports on offer.
func (h *FirmwareHandler) StatBlob(path BlobID) (BlobMeta, bool) {
	h.lastErr = nil
	if !h.CanHandleBlob(path) {
		h.lastErr = newErr(ErrStructural, "stat", path)
		return BlobMeta{}, false
	}
	switch h.catalog.kindOf(path) {
	case KindUploadTarget, KindHashTarget:
		state := uint16(h.transports.Mask())
		if sid, open := h.sessions.byBlob[path]; open {
			if s, ok := h.sessions.Get(sid); ok {
				state = uint16(s.Flags)
			}
		}
		return BlobMeta{Size: 0, BlobState: state}, true
	default:
		// Verify, ActiveImage, ActiveHash: never answer a path-level stat.
		h.lastErr = newErr(ErrStructural, "stat", path)
		return BlobMeta{}, false
	}
}

// validateOpenFlags checks the structural rules from §6 for a firmware
// (non-version) blob: exactly one transport bit, drawn from the
// configured mask, plus known low bits only.
func (h *FirmwareHandler) validateOpenFlags(flags OpenFlags) bool {
	if !flags.hasOnlyKnownBits() {
		return false
	}
	if !flags.hasExactlyOneTransport() {
		return false
	}
	if flags.TransportBit()&h.transports.Mask() == 0 {
		return false
	}
	return true
}

// canOpenUploadTarget reports whether an UploadTarget/HashTarget open is
// admissible per the §4.3 matrix.
func (h *FirmwareHandler) canOpenUploadTarget(path BlobID) bool {
	switch h.state {
	case StateNotYetStarted:
		return true
	case StateUploadInProgress:
		return path == h.currentUploadTarget
	case StateVerificationPending:
		if path != h.currentUploadTarget {
			return false
		}
		// Resolves the open question of whether re-entering
		// uploadInProgress aborts an in-flight Verify session: it does
		// not abort anything, it is simply refused while a Verify
		// session is open, so the Verify session is never orphaned.
		return !h.sessions.BlobOpen(VerifyBlobID)
	default:
		return false
	}
}

// Open implements open(session, flags, path) for firmware blobs (§4.1).
func (h *FirmwareHandler) Open(session uint16, flags OpenFlags, path BlobID) bool {
	h.lastErr = nil
	if !h.CanHandleBlob(path) {
		h.lastErr = newErr(ErrStructural, "open", path)
		return false
	}
	kind := h.catalog.kindOf(path)
	if kind == KindActiveImage || kind == KindActiveHash {
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
	if !h.validateOpenFlags(flags) {
		h.lastErr = newErr(ErrStructural, "open", path)
		return false
	}

	switch kind {
	case KindUploadTarget, KindHashTarget:
		if !h.canOpenUploadTarget(path) {
			h.lastErr = newErr(ErrState, "open", path)
			return false
		}
		if !h.imageWriter.Open(path) {
			h.lastErr = newErr(ErrCapability, "open", path)
			return false
		}
		role := RoleUpload
		if kind == KindHashTarget {
			role = RoleHash
		}
		h.sessions.Open(session, path, flags, role)
		h.currentUploadTarget = path
		h.state = StateUploadInProgress
		if kind == KindUploadTarget {
			h.activeImagePresent = true
		} else {
			h.activeHashPresent = true
		}
		return true

	case KindVerify:
		switch h.state {
		case StateVerificationPending, StateVerificationCompleted:
			h.sessions.Open(session, path, flags, RoleVerify)
			return true
		default:
			h.lastErr = newErr(ErrState, "open", path)
			return false
		}
	}
	h.lastErr = newErr(ErrStructural, "open", path)
	return false
}

// Read implements read(session, offset, size) for firmware blobs (§4.1).
// Upload/hash sessions have no defined read payload (they are write-only
// sinks); Verify sessions never return bytes.
func (h *FirmwareHandler) Read(session uint16, offset, size uint32) []byte {
	sess, ok := h.sessions.Get(session)
	if !ok || !sess.Flags.HasRead() {
		return []byte{}
	}
	return []byte{}
}

// Write implements write(session, offset, data) for firmware blobs (§4.1).
func (h *FirmwareHandler) Write(session uint16, offset uint32, data []byte) bool {
	h.lastErr = nil
	sess, ok := h.sessions.Get(session)
	if !ok {
		h.lastErr = newErr(ErrStructural, "write", "")
		return false
	}
	if sess.Role != RoleUpload && sess.Role != RoleHash {
		h.lastErr = newErr(ErrState, "write", sess.Blob)
		return false
	}
	if !sess.Flags.HasWrite() {
		h.lastErr = newErr(ErrStructural, "write", sess.Blob)
		return false
	}
	if !h.imageWriter.Write(offset, data) {
		h.lastErr = newErr(ErrCapability, "write", sess.Blob)
		return false
	}
	return true
}

// WriteMeta implements writeMeta(session, offset, data) for firmware
// blobs (§4.1). Forwarded to the session's chosen transport; rejected for
// Verify sessions and for transports with no metadata channel.
func (h *FirmwareHandler) WriteMeta(session uint16, offset uint32, data []byte) bool {
	h.lastErr = nil
	sess, ok := h.sessions.Get(session)
	if !ok {
		h.lastErr = newErr(ErrStructural, "writeMeta", "")
		return false
	}
	if sess.Role != RoleUpload && sess.Role != RoleHash {
		h.lastErr = newErr(ErrState, "writeMeta", sess.Blob)
		return false
	}
	transport, ok := h.transports.Get(sess.Flags.TransportBit())
	if !ok {
		h.lastErr = newErr(ErrStructural, "writeMeta", sess.Blob)
		return false
	}
	if !transport.WriteMeta(offset, data) {
		h.lastErr = newErr(ErrCapability, "writeMeta", sess.Blob)
		return false
	}
	return true
}

// Commit implements commit(session, data) for firmware blobs (§4.1). Only
// meaningful for Verify sessions in verificationPending.
func (h *FirmwareHandler) Commit(session uint16, data []byte) bool {
	h.lastErr = nil
	sess, ok := h.sessions.Get(session)
	if !ok || sess.Role != RoleVerify {
		h.lastErr = newErr(ErrStructural, "commit", "")
		return false
	}
	if h.state != StateVerificationPending {
		h.lastErr = newErr(ErrState, "commit", sess.Blob)
		return false
	}
	if !h.verifier.TriggerVerification() {
		// Retryable: state unchanged, commit() may be called again.
		h.lastErr = newErr(ErrCapability, "commit", sess.Blob)
		return false
	}
	h.state = StateVerificationStarted
	return true
}

// StatSession implements stat(session, &meta) for firmware blobs (§4.1).
// Only Verify sessions carry special polling behavior; other roles report
// their open flags with no metadata payload.
func (h *FirmwareHandler) StatSession(session uint16) (BlobMeta, bool) {
	h.lastErr = nil
	sess, ok := h.sessions.Get(session)
	if !ok {
		h.lastErr = newErr(ErrStructural, "statSession", "")
		return BlobMeta{}, false
	}
	if sess.Role != RoleVerify {
		return BlobMeta{Size: 0, BlobState: uint16(sess.Flags)}, true
	}

	meta := BlobMeta{Size: 0, BlobState: uint16(sess.Flags)}
	if h.state == StateVerificationPending {
		meta.Metadata = []byte{byte(VerifyOther)}
		return meta, true
	}

	status := h.lastVerifyStatus
	if h.state == StateVerificationStarted {
		status = h.verifier.CheckVerificationState()
		h.lastVerifyStatus = status
		if status == VerifySuccess || status == VerifyFailed {
			h.state = StateVerificationCompleted
		}
	}
	meta.Metadata = []byte{byte(status)}
	return meta, true
}

// Close implements close(session) for firmware blobs (§4.1).
func (h *FirmwareHandler) Close(session uint16) bool {
	h.lastErr = nil
	sess, ok := h.sessions.Get(session)
	if !ok {
		h.lastErr = newErr(ErrStructural, "close", "")
		return false
	}
	h.sessions.Remove(session)

	switch sess.Role {
	case RoleUpload, RoleHash:
		h.imageWriter.Close()
		h.state = StateVerificationPending

	case RoleVerify:
		switch h.state {
		case StateVerificationPending:
			// Closing without commit does not change state.
		case StateVerificationStarted:
			// Verification not yet observed complete via stat(session);
			// close is a teardown only and the state stays
			// verificationStarted. Open admits a Verify session only in
			// verificationPending and verificationCompleted, so no later
			// session polls the verifier from this state.
		case StateVerificationCompleted:
			if h.lastVerifyStatus == VerifySuccess {
				h.state = StateUpdateCompleted
			} else {
				h.reset()
			}
		}
	}
	return true
}

// Expire implements expire(session) for firmware blobs (§4.1). The
// timeout layer calls this instead of close when the peer is
// unreachable; teardown is identical to a cooperative close.
func (h *FirmwareHandler) Expire(session uint16) bool {
	return h.Close(session)
}

// Delete implements delete(path). The source this handler is modeled on
// leaves delete's semantics in verificationPending/verificationCompleted
// as a TODO (§9); until that is resolved, delete never succeeds and never
// mutates state.
//
// TODO: implement once delete's interaction with an in-progress or
// completed verification is specified.
func (h *FirmwareHandler) Delete(path BlobID) bool {
	h.lastErr = newErr(ErrStructural, "delete", path)
	return false
}

// reset returns the FSM to notYetStarted after a failed verification is
// closed out. Active markers are not cleared: I3 only requires that they
// appear once an upload has been in progress, not that they disappear
// again, so ActiveImage/ActiveHash remain visible as history of what was
// attempted.
func (h *FirmwareHandler) reset() {
	h.state = StateNotYetStarted
	h.currentUploadTarget = ""
	h.lastVerifyStatus = VerifyOther
}
