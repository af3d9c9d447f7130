package blobsvc

// ImageWriter is the per-blob sink for upload bytes (§6). The FSM calls
// Open on the upload-target open transition and Close on the close
// transition into verificationPending.
type ImageWriter interface {
	Open(blobID BlobID) bool
	Write(offset uint32, data []byte) bool
	Close()
}

// VerificationTrigger starts verification and exposes a pollable status
// (§6). TriggerVerification is called from commit(Verify); the status is
// polled from stat(session).
type VerificationTrigger interface {
	TriggerVerification() bool
	CheckVerificationState() VerifyStatus
	AbortVerification()
}

// VersionTrigger starts an asynchronous version probe (§6).
type VersionTrigger interface {
	Trigger() bool
	Status() ActionStatus
	Abort()
}

// VersionImageSource exposes the readable payload a VersionTrigger
// produces once it reports success (§6).
type VersionImageSource interface {
	Open(blobID BlobID) bool
	Read(offset, size uint32) []byte
	Close()
}

// DataTransport is the bulk-data path a session negotiates via its open
// flags (§6). SupportedBit identifies which single transport bit this
// implementation serves.
type DataTransport interface {
	SupportedBit() OpenFlags
	WriteMeta(offset uint32, data []byte) bool
	Ingest(offset uint32, data []byte) bool
	Finalize() bool
}

// Facade is the full blob operation set (§4.1), satisfied by Dispatcher,
// InstrumentedDispatcher, and pkg/audit.RecordingDispatcher. Callers that
// only need to drive blob operations (cmd/blobctl) should
// depend on this instead of a concrete dispatcher type, so wiring can
// layer instrumentation and audit recording without the caller noticing.
type Facade interface {
	CanHandleBlob(path BlobID) bool
	GetBlobIds() []BlobID
	StatBlob(path BlobID) (BlobMeta, bool)
	Open(session uint16, flags OpenFlags, path BlobID) bool
	Read(session uint16, offset, size uint32) []byte
	Write(session uint16, offset uint32, data []byte) bool
	WriteMeta(session uint16, offset uint32, data []byte) bool
	Commit(session uint16, data []byte) bool
	StatSession(session uint16) (BlobMeta, bool)
	Close(session uint16) bool
	Expire(session uint16) bool
	Delete(path BlobID) bool
}

// TransportRegistry maps a transport bit to the DataTransport capability
// that serves it (C1). Only transports actually registered are
// considered "configured" for the purposes of I6.
type TransportRegistry struct {
	byBit map[OpenFlags]DataTransport
}

// NewTransportRegistry returns an empty registry.
func NewTransportRegistry() *TransportRegistry {
	return &TransportRegistry{byBit: make(map[OpenFlags]DataTransport)}
}

// Register associates t with its supported transport bit, overwriting any
// prior registration for that bit.
func (r *TransportRegistry) Register(t DataTransport) {
	r.byBit[t.SupportedBit()] = t
}

// Get returns the transport registered for bit, if any.
func (r *TransportRegistry) Get(bit OpenFlags) (DataTransport, bool) {
	t, ok := r.byBit[bit]
	return t, ok
}

// Mask ORs together every registered transport bit; this is the
// "configured transport mask" referenced throughout §4.
func (r *TransportRegistry) Mask() OpenFlags {
	var mask OpenFlags
	for bit := range r.byBit {
		mask |= bit
	}
	return mask
}
