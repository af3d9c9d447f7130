package blobsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeImageWriter is a hand-written ImageWriter stub; the interface is
// small enough that a generated mock would be overkill.
type fakeImageWriter struct {
	openResult bool
	opened     []BlobID
	writes     [][]byte
	closed     int
}

func (f *fakeImageWriter) Open(blobID BlobID) bool {
	f.opened = append(f.opened, blobID)
	if !f.openResult {
		return false
	}
	return true
}
func (f *fakeImageWriter) Write(offset uint32, data []byte) bool {
	f.writes = append(f.writes, data)
	return true
}
func (f *fakeImageWriter) Close() { f.closed++ }

type fakeVerifier struct {
	triggerResult bool
	states        []VerifyStatus
	pollIndex     int
}

func (f *fakeVerifier) TriggerVerification() bool { return f.triggerResult }
func (f *fakeVerifier) CheckVerificationState() VerifyStatus {
	if f.pollIndex >= len(f.states) {
		return f.states[len(f.states)-1]
	}
	s := f.states[f.pollIndex]
	f.pollIndex++
	return s
}
func (f *fakeVerifier) AbortVerification() {}

type fakeTransport struct {
	bit         OpenFlags
	metaOK      bool
	writeMetaN  int
	ingestN     int
	finalizeN   int
}

func (f *fakeTransport) SupportedBit() OpenFlags { return f.bit }
func (f *fakeTransport) WriteMeta(offset uint32, data []byte) bool {
	f.writeMetaN++
	return f.metaOK
}
func (f *fakeTransport) Ingest(offset uint32, data []byte) bool { f.ingestN++; return true }
func (f *fakeTransport) Finalize() bool                         { f.finalizeN++; return true }

func newTestFirmware(t *testing.T, writerOK, verifierTrigger bool) (*FirmwareHandler, *fakeImageWriter, *fakeVerifier, *SessionTable) {
	t.Helper()
	transports := NewTransportRegistry()
	bt := &fakeTransport{bit: FlagBT, metaOK: false}
	p2a := &fakeTransport{bit: FlagP2A, metaOK: true}
	transports.Register(bt)
	transports.Register(p2a)

	sessions := NewSessionTable()
	writer := &fakeImageWriter{openResult: writerOK}
	verifier := &fakeVerifier{triggerResult: verifierTrigger, states: []VerifyStatus{VerifyOther}}

	h := NewFirmwareHandler([]BlobID{ImageBlobID}, HashBlobID, transports, sessions, writer, verifier)
	return h, writer, verifier, sessions
}

func TestCatalogAtStartHasOnlyUploadAndHashTargets(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	assert.False(t, h.CanHandleBlob(VerifyBlobID))
	assert.True(t, h.CanHandleBlob(ImageBlobID))
	assert.True(t, h.CanHandleBlob(HashBlobID))
	assert.False(t, h.CanHandleBlob(ActiveImageID))
}

// S4: after open/close against the upload target, getBlobIds contains
// exactly {image, hash, verify, active/image}.
func TestVisibleBlobsAfterFirstUploadCycle(t *testing.T) {
	h, writer, _, _ := newTestFirmware(t, true, true)

	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	assert.Equal(t, StateUploadInProgress, h.State())
	assert.True(t, h.Close(1))
	assert.Equal(t, StateVerificationPending, h.State())
	assert.Equal(t, 1, writer.closed)

	ids := h.GetBlobIds()
	assert.ElementsMatch(t, []BlobID{ImageBlobID, HashBlobID, VerifyBlobID, ActiveImageID}, ids)
}

// S6: stat on Active* blobs is always denied; stat on a normal blob
// reports size 0 and the offered transport mask.
func TestStatDeniedForActiveBlobs(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	require.True(t, h.Close(1))

	_, ok := h.StatBlob(ActiveImageID)
	assert.False(t, ok)

	meta, ok := h.StatBlob(ImageBlobID)
	require.True(t, ok)
	assert.Equal(t, uint32(0), meta.Size)
	assert.Equal(t, uint16(FlagBT|FlagP2A), meta.BlobState)
}

func TestStatDeniedForVerifyAndHashActive(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	require.True(t, h.Open(1, FlagWrite|FlagBT, HashBlobID))
	require.True(t, h.Close(1))

	_, ok := h.StatBlob(ActiveHashID)
	assert.False(t, ok)
	_, ok = h.StatBlob(VerifyBlobID)
	assert.False(t, ok)
}

func TestOpenActiveBlobsAlwaysFails(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	require.True(t, h.Close(1))

	assert.False(t, h.Open(2, FlagRead|FlagBT, ActiveImageID))
	assert.False(t, h.Open(2, FlagRead|FlagBT, ActiveHashID))
}

func TestOpenRejectsBadFlags(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	// no transport bit
	assert.False(t, h.Open(1, FlagWrite, ImageBlobID))
	// two transport bits
	assert.False(t, h.Open(1, FlagWrite|FlagBT|FlagP2A, ImageBlobID))
	// transport not configured
	assert.False(t, h.Open(1, FlagWrite|FlagLPC, ImageBlobID))
	// unknown stray bit
	assert.False(t, h.Open(1, FlagWrite|FlagBT|(1<<4), ImageBlobID))
}

// I1: at most one session open against a blob at a time.
func TestBlobAlreadyOpenFails(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	assert.False(t, h.Open(2, FlagWrite|FlagBT, ImageBlobID))
}

// I2: session ids are unique across all open sessions.
func TestDuplicateSessionIDFails(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	assert.False(t, h.Open(1, FlagWrite|FlagBT, HashBlobID))
}

func TestUploadInProgressAllowsOnlySameTarget(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	// different target denied while one is mid-upload
	assert.False(t, h.Open(2, FlagWrite|FlagBT, HashBlobID))
}

func TestReopenFromVerificationPendingReturnsToUploadInProgress(t *testing.T) {
	h, writer, _, _ := newTestFirmware(t, true, true)
	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	require.True(t, h.Close(1))
	require.Equal(t, StateVerificationPending, h.State())

	require.True(t, h.Open(2, FlagWrite|FlagBT, ImageBlobID))
	assert.Equal(t, StateUploadInProgress, h.State())
	assert.False(t, h.CanHandleBlob(VerifyBlobID), "verify hidden once back in uploadInProgress")
	assert.Len(t, writer.opened, 2)
}

func TestReopenDifferentTargetFromVerificationPendingDenied(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	require.True(t, h.Close(1))
	assert.False(t, h.Open(2, FlagWrite|FlagBT, HashBlobID))
}

func TestReopenUploadTargetDeniedWhileVerifySessionOpen(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	require.True(t, h.Close(1))
	require.True(t, h.Open(2, FlagWrite|FlagBT, VerifyBlobID))

	assert.False(t, h.Open(3, FlagWrite|FlagBT, ImageBlobID))
	assert.Equal(t, StateVerificationPending, h.State())
}

// S5: commit triggers verification; stat reflects "other" before commit
// and the polled value after.
func TestCommitTriggersVerificationAndTransitions(t *testing.T) {
	h, _, verifier, _ := newTestFirmware(t, true, true)
	verifier.states = []VerifyStatus{VerifyRunning, VerifySuccess}

	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	require.True(t, h.Close(1))
	require.True(t, h.Open(2, FlagWrite|FlagBT, VerifyBlobID))

	meta, ok := h.StatSession(2)
	require.True(t, ok)
	assert.Equal(t, []byte{byte(VerifyOther)}, meta.Metadata)

	require.True(t, h.Commit(2, nil))
	assert.Equal(t, StateVerificationStarted, h.State())

	meta, ok = h.StatSession(2)
	require.True(t, ok)
	assert.Equal(t, []byte{byte(VerifyRunning)}, meta.Metadata)
	assert.Equal(t, StateVerificationStarted, h.State())

	meta, ok = h.StatSession(2)
	require.True(t, ok)
	assert.Equal(t, []byte{byte(VerifySuccess)}, meta.Metadata)
	assert.Equal(t, StateVerificationCompleted, h.State())
}

func TestFailedCommitIsRetryable(t *testing.T) {
	h, _, verifier, _ := newTestFirmware(t, true, false)
	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	require.True(t, h.Close(1))
	require.True(t, h.Open(2, FlagWrite|FlagBT, VerifyBlobID))

	assert.False(t, h.Commit(2, nil))
	assert.Equal(t, StateVerificationPending, h.State())

	verifier.triggerResult = true
	assert.True(t, h.Commit(2, nil))
	assert.Equal(t, StateVerificationStarted, h.State())
}

func TestClosingVerifyWithoutCommitDoesNotChangeState(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	require.True(t, h.Close(1))
	require.True(t, h.Open(2, FlagWrite|FlagBT, VerifyBlobID))
	require.True(t, h.Close(2))
	assert.Equal(t, StateVerificationPending, h.State())
}

func TestSuccessfulVerificationReachesUpdateCompleted(t *testing.T) {
	h, _, verifier, _ := newTestFirmware(t, true, true)
	verifier.states = []VerifyStatus{VerifySuccess}

	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	require.True(t, h.Close(1))
	require.True(t, h.Open(2, FlagWrite|FlagBT, VerifyBlobID))
	require.True(t, h.Commit(2, nil))

	_, ok := h.StatSession(2)
	require.True(t, ok)
	assert.Equal(t, StateVerificationCompleted, h.State())

	require.True(t, h.Close(2))
	assert.Equal(t, StateUpdateCompleted, h.State())
}

func TestFailedVerificationResetsToNotYetStarted(t *testing.T) {
	h, _, verifier, _ := newTestFirmware(t, true, true)
	verifier.states = []VerifyStatus{VerifyFailed}

	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	require.True(t, h.Close(1))
	require.True(t, h.Open(2, FlagWrite|FlagBT, VerifyBlobID))
	require.True(t, h.Commit(2, nil))

	_, ok := h.StatSession(2)
	require.True(t, ok)
	require.True(t, h.Close(2))

	assert.Equal(t, StateNotYetStarted, h.State())
	// Active markers persist as history even after a reset.
	assert.True(t, h.CanHandleBlob(ActiveImageID))
}

func TestWriteAndWriteMetaDeniedAgainstVerify(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	require.True(t, h.Close(1))
	require.True(t, h.Open(2, FlagWrite|FlagBT, VerifyBlobID))

	assert.False(t, h.Write(2, 0, []byte{1, 2}))
	assert.False(t, h.WriteMeta(2, 0, []byte{1, 2}))
	assert.Empty(t, h.Read(2, 0, 1))
}

func TestWriteMetaForwardsToTransport(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	require.True(t, h.Open(1, FlagWrite|FlagP2A, ImageBlobID))
	assert.True(t, h.WriteMeta(1, 0, []byte{9}))
}

func TestWriteMetaFailsWhenTransportHasNoMetadataChannel(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	assert.False(t, h.WriteMeta(1, 0, []byte{9}))
}

func TestDeleteAlwaysFalse(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	assert.False(t, h.Delete(ImageBlobID))
}

func TestExpireBehavesLikeClose(t *testing.T) {
	h, writer, _, _ := newTestFirmware(t, true, true)
	require.True(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	assert.True(t, h.Expire(1))
	assert.Equal(t, StateVerificationPending, h.State())
	assert.Equal(t, 1, writer.closed)
}

func TestOpenFailsWhenImageWriterRejects(t *testing.T) {
	h, _, _, sessions := newTestFirmware(t, false, true)
	assert.False(t, h.Open(1, FlagWrite|FlagBT, ImageBlobID))
	assert.Equal(t, StateNotYetStarted, h.State())
	assert.False(t, sessions.Exists(1))
}

func TestCloseUnknownSessionFails(t *testing.T) {
	h, _, _, _ := newTestFirmware(t, true, true)
	assert.False(t, h.Close(99))
}
