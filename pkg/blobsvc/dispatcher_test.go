package blobsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeImageWriter, *fakeVerifier) {
	t.Helper()
	transports := NewTransportRegistry()
	transports.Register(&fakeTransport{bit: FlagBT, metaOK: false})
	sessions := NewSessionTable()

	writer := &fakeImageWriter{openResult: true}
	verifier := &fakeVerifier{triggerResult: true, states: []VerifyStatus{VerifySuccess}}
	firmware := NewFirmwareHandler([]BlobID{ImageBlobID}, HashBlobID, transports, sessions, writer, verifier)

	version := NewVersionHandler(sessions)
	version.Register("version0", &fakeTrigger{triggerResults: []bool{true}, status: ActionSuccess}, &fakeSource{payload: []byte("v1.0")})

	return NewDispatcher(firmware, version, sessions), writer, verifier
}

func TestDispatcherSessionIDUniqueAcrossHandlers(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	require.True(t, d.Open(1, FlagRead, "version0"))
	// same session id, different (firmware) blob: must fail even though
	// the firmware handler has never seen id 1.
	assert.False(t, d.Open(1, FlagWrite|FlagBT, ImageBlobID))
}

func TestDispatcherRoutesByBlobNamespace(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	assert.True(t, d.CanHandleBlob(ImageBlobID))
	assert.True(t, d.CanHandleBlob("version0"))
	assert.False(t, d.CanHandleBlob("/flash/nope"))

	ids := d.GetBlobIds()
	assert.Contains(t, ids, ImageBlobID)
	assert.Contains(t, ids, BlobID("version0"))
}

func TestDispatcherFullFirmwareCycleThroughFacade(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	require.True(t, d.Open(1, FlagWrite|FlagBT, ImageBlobID))
	require.True(t, d.Write(1, 0, []byte("firmware-bytes")))
	require.True(t, d.Close(1))
	assert.Equal(t, StateVerificationPending, d.Firmware().State())

	require.True(t, d.Open(2, FlagWrite|FlagBT, VerifyBlobID))
	require.True(t, d.Commit(2, nil))
	meta, ok := d.StatSession(2)
	require.True(t, ok)
	assert.Equal(t, []byte{byte(VerifySuccess)}, meta.Metadata)
	require.True(t, d.Close(2))
	assert.Equal(t, StateUpdateCompleted, d.Firmware().State())
}

func TestDispatcherVersionReadThroughFacade(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	require.True(t, d.Open(5, FlagRead, "version0"))
	assert.Equal(t, []byte("v1.0"), d.Read(5, 0, 10))
	require.True(t, d.Close(5))
}

func TestDispatcherUnknownSessionOperationsFail(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	assert.Empty(t, d.Read(42, 0, 1))
	assert.False(t, d.Write(42, 0, nil))
	assert.False(t, d.WriteMeta(42, 0, nil))
	assert.False(t, d.Commit(42, nil))
	assert.False(t, d.Close(42))
	assert.False(t, d.Expire(42))
	_, ok := d.StatSession(42)
	assert.False(t, ok)
}

func TestDispatcherDeleteRoutesAndAlwaysFails(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	assert.False(t, d.Delete(ImageBlobID))
	assert.False(t, d.Delete("version0"))
	assert.False(t, d.Delete("/flash/nope"))
}
