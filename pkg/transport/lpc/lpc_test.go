package lpc

import (
	"errors"
	"testing"

	"github.com/marmos91/blobflashd/pkg/blobsvc"
	"github.com/stretchr/testify/assert"
)

type fakeWindow struct {
	data      []byte
	syncCalls int
	syncErr   error
}

func (w *fakeWindow) WriteAt(offset uint32, data []byte) error {
	end := int(offset) + len(data)
	if end > len(w.data) {
		grown := make([]byte, end)
		copy(grown, w.data)
		w.data = grown
	}
	copy(w.data[offset:end], data)
	return nil
}

func (w *fakeWindow) ReadAt(offset, size uint32) []byte {
	end := int(offset) + int(size)
	if end > len(w.data) {
		end = len(w.data)
	}
	return w.data[offset:end]
}

func (w *fakeWindow) Sync() error {
	w.syncCalls++
	return w.syncErr
}

func TestTransportSupportedBit(t *testing.T) {
	tr := New(&fakeWindow{})
	assert.Equal(t, blobsvc.FlagLPC, tr.SupportedBit())
}

func TestTransportWriteMetaAlwaysFails(t *testing.T) {
	tr := New(&fakeWindow{})
	assert.False(t, tr.WriteMeta(0, []byte("x")))
}

func TestTransportIngestWritesThroughWindow(t *testing.T) {
	win := &fakeWindow{}
	tr := New(win)

	assert.True(t, tr.Ingest(0, []byte("image")))
	assert.Equal(t, []byte("image"), win.ReadAt(0, 5))
}

func TestTransportFinalizeSyncsWindow(t *testing.T) {
	win := &fakeWindow{}
	tr := New(win)

	assert.True(t, tr.Finalize())
	assert.Equal(t, 1, win.syncCalls)
}

func TestTransportFinalizeFailsOnSyncError(t *testing.T) {
	win := &fakeWindow{syncErr: errors.New("device gone")}
	tr := New(win)

	assert.False(t, tr.Finalize())
}
