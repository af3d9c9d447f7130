package p2a

import (
	"testing"

	"github.com/marmos91/blobflashd/pkg/blobsvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWindow struct {
	data []byte
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

func TestTransportSupportedBit(t *testing.T) {
	tr := New(&fakeWindow{})
	assert.Equal(t, blobsvc.FlagP2A, tr.SupportedBit())
}

func TestTransportIngestWritesThroughWindow(t *testing.T) {
	win := &fakeWindow{}
	tr := New(win)

	require.True(t, tr.Ingest(0, []byte("firmware-bytes")))
	assert.Equal(t, []byte("firmware-bytes"), win.ReadAt(0, 14))
}

func TestTransportWriteMetaStagesSeparatelyFromWindow(t *testing.T) {
	win := &fakeWindow{}
	tr := New(win)

	require.True(t, tr.Ingest(0, []byte("payload")))
	require.True(t, tr.WriteMeta(0, []byte{0xDE, 0xAD, 0xBE, 0xEF}))

	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, tr.Meta())
	assert.Equal(t, []byte("payload"), win.ReadAt(0, 7))
}

func TestTransportFinalizeAlwaysSucceeds(t *testing.T) {
	tr := New(&fakeWindow{})
	assert.True(t, tr.Finalize())
}
