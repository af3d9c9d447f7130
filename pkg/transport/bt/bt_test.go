package bt

import (
	"testing"

	"github.com/marmos91/blobflashd/pkg/blobsvc"
	"github.com/stretchr/testify/assert"
)

func TestTransportSupportedBit(t *testing.T) {
	tr := New()
	assert.Equal(t, blobsvc.FlagBT, tr.SupportedBit())
}

func TestTransportWriteMetaAlwaysFails(t *testing.T) {
	tr := New()
	assert.False(t, tr.WriteMeta(0, []byte("x")))
}

func TestTransportIngestGrowsAndStages(t *testing.T) {
	tr := New()
	assert.True(t, tr.Ingest(0, []byte("hello")))
	assert.True(t, tr.Ingest(5, []byte(" world")))
	assert.Equal(t, []byte("hello world"), tr.Staged())
	assert.True(t, tr.Finalize())
}

func TestTransportIngestZeroFillsGap(t *testing.T) {
	tr := New()
	assert.True(t, tr.Ingest(4, []byte("x")))
	assert.Equal(t, []byte{0, 0, 0, 0, 'x'}, tr.Staged())
}
