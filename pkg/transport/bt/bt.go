// Package bt implements the Block Transfer data transport: the default,
// lowest-throughput channel where upload bytes ride directly inside IPMI
// BT request/response messages rather than a shared memory window. It
// carries no side-channel metadata.
package bt

import "github.com/marmos91/blobflashd/pkg/blobsvc"

// Transport is the BT-backed blobsvc.DataTransport.
type Transport struct {
	buf []byte
}

// New returns a BT transport with an empty staging buffer.
func New() *Transport {
	return &Transport{}
}

// SupportedBit implements blobsvc.DataTransport.
func (t *Transport) SupportedBit() blobsvc.OpenFlags {
	return blobsvc.FlagBT
}

// WriteMeta always fails: BT has no out-of-band channel to carry metadata,
// it only carries the blob payload itself.
func (t *Transport) WriteMeta(offset uint32, data []byte) bool {
	return false
}

// Ingest appends data to the staging buffer at offset, growing it as
// needed. BT messages arrive in order but Ingest tolerates an offset past
// the current length by zero-filling the gap.
func (t *Transport) Ingest(offset uint32, data []byte) bool {
	end := int(offset) + len(data)
	if end > len(t.buf) {
		grown := make([]byte, end)
		copy(grown, t.buf)
		t.buf = grown
	}
	copy(t.buf[offset:end], data)
	return true
}

// Finalize is a no-op for BT: there is nothing to flush, bytes are already
// in the staging buffer.
func (t *Transport) Finalize() bool {
	return true
}

// Staged returns the bytes ingested so far, for tests and for handing off
// to an ImageWriter.
func (t *Transport) Staged() []byte {
	return t.buf
}
