// Package p2a implements the PCI-to-AHB bridge data transport: a
// memory-mapped window the host writes bulk bytes into before the BMC
// commits them, plus a metadata side-channel the bridge exposes for
// transport-specific framing (e.g. a CRC footer).
package p2a

import (
	"sync"

	"github.com/marmos91/blobflashd/pkg/blobsvc"
)

// windowWriter is the subset of mmiowindow.Window this package depends on,
// so tests can supply an in-memory fake.
type windowWriter interface {
	WriteAt(offset uint32, data []byte) error
	ReadAt(offset, size uint32) []byte
}

// Transport is the P2A-backed blobsvc.DataTransport.
type Transport struct {
	mu   sync.Mutex
	win  windowWriter
	meta []byte
}

// New wraps win as a P2A transport.
func New(win windowWriter) *Transport {
	return &Transport{win: win}
}

// SupportedBit implements blobsvc.DataTransport.
func (t *Transport) SupportedBit() blobsvc.OpenFlags {
	return blobsvc.FlagP2A
}

// WriteMeta stages transport-specific metadata (e.g. a CRC32 footer)
// alongside the window payload. P2A supports it; BT does not.
func (t *Transport) WriteMeta(offset uint32, data []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	end := int(offset) + len(data)
	if end > len(t.meta) {
		grown := make([]byte, end)
		copy(grown, t.meta)
		t.meta = grown
	}
	copy(t.meta[offset:end], data)
	return true
}

// Ingest writes data into the memory window at offset.
func (t *Transport) Ingest(offset uint32, data []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.win.WriteAt(offset, data) == nil
}

// Finalize has nothing to flush beyond what WriteAt already committed to
// the mapped window; it exists so P2A and LPC share the same shutdown
// sequence in callers that don't special-case transports.
func (t *Transport) Finalize() bool {
	return true
}

// Meta returns the staged metadata bytes, for tests.
func (t *Transport) Meta() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.meta
}
