// Package lpc implements the LPC (Low Pin Count) firmware-memory-cycle
// data transport: bulk bytes pass through a fixed memory window mapped
// over the host's LPC firmware space, addressed relative to a configured
// base offset. Unlike P2A it exposes no metadata side-channel.
package lpc

import "github.com/marmos91/blobflashd/pkg/blobsvc"

// window is the subset of mmiowindow.Window this package depends on.
type window interface {
	WriteAt(offset uint32, data []byte) error
	ReadAt(offset, size uint32) []byte
	Sync() error
}

// Transport is the LPC-backed blobsvc.DataTransport.
type Transport struct {
	win window
}

// New wraps win as an LPC transport.
func New(win window) *Transport {
	return &Transport{win: win}
}

// SupportedBit implements blobsvc.DataTransport.
func (t *Transport) SupportedBit() blobsvc.OpenFlags {
	return blobsvc.FlagLPC
}

// WriteMeta always fails: the LPC firmware-memory-cycle window carries raw
// payload only, with no reserved region for metadata.
func (t *Transport) WriteMeta(offset uint32, data []byte) bool {
	return false
}

// Ingest writes data into the mapped window at offset.
func (t *Transport) Ingest(offset uint32, data []byte) bool {
	return t.win.WriteAt(offset, data) == nil
}

// Finalize flushes the window to the backing device so the host can read
// back a consistent image after commit.
func (t *Transport) Finalize() bool {
	return t.win.Sync() == nil
}
