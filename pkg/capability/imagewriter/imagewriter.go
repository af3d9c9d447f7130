// Package imagewriter implements blobsvc.ImageWriter by staging uploaded
// firmware bytes into a plain file under a configured staging directory.
package imagewriter

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/blobflashd/pkg/blobsvc"
)

// Writer stages one blob's bytes into dir/<sanitized blob id>.
type Writer struct {
	dir string
	f   *os.File
}

// New returns a Writer that stages files under dir, which must already
// exist.
func New(dir string) *Writer {
	return &Writer{dir: dir}
}

// Open creates (or truncates) the staging file for blobID.
func (w *Writer) Open(blobID blobsvc.BlobID) bool {
	path := filepath.Join(w.dir, sanitize(blobID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0600)
	if err != nil {
		return false
	}
	w.f = f
	return true
}

// Write writes data to the staging file at offset.
func (w *Writer) Write(offset uint32, data []byte) bool {
	if w.f == nil {
		return false
	}
	_, err := w.f.WriteAt(data, int64(offset))
	return err == nil
}

// Close closes the staging file. Errors are swallowed: the FSM transitions
// to verificationPending unconditionally on close (§4.3), and a close
// failure here is surfaced only through a subsequent verification failure
// reading a short file.
func (w *Writer) Close() {
	if w.f == nil {
		return
	}
	w.f.Close()
	w.f = nil
}

// Path returns the staging path for blobID, for the verify capability to
// read back.
func (w *Writer) Path(blobID blobsvc.BlobID) string {
	return filepath.Join(w.dir, sanitize(blobID))
}

func sanitize(blobID blobsvc.BlobID) string {
	return strings.ReplaceAll(strings.TrimPrefix(string(blobID), "/"), "/", "_")
}
