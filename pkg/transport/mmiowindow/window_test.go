package mmiowindow

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestWindow(t *testing.T, size int64) *Window {
	t.Helper()
	path := filepath.Join(t.TempDir(), "window.bin")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		t.Fatalf("create backing file: %v", err)
	}
	if err := f.Truncate(size); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	f.Close()

	w, err := Open(path, 0, size)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func TestWindowWriteAtThenReadAt(t *testing.T) {
	w := newTestWindow(t, 4096)

	if err := w.WriteAt(10, []byte("hello")); err != nil {
		t.Fatalf("WriteAt() error = %v", err)
	}

	got := w.ReadAt(10, 5)
	if string(got) != "hello" {
		t.Errorf("ReadAt() = %q, want %q", got, "hello")
	}
}

func TestWindowWriteAtRejectsOverrun(t *testing.T) {
	w := newTestWindow(t, 16)

	if err := w.WriteAt(10, []byte("too long for window")); err == nil {
		t.Error("expected error writing past window end")
	}
}

func TestWindowReadAtClampsToSize(t *testing.T) {
	w := newTestWindow(t, 16)

	got := w.ReadAt(10, 100)
	if len(got) != 6 {
		t.Errorf("expected clamped read of 6 bytes, got %d", len(got))
	}
}

func TestWindowReadAtPastEndIsEmpty(t *testing.T) {
	w := newTestWindow(t, 16)

	got := w.ReadAt(20, 10)
	if len(got) != 0 {
		t.Errorf("expected empty read past window end, got %d bytes", len(got))
	}
}

func TestWindowSize(t *testing.T) {
	w := newTestWindow(t, 4096)
	if w.Size() != 4096 {
		t.Errorf("Size() = %d, want 4096", w.Size())
	}
}
