// Package mmiowindow maps a fixed-size byte-addressable window of a device
// file into process memory. It backs the P2A and LPC transports, which exchange
// blob bytes with the host over a memory-mapped I/O region rather than a
// message-passing channel.
package mmiowindow

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Window is a memory-mapped region of a device file.
type Window struct {
	file *os.File
	data []byte
	size int64
}

// Open maps size bytes of path starting at offset. devicePath is typically
// /dev/mem or a platform-specific LPC firmware-memory-cycle character
// device; offset and size describe the host-visible window within it.
func Open(devicePath string, offset, size int64) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmiowindow: size must be positive, got %d", size)
	}

	f, err := os.OpenFile(devicePath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("mmiowindow: open %s: %w", devicePath, err)
	}

	data, err := unix.Mmap(int(f.Fd()), offset, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmiowindow: mmap %s: %w", devicePath, err)
	}

	return &Window{file: f, data: data, size: size}, nil
}

// Size returns the window's size in bytes.
func (w *Window) Size() int64 {
	return w.size
}

// WriteAt copies data into the window at offset. It fails if the write
// would run past the window's end rather than silently truncating.
func (w *Window) WriteAt(offset uint32, data []byte) error {
	end := int64(offset) + int64(len(data))
	if end > w.size {
		return fmt.Errorf("mmiowindow: write [%d,%d) exceeds window size %d", offset, end, w.size)
	}
	copy(w.data[offset:end], data)
	return nil
}

// ReadAt copies size bytes out of the window starting at offset, clamped to
// the window's extent.
func (w *Window) ReadAt(offset, size uint32) []byte {
	start := int64(offset)
	if start >= w.size {
		return []byte{}
	}
	end := start + int64(size)
	if end > w.size {
		end = w.size
	}
	out := make([]byte, end-start)
	copy(out, w.data[start:end])
	return out
}

// Sync flushes dirty pages to the backing device.
func (w *Window) Sync() error {
	return unix.Msync(w.data, unix.MS_SYNC)
}

// Close unmaps the window and closes the backing file.
func (w *Window) Close() error {
	if w.data != nil {
		if err := unix.Munmap(w.data); err != nil {
			return fmt.Errorf("mmiowindow: munmap: %w", err)
		}
		w.data = nil
	}
	return w.file.Close()
}
