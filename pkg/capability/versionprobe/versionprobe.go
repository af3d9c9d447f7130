// Package versionprobe implements blobsvc.VersionTrigger and
// blobsvc.VersionImageSource for a single version-query blob: Trigger runs
// a configured probe command that (re)writes a result file, and the
// VersionImageSource reads that file back once the probe succeeds.
package versionprobe

import (
	"context"
	"os"
	"os/exec"
	"sync"

	"github.com/marmos91/blobflashd/pkg/blobsvc"
)

// Probe is both the VersionTrigger and the VersionImageSource for one
// version blob.
type Probe struct {
	probeCommand []string
	imagePath    string

	mu     sync.Mutex
	cancel context.CancelFunc

	running bool
	status  blobsvc.ActionStatus

	file *os.File
}

// New returns a Probe that runs probeCommand on Trigger and serves
// imagePath's contents once it succeeds.
func New(probeCommand []string, imagePath string) *Probe {
	return &Probe{probeCommand: probeCommand, imagePath: imagePath, status: blobsvc.ActionUnknown}
}

// Trigger starts the probe command. It fails if one is already running.
func (p *Probe) Trigger() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return false
	}
	if len(p.probeCommand) == 0 {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, p.probeCommand[0], p.probeCommand[1:]...)

	p.cancel = cancel
	p.running = true
	p.status = blobsvc.ActionRunning

	if err := cmd.Start(); err != nil {
		cancel()
		p.running = false
		p.status = blobsvc.ActionFailed
		return false
	}

	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.running = false
		if err != nil {
			p.status = blobsvc.ActionFailed
		} else {
			p.status = blobsvc.ActionSuccess
		}
		p.mu.Unlock()
	}()

	return true
}

// Status reports the latest known probe status without blocking.
func (p *Probe) Status() blobsvc.ActionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Abort cancels a running probe.
func (p *Probe) Abort() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running && p.cancel != nil {
		p.cancel()
	}
}

// Open opens the probe's result file for reading. blobID is unused: a
// Probe serves exactly one blob, fixed at construction.
func (p *Probe) Open(blobID blobsvc.BlobID) bool {
	f, err := os.Open(p.imagePath)
	if err != nil {
		return false
	}
	p.file = f
	return true
}

// Read reads size bytes from offset in the result file.
func (p *Probe) Read(offset, size uint32) []byte {
	if p.file == nil {
		return []byte{}
	}
	buf := make([]byte, size)
	n, err := p.file.ReadAt(buf, int64(offset))
	if err != nil && n == 0 {
		return []byte{}
	}
	return buf[:n]
}

// Close closes the result file.
func (p *Probe) Close() {
	if p.file == nil {
		return
	}
	p.file.Close()
	p.file = nil
}
