// Package verify implements blobsvc.VerificationTrigger by running a
// configured external command against the staged firmware image and
// polling its exit status.
package verify

import (
	"context"
	"os/exec"
	"sync"

	"github.com/marmos91/blobflashd/pkg/blobsvc"
)

// Trigger shells out to Command (argv[0] plus arguments) whenever
// TriggerVerification is called, and reports CheckVerificationState by
// polling the subprocess's completion.
type Trigger struct {
	command   []string
	imagePath func() string

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	status  blobsvc.VerifyStatus
}

// New returns a Trigger that runs command (with imagePath() appended as
// its final argument) on TriggerVerification.
func New(command []string, imagePath func() string) *Trigger {
	return &Trigger{command: command, imagePath: imagePath, status: blobsvc.VerifyOther}
}

// TriggerVerification starts the verification subprocess. It fails if one
// is already running or the command can't be started.
func (t *Trigger) TriggerVerification() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return false
	}
	if len(t.command) == 0 {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	args := append(append([]string{}, t.command[1:]...), t.imagePath())
	cmd := exec.CommandContext(ctx, t.command[0], args...)

	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	t.running = true
	t.status = blobsvc.VerifyRunning

	if err := cmd.Start(); err != nil {
		cancel()
		t.running = false
		t.status = blobsvc.VerifyFailed
		return false
	}

	go func() {
		err := cmd.Wait()
		t.mu.Lock()
		t.running = false
		if err != nil {
			t.status = blobsvc.VerifyFailed
		} else {
			t.status = blobsvc.VerifySuccess
		}
		t.mu.Unlock()
		close(done)
	}()

	return true
}

// CheckVerificationState reports the latest known status without blocking.
func (t *Trigger) CheckVerificationState() blobsvc.VerifyStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// AbortVerification cancels a running subprocess. It is a no-op if none is
// running.
func (t *Trigger) AbortVerification() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running && t.cancel != nil {
		t.cancel()
	}
}
