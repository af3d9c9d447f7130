package versionprobe

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/blobflashd/pkg/blobsvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, p *Probe, want blobsvc.ActionStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.Status() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status never reached %v, got %v", want, p.Status())
}

func TestProbeSuccessfulCommandReportsSuccess(t *testing.T) {
	p := New([]string{"true"}, filepath.Join(t.TempDir(), "version"))

	require.True(t, p.Trigger())
	waitForStatus(t, p, blobsvc.ActionSuccess)
}

func TestProbeFailingCommandReportsFailed(t *testing.T) {
	p := New([]string{"false"}, filepath.Join(t.TempDir(), "version"))

	require.True(t, p.Trigger())
	waitForStatus(t, p, blobsvc.ActionFailed)
}

func TestProbeRejectsConcurrentTrigger(t *testing.T) {
	p := New([]string{"sleep", "1"}, filepath.Join(t.TempDir(), "version"))

	require.True(t, p.Trigger())
	assert.False(t, p.Trigger())
	p.Abort()
}

func TestProbeEmptyCommandFails(t *testing.T) {
	p := New(nil, filepath.Join(t.TempDir(), "version"))
	assert.False(t, p.Trigger())
}

func TestProbeInitialStatusIsUnknown(t *testing.T) {
	p := New([]string{"true"}, filepath.Join(t.TempDir(), "version"))
	assert.Equal(t, blobsvc.ActionUnknown, p.Status())
}

func TestProbeOpenReadCloseRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version")
	require.NoError(t, os.WriteFile(path, []byte("v1.2.3"), 0600))

	p := New(nil, path)
	require.True(t, p.Open("version0"))
	defer p.Close()

	assert.Equal(t, []byte("v1.2.3"), p.Read(0, 6))
	assert.Equal(t, []byte("2.3"), p.Read(3, 3))
}

func TestProbeOpenFailsWhenResultFileMissing(t *testing.T) {
	p := New(nil, filepath.Join(t.TempDir(), "missing"))
	assert.False(t, p.Open("version0"))
}

func TestProbeReadBeforeOpenReturnsEmpty(t *testing.T) {
	p := New(nil, filepath.Join(t.TempDir(), "version"))
	assert.Empty(t, p.Read(0, 4))
}

func TestProbeCloseWithoutOpenIsNoop(t *testing.T) {
	p := New(nil, filepath.Join(t.TempDir(), "version"))
	assert.NotPanics(t, p.Close)
}
