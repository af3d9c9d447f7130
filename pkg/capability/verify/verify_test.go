package verify

import (
	"testing"
	"time"

	"github.com/marmos91/blobflashd/pkg/blobsvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, tr *Trigger, want blobsvc.VerifyStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tr.CheckVerificationState() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status never reached %v, got %v", want, tr.CheckVerificationState())
}

func TestTriggerSuccessfulCommandReportsSuccess(t *testing.T) {
	tr := New([]string{"true"}, func() string { return "" })

	require.True(t, tr.TriggerVerification())
	waitForStatus(t, tr, blobsvc.VerifySuccess)
}

func TestTriggerFailingCommandReportsFailed(t *testing.T) {
	tr := New([]string{"false"}, func() string { return "" })

	require.True(t, tr.TriggerVerification())
	waitForStatus(t, tr, blobsvc.VerifyFailed)
}

func TestTriggerRejectsConcurrentTrigger(t *testing.T) {
	tr := New([]string{"sleep", "1"}, func() string { return "" })

	require.True(t, tr.TriggerVerification())
	assert.False(t, tr.TriggerVerification())
	tr.AbortVerification()
}

func TestTriggerEmptyCommandFails(t *testing.T) {
	tr := New(nil, func() string { return "" })
	assert.False(t, tr.TriggerVerification())
}

func TestTriggerInitialStateIsOther(t *testing.T) {
	tr := New([]string{"true"}, func() string { return "" })
	assert.Equal(t, blobsvc.VerifyOther, tr.CheckVerificationState())
}
