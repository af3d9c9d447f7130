package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/blobflashd/pkg/blobsvc"
)

const verifySessionID uint16 = 2

var (
	verifyTransport string
	verifyTimeout   time.Duration
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Trigger and poll firmware verification",
	Long: `verify opens the Verify blob, commits to start verification, and
polls stat(session) until the VerificationTrigger reports success or
failure, then closes the session.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyTransport, "transport", "bt", "Data transport: bt|p2a|lpc")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 30*time.Second, "Maximum time to wait for verification to complete")
}

func runVerify(cmd *cobra.Command, args []string) error {
	transportBit, err := transportFlag(verifyTransport)
	if err != nil {
		return err
	}

	svc, _, err := buildService()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if !svc.Facade.Open(verifySessionID, blobsvc.FlagRead|transportBit, blobsvc.VerifyBlobID) {
		return fmt.Errorf("open(verify) refused: firmware FSM is not in verificationPending")
	}

	if !svc.Facade.Commit(verifySessionID, nil) {
		_ = svc.Facade.Close(verifySessionID)
		return fmt.Errorf("commit(verify) refused")
	}

	deadline := time.Now().Add(verifyTimeout)
	var last blobsvc.VerifyStatus = blobsvc.VerifyOther
	for time.Now().Before(deadline) {
		meta, ok := svc.Facade.StatSession(verifySessionID)
		if !ok || len(meta.Metadata) == 0 {
			break
		}
		last = blobsvc.VerifyStatus(meta.Metadata[0])
		if last == blobsvc.VerifySuccess || last == blobsvc.VerifyFailed {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	svc.Facade.Close(verifySessionID)

	fmt.Printf("verification result: %s (firmware state now %s)\n", last, svc.Dispatcher.Firmware().State())
	if last != blobsvc.VerifySuccess {
		return fmt.Errorf("verification did not succeed")
	}
	return nil
}
