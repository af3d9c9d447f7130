package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/blobflashd/pkg/blobsvc"
)

const versionSessionID uint16 = 3

var versionTimeout time.Duration

var versionCmd = &cobra.Command{
	Use:   "version <blob-id>",
	Short: "Trigger a version probe and print its result",
	Args:  cobra.ExactArgs(1),
	Long: `version opens a configured version blob (which triggers its
probe command), polls stat(session) until the probe reports success or
failure, reads the resulting payload on success, and closes the session.`,
	RunE: runVersion,
}

func init() {
	versionCmd.Flags().DurationVar(&versionTimeout, "timeout", 10*time.Second, "Maximum time to wait for the probe to complete")
}

func runVersion(cmd *cobra.Command, args []string) error {
	blobID := blobsvc.BlobID(args[0])

	svc, _, err := buildService()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if !svc.Facade.Open(versionSessionID, blobsvc.FlagRead, blobID) {
		return fmt.Errorf("open(%s) refused: not a configured version blob, or a session is already open on it", blobID)
	}
	defer func() { svc.Facade.Close(versionSessionID) }()

	deadline := time.Now().Add(versionTimeout)
	var status blobsvc.ActionStatus
	for time.Now().Before(deadline) {
		meta, ok := svc.Facade.StatSession(versionSessionID)
		if !ok || len(meta.Metadata) == 0 {
			break
		}
		status = blobsvc.ActionStatus(meta.Metadata[0])
		if status == blobsvc.ActionSuccess || status == blobsvc.ActionFailed {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if status != blobsvc.ActionSuccess {
		return fmt.Errorf("version probe for %s did not succeed (status: %s)", blobID, status)
	}

	payload := svc.Facade.Read(versionSessionID, 0, 256)
	fmt.Printf("%s: %s\n", blobID, string(payload))
	return nil
}
