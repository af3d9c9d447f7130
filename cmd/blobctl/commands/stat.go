package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/blobflashd/internal/cli/output"
	"github.com/marmos91/blobflashd/pkg/blobsvc"
)

var statCmd = &cobra.Command{
	Use:   "stat <blob-id>",
	Short: "Stat a blob by path",
	Args:  cobra.ExactArgs(1),
	Long:  `stat calls stat(path) against a locally-wired dispatcher and prints the resulting size, state word, and metadata length.`,
	RunE:  runStat,
}

func runStat(cmd *cobra.Command, args []string) error {
	svc, _, err := buildService()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	meta, ok := svc.Facade.StatBlob(blobsvc.BlobID(args[0]))
	if !ok {
		return fmt.Errorf("stat %s: not found", args[0])
	}

	return output.SimpleTable(os.Stdout, [][2]string{
		{"blob_id", args[0]},
		{"size", fmt.Sprintf("%d", meta.Size)},
		{"state", fmt.Sprintf("0x%x", meta.BlobState)},
		{"metadata_bytes", fmt.Sprintf("%d", len(meta.Metadata))},
	})
}
