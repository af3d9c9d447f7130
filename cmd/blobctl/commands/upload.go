package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/blobflashd/pkg/blobsvc"
)

const uploadChunkSize = 4096

const uploadSessionID uint16 = 1

var (
	uploadTarget    string
	uploadTransport string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a firmware image into the upload FSM",
	Args:  cobra.ExactArgs(1),
	Long: `upload opens the chosen upload-target blob, writes the file's
bytes in order, and closes the session — the same open/write*/close
sequence an IPMI host driver would issue, advancing the firmware FSM from
notYetStarted (or uploadInProgress) into verificationPending.`,
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadTarget, "target", "image", "Upload target: image|tarball")
	uploadCmd.Flags().StringVar(&uploadTransport, "transport", "bt", "Data transport: bt|p2a|lpc")
}

func targetBlobID(target string) (blobsvc.BlobID, error) {
	switch target {
	case "image":
		return blobsvc.ImageBlobID, nil
	case "tarball":
		return blobsvc.TarballBlobID, nil
	default:
		return "", fmt.Errorf("unknown --target %q (valid: image, tarball)", target)
	}
}

func transportFlag(transport string) (blobsvc.OpenFlags, error) {
	switch transport {
	case "bt":
		return blobsvc.FlagBT, nil
	case "p2a":
		return blobsvc.FlagP2A, nil
	case "lpc":
		return blobsvc.FlagLPC, nil
	default:
		return 0, fmt.Errorf("unknown --transport %q (valid: bt, p2a, lpc)", transport)
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	target, err := targetBlobID(uploadTarget)
	if err != nil {
		return err
	}
	transportBit, err := transportFlag(uploadTransport)
	if err != nil {
		return err
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = file.Close() }()

	svc, _, err := buildService()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if !svc.Facade.Open(uploadSessionID, blobsvc.FlagWrite|transportBit, target) {
		return fmt.Errorf("open(%s) refused: firmware FSM is not accepting an upload here", target)
	}

	var offset uint32
	buf := make([]byte, uploadChunkSize)
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			if !svc.Facade.Write(uploadSessionID, offset, buf[:n]) {
				_ = svc.Facade.Close(uploadSessionID)
				return fmt.Errorf("write at offset %d refused", offset)
			}
			offset += uint32(n)
		}
		if readErr != nil {
			break
		}
	}

	if !svc.Facade.Close(uploadSessionID) {
		return fmt.Errorf("close refused after uploading %d bytes", offset)
	}

	fmt.Printf("uploaded %d bytes to %s, firmware state now %s\n", offset, target, svc.Dispatcher.Firmware().State())
	return nil
}
