package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/blobflashd/internal/cli/output"
	"github.com/marmos91/blobflashd/pkg/config"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running blobflashd daemon's status endpoint",
	Long: `Query the firmware and version-blob state exposed by a running
daemon's read-only status API (GET /v1/state). The daemon must have
status.enabled set in its configuration.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json)")
}

type versionBlobRow struct {
	BlobID string `json:"blob_id"`
	Status string `json:"status"`
}

type stateReport struct {
	FirmwareState string           `json:"firmware_state"`
	VersionBlobs  []versionBlobRow `json:"version_blobs"`
}

func (r stateReport) Headers() []string {
	return []string{"BLOB_ID", "STATUS"}
}

func (r stateReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.VersionBlobs))
	for _, vb := range r.VersionBlobs {
		rows = append(rows, []string{vb.BlobID, vb.Status})
	}
	return rows
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if !cfg.Status.Enabled {
		return fmt.Errorf("status api is disabled in configuration (status.enabled: false)")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/v1/state", cfg.Status.Address))
	if err != nil {
		return fmt.Errorf("failed to reach status api at %s: %w", cfg.Status.Address, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status api returned %s", resp.Status)
	}

	var report stateReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return fmt.Errorf("failed to decode status response: %w", err)
	}

	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	if format == output.FormatJSON {
		return output.PrintJSON(os.Stdout, report)
	}

	fmt.Printf("firmware state: %s\n\n", report.FirmwareState)
	return output.PrintTable(os.Stdout, report)
}
