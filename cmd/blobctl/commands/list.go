package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/blobflashd/internal/cli/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the blob ids this dispatcher recognizes",
	Long:  `list calls getBlobIds() against a locally-wired dispatcher and prints the firmware and version-query catalog.`,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	svc, _, err := buildService()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	table := output.NewTableData("BLOB_ID")
	for _, id := range svc.Facade.GetBlobIds() {
		table.AddRow(string(id))
	}
	return output.PrintTable(os.Stdout, table)
}
