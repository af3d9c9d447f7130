// Package commands implements the blobctl CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "blobctl",
	Short: "Operate a blobflashd dispatcher from the host side",
	Long: `blobctl drives blob operations against a locally-wired
blobflashd dispatcher: listing and inspecting blobs, uploading a firmware
image, triggering verification, and checking a version probe.

It builds its own dispatcher from the same configuration a blobflashd
daemon would use (pkg/wiring), rather than talking to a running daemon —
the out-of-band IPMI/OEM blob transport a real host driver would use to
reach a remote daemon is outside this repository's scope.

Use "blobctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/blobflashd/config.yaml)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
