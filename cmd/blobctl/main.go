// Command blobctl is the host-side operator tool for blobflashd, the
// Go-native analogue of a local updater utility: it drives the same
// blobsvc.Dispatcher a daemon would serve, but builds it locally against
// the configured staging directory and capabilities, since the real
// IPMI/OEM blob transport is out of scope here.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/blobflashd/cmd/blobctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
