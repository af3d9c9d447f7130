// Command blobflashd is the BMC-resident firmware-update blob handler
// daemon. It wires the configured transports and capabilities into a
// blobsvc.Dispatcher and serves the read-only status and metrics HTTP
// surfaces; the blob facade itself is reached over the IPMI/OEM framing
// layer, which is out of scope for this binary.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/blobflashd/cmd/blobflashd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
