// Command wrmi is a small CLI front end over the WRMI ORB: it starts
// wpslinks, performs the validation handshake, and drives the stub
// layer for simple one-shot operations. Grounded on cmd/canopen/main.go
// and cmd/sdo_client/main.go (spawn a peer, connect, drive the typed
// API), re-expressed with Cobra subcommands instead of one flag.FlagSet.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "wrmi: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wrmi",
		Short: "Drive a WRMI ORB session against a wpslinks compiler process",
	}
	root.PersistentFlags().String("binary", "wpslinks", "path to the wpslinks executable")
	root.PersistentFlags().String("config", "", "path to a session configuration INI file")
	root.PersistentFlags().String("profile", "", "named session profile from --config whose options are passed to wpslinks at spawn (and by submit to initWithOptions)")

	root.AddCommand(newConnectCmd())
	root.AddCommand(newSubmitCmd())
	root.AddCommand(newShutdownCmd())
	return root
}
