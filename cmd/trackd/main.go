package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trackd",
		Short: "Tracked-value broadcast daemon",
		Long: `trackd holds named single-value trackers and broadcasts their
changes to subscribers.

Values are set over HTTP or a websocket; subscribers pick one of three
listener lifecycles per tracker:

  • once  — the first-ever value, immediately if one is already cached
  • every — the current value plus every later assignment
  • next  — the next assignment only`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		getCmd(),
		setCmd(),
		watchCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
