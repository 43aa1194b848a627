package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if c, err := mainCmd.ExecuteC(); err != nil {
		c.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

var mainCmd = &cobra.Command{
	Use:               "ipnetlab",
	Short:             "Discover broadcast domains and allocate addresses for emulated networks",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	flags := mainCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Configuration file (default: search the usual locations)")
	flags.String("db", "", "SQLite database path (overrides the configuration)")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")

	mainCmd.AddCommand(
		allocateCmd,
		exportCmd,
		lookupCmd,
		snapshotsCmd,
		serveCmd,
		verifyCmd,
		configCmd,
	)
}
