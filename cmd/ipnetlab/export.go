package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an allocation as json, yaml, topodb or xlsx",
	Long: `Export an allocation. With --topology the topology is allocated on the fly,
otherwise a stored snapshot is exported (the latest one unless --snapshot is
given).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		topoPath, err := flags.GetString("topology")
		if err != nil {
			return err
		}
		id, err := flags.GetInt64("snapshot")
		if err != nil {
			return err
		}
		format, err := flags.GetString("format")
		if err != nil {
			return err
		}
		output, err := flags.GetString("output")
		if err != nil {
			return err
		}
		if err := exclusive(flags, "topology", "snapshot"); err != nil {
			return err
		}
		if format == "xlsx" && output == "" {
			return errors.New("xlsx output needs --output")
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		svc, closeFn, err := newService(topoPath == "", nil, nil)
		if err != nil {
			return err
		}
		defer closeFn()

		if topoPath != "" {
			if _, _, err := svc.AllocateFile(ctx, topoPath, false); err != nil {
				return err
			}
		}

		var w io.Writer = cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}
		return svc.Export(ctx, id, format, w)
	},
}

func init() {
	exportCmd.Flags().StringP("topology", "t", "", "Topology file to allocate and export")
	exportCmd.Flags().Int64("snapshot", 0, "Stored snapshot ID (default: latest)")
	exportCmd.Flags().StringP("format", "f", "json", "Export format: json, yaml, topodb or xlsx")
	exportCmd.Flags().StringP("output", "o", "", "Output file (default: standard output)")
}
