package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <address>",
	Short: "Find the node owning an address",
	Long: `Find the node owning an address, given bare or in CIDR form. The address is
looked up in a stored snapshot, or in a topology allocated on the fly with
--topology.`,
	Args: cobra.ExactArgs(1),
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
		if err := exclusive(flags, "topology", "snapshot"); err != nil {
			return err
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

		node, ok, err := svc.Lookup(ctx, id, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no node owns %s", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), node)
		return nil
	},
}

func init() {
	lookupCmd.Flags().StringP("topology", "t", "", "Topology file to allocate and search")
	lookupCmd.Flags().Int64("snapshot", 0, "Stored snapshot ID (default: latest)")
}
