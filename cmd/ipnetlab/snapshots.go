package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	snapshotsCmd = &cobra.Command{
		Use:     "snapshots",
		Aliases: []string{"snapshot"},
		Short:   "Manage stored snapshots",
	}

	snapshotsListCmd = &cobra.Command{
		Use:   "ls",
		Short: "List stored snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return errors.New("ls command takes no arguments")
			}
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			svc, closeFn, err := newService(true, nil, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			list, err := svc.ListSnapshots(ctx, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer func() {
				// Ignore flushing errors - there's nothing we can do.
				_ = w.Flush()
			}()
			printHeader(w, "ID", "Topology", "Domains", "Interfaces", "Created")
			for _, s := range list {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n",
					s.ID,
					s.Topology,
					s.Domains,
					s.Interfaces,
					humanize.Time(s.CreatedAt),
				)
			}
			return nil
		},
	}

	snapshotsRemoveCmd = &cobra.Command{
		Use:   "rm <snapshot ID>",
		Short: "Remove a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid snapshot ID %q", args[0])
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			svc, closeFn, err := newService(true, nil, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := svc.DeleteSnapshot(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
)

func init() {
	snapshotsListCmd.Flags().Int("limit", 0, "Show at most this many snapshots (0: all)")
	snapshotsCmd.AddCommand(snapshotsListCmd, snapshotsRemoveCmd)
}
