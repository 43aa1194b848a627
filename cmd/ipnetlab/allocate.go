package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ipnetlab/internal/codec"
	"ipnetlab/internal/domain"
	"ipnetlab/internal/ipam"
)

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Allocate subnets and addresses for a topology",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		topoPath, err := flags.GetString("topology")
		if err != nil {
			return err
		}
		save, err := flags.GetBool("save")
		if err != nil {
			return err
		}
		format, err := flags.GetString("format")
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		svc, closeFn, err := newService(save, nil, nil)
		if err != nil {
			return err
		}
		defer closeFn()

		res, snap, err := svc.AllocateFile(ctx, topoPath, save)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch format {
		case "table":
			printResult(out, res, snap)
			return nil
		case "json", "yaml":
			exp, err := codec.ExporterFor(format)
			if err != nil {
				return err
			}
			return exp.Export(snap, out)
		default:
			return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
		}
	},
}

func init() {
	allocateCmd.Flags().StringP("topology", "t", "", "Topology file")
	allocateCmd.Flags().Bool("save", false, "Store the result in the snapshot database")
	allocateCmd.Flags().StringP("format", "o", "table", "Output format: table, json or yaml")
	allocateCmd.MarkFlagRequired("topology")
}

func printResult(out io.Writer, res *ipam.Result, snap *domain.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer func() {
		// Ignore flushing errors - there's nothing we can do.
		_ = w.Flush()
	}()

	printHeader(w, "Domain", "IPv4", "IPv6", "Members")
	for _, d := range snap.Domains {
		v4, v6 := d.SubnetV4, d.SubnetV6
		if d.FixedV4 {
			v4 += " (fixed)"
		}
		if d.FixedV6 {
			v6 += " (fixed)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", d.ID, orDash(nonEmpty(v4)), orDash(nonEmpty(v6)), orDash(d.Members))
	}
	fmt.Fprintln(w)

	printHeader(w, "Node", "Interface", "IPv4", "IPv6")
	for _, rec := range snap.Interfaces {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.Node, rec.Interface, orDash(rec.IPv4), orDash(rec.IPv6))
	}

	if len(snap.RouterIDs) > 0 {
		fmt.Fprintln(w)
		printHeader(w, "Router", "Router ID")
		for _, n := range res.Topology.Routers() {
			fmt.Fprintf(w, "%s\t%s\n", n.Name, snap.RouterIDs[n.Name])
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s broadcast domains, %s IPv4 and %s IPv6 addresses issued in %s\n",
		humanize.Comma(int64(len(res.Domains))),
		humanize.Comma(int64(res.Issued[domain.IPv4])),
		humanize.Comma(int64(res.Issued[domain.IPv6])),
		res.Duration)
	for _, f := range domain.Families {
		pool, ok := res.Pools[f]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s pool %s: %s addresses free in %d blocks\n",
			f, pool.Base(), humanize.BigComma(pool.FreeSize()), pool.Len())
	}
	if snap.ID != 0 {
		fmt.Fprintf(w, "saved as snapshot %d\n", snap.ID)
	}
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
