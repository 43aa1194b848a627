package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ipnetlab/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the addresses of a snapshot answer on the network",
	Long: `Sweep the addresses of a stored snapshot with nmap and report which ones
answer. Run it once the emulated network is up.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		id, err := flags.GetInt64("snapshot")
		if err != nil {
			return err
		}
		loopback, err := flags.GetBool("loopback")
		if err != nil {
			return err
		}
		ports, err := flags.GetString("skip-discovery")
		if err != nil {
			return err
		}

		timeout := cfg.Verify.Timeout.Duration()
		if flags.Changed("timeout") {
			if timeout, err = flags.GetDuration("timeout"); err != nil {
				return err
			}
		}
		concurrency := cfg.Verify.Concurrency
		if flags.Changed("concurrency") {
			if concurrency, err = flags.GetInt("concurrency"); err != nil {
				return err
			}
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		svc, closeFn, err := newService(true, nil, nil)
		if err != nil {
			return err
		}
		defer closeFn()

		snap, err := svc.Snapshot(ctx, id)
		if err != nil {
			return err
		}

		var nmapOpts []verify.NmapOption
		if ports != "" {
			nmapOpts = append(nmapOpts, verify.WithSkipHostDiscovery(ports))
		}
		prober := verify.NewNmapProber(nmapOpts...)
		if !prober.Available(ctx) {
			return errors.New("nmap binary not found in PATH")
		}

		v := verify.New(prober,
			verify.WithTimeout(timeout),
			verify.WithConcurrency(concurrency),
			verify.WithLoopback(loopback),
		)
		report, err := v.Verify(ctx, snap)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		printHeader(w, "Node", "Interface", "Address", "State")
		for _, r := range report.Results {
			state := "down"
			if r.Up {
				state = "up"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Node, r.Interface, r.Address, state)
		}
		_ = w.Flush()

		fmt.Fprintf(cmd.OutOrStdout(), "%d up, %d down in %s\n", report.Up, report.Down, report.Duration)
		if report.Down > 0 {
			return fmt.Errorf("%d addresses did not answer", report.Down)
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().Int64("snapshot", 0, "Stored snapshot ID (default: latest)")
	verifyCmd.Flags().Duration("timeout", 0, "Bound on the whole sweep (overrides the configuration)")
	verifyCmd.Flags().Int("concurrency", 0, "Concurrent nmap scans (overrides the configuration)")
	verifyCmd.Flags().Bool("loopback", false, "Include router loopback addresses")
	verifyCmd.Flags().String("skip-discovery", "", "Skip ping and probe these ports instead, e.g. 22,179")
}
