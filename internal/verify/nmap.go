package verify

import (
	"context"
	"fmt"

	nmap "github.com/Ullaakut/nmap/v3"

	"ipnetlab/internal/domain"
	"ipnetlab/internal/log"
)

// NmapProber probes addresses with an nmap ping scan (-sn)
type NmapProber struct {
	skipHostDiscovery bool
	ports             string
}

// NmapOption is a functional option for configuring NmapProber
type NmapOption func(*NmapProber)

// WithSkipHostDiscovery treats every host as online and checks ports instead
// (-Pn). Useful for labs that drop ICMP.
func WithSkipHostDiscovery(ports string) NmapOption {
	return func(n *NmapProber) {
		n.skipHostDiscovery = true
		n.ports = ports
	}
}

// NewNmapProber creates a prober backed by the nmap binary
func NewNmapProber(opts ...NmapOption) *NmapProber {
	n := &NmapProber{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Available checks that the nmap binary can be run
func (n *NmapProber) Available(ctx context.Context) bool {
	scanner, err := nmap.NewScanner(
		ctx,
		nmap.WithTargets("localhost"),
		nmap.WithListScan(),
	)
	if err != nil {
		return false
	}
	_, _, err = scanner.Run()
	return err == nil
}

// Probe runs one scan over addrs and reports the hosts that answered
func (n *NmapProber) Probe(ctx context.Context, f domain.Family, addrs []string) (map[string]bool, error) {
	scanner, err := nmap.NewScanner(ctx, n.options(f, addrs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		log.G(ctx).WithField("warnings", *warnings).Debug("nmap warnings")
	}
	return hostsUp(result)
}

func (n *NmapProber) options(f domain.Family, addrs []string) []nmap.Option {
	opts := []nmap.Option{nmap.WithTargets(addrs...)}
	if n.skipHostDiscovery {
		opts = append(opts, nmap.WithSkipHostDiscovery(), nmap.WithPorts(n.ports))
	} else {
		opts = append(opts, nmap.WithPingScan())
	}
	if f == domain.IPv6 {
		opts = append(opts, nmap.WithIPv6Scanning())
	}
	return opts
}

// hostsUp collects the addresses of the hosts nmap saw up. With host
// discovery skipped a host only counts when one of its ports is open.
func hostsUp(result *nmap.Run) (map[string]bool, error) {
	if result == nil {
		return nil, fmt.Errorf("nil scan result")
	}

	up := make(map[string]bool)
	for _, host := range result.Hosts {
		if host.Status.State != "up" {
			continue
		}
		if len(host.Ports) > 0 && !anyOpen(host.Ports) {
			continue
		}
		for _, addr := range host.Addresses {
			if addr.AddrType == "ipv4" || addr.AddrType == "ipv6" {
				up[addr.Addr] = true
			}
		}
	}
	return up, nil
}

func anyOpen(ports []nmap.Port) bool {
	for _, p := range ports {
		if p.State.State == "open" {
			return true
		}
	}
	return false
}
