// Package probe implements the readiness probes: one ICMP echo per call for
// network reachability, one NTP query per call for clock sync.
package probe

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"camrig/internal/provision"

	"github.com/beevik/ntp"
)

var _ provision.Prober = Ping{}

// Ping sends a single ICMP echo to a fixed address via the system ping
// binary. One attempt per call; the gate owns retrying.
type Ping struct {
	Address string
}

func (p Ping) Probe(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, "ping", "-c", "1", "-W", "2", p.Address).CombinedOutput()
	if err != nil {
		return fmt.Errorf("ping %s: %s: %w", p.Address, strings.TrimSpace(string(out)), err)
	}
	return nil
}

var _ provision.TimeSource = NTP{}

// NTP queries a pool server for the host clock offset. One query per call.
type NTP struct {
	Pool    string
	Timeout time.Duration
}

func (n NTP) Offset(_ context.Context) (time.Duration, error) {
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	resp, err := ntp.QueryWithOptions(n.Pool, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return 0, fmt.Errorf("ntp query %s: %w", n.Pool, err)
	}
	if err := resp.Validate(); err != nil {
		return 0, fmt.Errorf("ntp response from %s: %w", n.Pool, err)
	}
	return resp.ClockOffset, nil
}
