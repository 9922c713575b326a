// Package systemd implements provision.ServiceManager with systemctl.
package systemd

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"camrig/internal/provision"
)

var _ provision.ServiceManager = Manager{}

// Manager controls host units through systemctl. Enable and Start are
// idempotent from the operator's perspective — re-enabling or re-starting an
// active unit is a no-op.
type Manager struct{}

func NewManager() Manager {
	return Manager{}
}

func (Manager) Enable(ctx context.Context, unit string) error {
	return systemctl(ctx, "enable", unit)
}

func (Manager) Start(ctx context.Context, unit string) error {
	return systemctl(ctx, "start", unit)
}

// Active reports whether the unit is currently running.
func (Manager) Active(ctx context.Context, unit string) bool {
	return exec.CommandContext(ctx, "systemctl", "is-active", "--quiet", unit).Run() == nil
}

// Enabled reports whether the unit starts at boot.
func (Manager) Enabled(ctx context.Context, unit string) bool {
	return exec.CommandContext(ctx, "systemctl", "is-enabled", "--quiet", unit).Run() == nil
}

func systemctl(ctx context.Context, args ...string) error {
	out, err := exec.CommandContext(ctx, "systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return nil
}
