package provision

import (
	"fmt"
	"strings"
)

// LaunchPolicy selects how the workload is (re)started. The two policies are
// deliberately not equivalent and are never merged: clean-restart guarantees
// a reproducible state at the cost of downtime, lightweight relies on
// engine-side reconciliation and leaves stale instances alone.
type LaunchPolicy string

const (
	// LaunchCleanRestart tears down every existing project instance,
	// orphans included, then relaunches with a forced rebuild.
	LaunchCleanRestart LaunchPolicy = "clean-restart"

	// LaunchLightweight launches directly and lets the engine reconcile;
	// already-correct instances are left untouched.
	LaunchLightweight LaunchPolicy = "lightweight"
)

// ParseLaunchPolicy parses a policy name from configuration.
func ParseLaunchPolicy(s string) (LaunchPolicy, error) {
	switch LaunchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case LaunchCleanRestart:
		return LaunchCleanRestart, nil
	case LaunchLightweight:
		return LaunchLightweight, nil
	default:
		return "", fmt.Errorf("unknown launch policy %q (want %s or %s)", s, LaunchCleanRestart, LaunchLightweight)
	}
}
