package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// GatePolicy controls the fixed-interval retry behavior of a readiness gate.
//
// MaxAttempts == 0 means retry forever. That is the production default for
// unattended boot-time runs: a device whose network interface is not yet up
// when provisioning starts must wait for it, not fail. Bounded policies exist
// so tests can exercise the gate without an unbounded wait.
type GatePolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// WaitGate retries probe at a fixed interval until it succeeds. There is no
// backoff growth. The only exits are probe success, context cancellation, and
// (for bounded policies) attempt exhaustion.
func WaitGate(ctx context.Context, name string, policy GatePolicy, sleeper Sleeper, probe func(context.Context) error) error {
	log := slog.With("gate", name)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := probe(ctx)
		if err == nil {
			if attempt > 1 {
				log.Debug("gate open", "attempts", attempt)
			}
			return nil
		}
		log.Debug("probe failed", "attempt", attempt, "err", err)

		if policy.MaxAttempts > 0 && attempt >= policy.MaxAttempts {
			return fmt.Errorf("%s gate: probe failed after %d attempts: %w", name, attempt, err)
		}
		if err := sleeper.Sleep(ctx, policy.Interval); err != nil {
			return err
		}
	}
}
