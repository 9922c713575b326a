package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"camrig/internal/provision"
)

var _ provision.Prober = (*Prober)(nil)

// Prober is an in-memory implementation of provision.Prober. It fails the
// first FailuresBeforeSuccess attempts, then succeeds. A ProbeErr hook takes
// precedence.
type Prober struct {
	CallRecorder
	mu       sync.Mutex
	attempts int

	FailuresBeforeSuccess int
	ProbeErr              func(ctx context.Context) error
}

func NewProber() *Prober {
	return &Prober{}
}

func (p *Prober) Probe(ctx context.Context) error {
	p.record("Probe")
	if p.ProbeErr != nil {
		return p.ProbeErr(ctx)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.attempts <= p.FailuresBeforeSuccess {
		return fmt.Errorf("probe attempt %d: unreachable", p.attempts)
	}
	return nil
}

// Attempts returns the number of probes made so far.
func (p *Prober) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

var _ provision.TimeSource = (*TimeSource)(nil)

// TimeSource is an in-memory implementation of provision.TimeSource. It
// returns Offsets in order, repeating the last one once exhausted.
type TimeSource struct {
	CallRecorder
	mu    sync.Mutex
	index int

	Offsets   []time.Duration
	OffsetErr func(ctx context.Context) error
}

func NewTimeSource(offsets ...time.Duration) *TimeSource {
	return &TimeSource{Offsets: offsets}
}

func (t *TimeSource) Offset(ctx context.Context) (time.Duration, error) {
	t.record("Offset")
	if t.OffsetErr != nil {
		if err := t.OffsetErr(ctx); err != nil {
			return 0, err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.Offsets) == 0 {
		return 0, nil
	}
	offset := t.Offsets[t.index]
	if t.index < len(t.Offsets)-1 {
		t.index++
	}
	return offset, nil
}
