// Package provision implements one-shot bring-up of a containerized workload
// host: verify the manifest, wait for readiness, install the engine, activate
// the daemon, launch the workload, and report what is running.
//
// Every external effect goes through an injected port (see ports.go) so the
// whole sequence runs against fakes in tests. Execution is strictly
// sequential and fail-fast: the first failing step aborts the run. The tool
// assumes at most one instance runs against a given host at a time — the
// query-then-act teardown in the clean-restart policy is not atomic with
// respect to a concurrent second run.
package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"camrig/internal/check"
	"camrig/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Step identifiers, in execution order.
const (
	StepCheckManifest   = "check_manifest"
	StepWaitNetwork     = "wait_network"
	StepWaitClock       = "wait_clock_sync"
	StepInstallEngine   = "install_engine"
	StepActivateService = "activate_service"
	StepLaunchWorkload  = "launch_workload"
	StepSummarize       = "summarize"
)

// StepCount is the number of bring-up steps, gates included.
const StepCount = 7

// ErrManifestMissing is the one intentionally distinguished, user-actionable
// error: the operator has not supplied a workload manifest.
var ErrManifestMissing = errors.New("workload manifest not found")

// GateOptions configures one readiness gate.
type GateOptions struct {
	Enabled bool
	Policy  GatePolicy
}

// ClockSyncOptions configures the clock-sync gate.
type ClockSyncOptions struct {
	Enabled   bool
	Policy    GatePolicy
	Threshold time.Duration
}

// Options selects what the bring-up sequence does.
type Options struct {
	ManifestPath string
	Policy       LaunchPolicy
	ServiceUnit  string
	NetworkWait  GateOptions
	ClockSync    ClockSyncOptions
}

// Deps are the injected collaborators. Engine, Compose, Services, Installer,
// and Manifests are required; NetworkProbe and TimeSource only when the
// corresponding gate is enabled. Sleeper, Clock, and Tracer default to real
// implementations. Events is optional and never closed by the provisioner;
// sends are non-blocking.
type Deps struct {
	Engine       Engine
	Compose      ComposeRunner
	Services     ServiceManager
	Installer    Installer
	Manifests    ManifestLoader
	NetworkProbe Prober
	TimeSource   TimeSource
	Sleeper      Sleeper
	Clock        Clock
	Tracer       trace.Tracer
	Events       chan<- StepEvent
}

// Result reports what a run actually did.
type Result struct {
	Manifest        Manifest
	InstalledEngine bool
	InstalledPlugin bool
	ToreDown        bool
	Instances       []Instance
	Elapsed         time.Duration
}

// Provisioner executes the bring-up sequence.
type Provisioner struct {
	opts Options
	deps Deps
}

// New validates options and dependencies and returns a Provisioner.
func New(opts Options, deps Deps) (*Provisioner, error) {
	if _, err := ParseLaunchPolicy(string(opts.Policy)); err != nil {
		return nil, err
	}
	if opts.ManifestPath == "" {
		return nil, fmt.Errorf("manifest path is required")
	}
	if opts.ServiceUnit == "" {
		return nil, fmt.Errorf("service unit is required")
	}
	if deps.Engine == nil || deps.Compose == nil || deps.Services == nil || deps.Installer == nil || deps.Manifests == nil {
		return nil, fmt.Errorf("engine, compose, services, installer, and manifests dependencies are required")
	}
	if opts.NetworkWait.Enabled && deps.NetworkProbe == nil {
		return nil, fmt.Errorf("network probe is required when the network gate is enabled")
	}
	if opts.ClockSync.Enabled && deps.TimeSource == nil {
		return nil, fmt.Errorf("time source is required when the clock-sync gate is enabled")
	}
	if deps.Sleeper == nil {
		deps.Sleeper = RealSleeper{}
	}
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer("camrig/provision")
	}
	return &Provisioner{opts: opts, deps: deps}, nil
}

// Run executes the sequence top to bottom and returns what it did. The
// returned Result is valid as far as the run got, even on error.
func (p *Provisioner) Run(ctx context.Context) (result Result, retErr error) {
	check.Assert(p.deps.Sleeper != nil, "Run: sleeper must not be nil")
	check.Assert(p.deps.Clock != nil, "Run: clock must not be nil")

	started := p.deps.Clock.Now()
	defer func() {
		result.Elapsed = p.deps.Clock.Now().Sub(started)
	}()

	op := telemetry.Start(ctx, p.deps.Tracer, "camrig.provision", StepCount)
	defer func() { op.End(retErr) }()
	ctx = op.Context()

	if err := p.step(ctx, op, StepCheckManifest, "verify workload manifest", func(ctx context.Context) error {
		return p.checkManifest(ctx, &result)
	}); err != nil {
		return result, err
	}

	if err := p.gateStep(ctx, op, StepWaitNetwork, "wait for network", p.opts.NetworkWait.Enabled, func(ctx context.Context) error {
		return WaitGate(ctx, "network", p.opts.NetworkWait.Policy, p.deps.Sleeper, p.deps.NetworkProbe.Probe)
	}); err != nil {
		return result, err
	}

	if err := p.gateStep(ctx, op, StepWaitClock, "wait for clock sync", p.opts.ClockSync.Enabled, func(ctx context.Context) error {
		return WaitGate(ctx, "clock", p.opts.ClockSync.Policy, p.deps.Sleeper, p.clockProbe)
	}); err != nil {
		return result, err
	}

	if err := p.step(ctx, op, StepInstallEngine, "install container engine", func(ctx context.Context) error {
		return p.installDeps(ctx, &result)
	}); err != nil {
		return result, err
	}

	if err := p.step(ctx, op, StepActivateService, "activate engine service", func(ctx context.Context) error {
		return p.activateService(ctx)
	}); err != nil {
		return result, err
	}

	if err := p.step(ctx, op, StepLaunchWorkload, "launch workload", func(ctx context.Context) error {
		return p.launch(ctx, &result)
	}); err != nil {
		return result, err
	}

	if err := p.step(ctx, op, StepSummarize, "list running instances", func(ctx context.Context) error {
		instances, err := p.deps.Engine.ListAll(ctx)
		if err != nil {
			return err
		}
		result.Instances = instances
		return nil
	}); err != nil {
		return result, err
	}

	return result, nil
}

// step runs fn inside a telemetry span, emitting progress events and wrapping
// the error with a human-readable step label.
func (p *Provisioner) step(ctx context.Context, op *telemetry.Operation, id, label string, fn func(context.Context) error) error {
	emit(p.deps.Events, StepEvent{Type: "step_started", Step: id, Message: label})
	if err := op.RunStep(ctx, id, fn); err != nil {
		emit(p.deps.Events, StepEvent{Type: "step_failed", Step: id, Message: err.Error()})
		return fmt.Errorf("%s: %w", label, err)
	}
	emit(p.deps.Events, StepEvent{Type: "step_done", Step: id, Message: label})
	return nil
}

func (p *Provisioner) gateStep(ctx context.Context, op *telemetry.Operation, id, label string, enabled bool, fn func(context.Context) error) error {
	if !enabled {
		emit(p.deps.Events, StepEvent{Type: "step_skipped", Step: id, Message: label})
		return nil
	}
	return p.step(ctx, op, id, label, fn)
}

// checkManifest verifies the manifest exists and loads its project name and
// declared service names. Runs before any engine operation.
func (p *Provisioner) checkManifest(ctx context.Context, result *Result) error {
	if _, err := os.Stat(p.opts.ManifestPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w at %s, copy your relay compose file there and rerun", ErrManifestMissing, p.opts.ManifestPath)
		}
		return fmt.Errorf("stat manifest %s: %w", p.opts.ManifestPath, err)
	}

	m, err := p.deps.Manifests.Load(ctx, p.opts.ManifestPath)
	if err != nil {
		return fmt.Errorf("load manifest %s: %w", p.opts.ManifestPath, err)
	}
	result.Manifest = m
	return nil
}

// clockProbe succeeds once the host clock is within threshold of the
// reference clock. Query errors count as "not yet synced" and are retried by
// the gate, since DNS itself may not be up yet.
func (p *Provisioner) clockProbe(ctx context.Context) error {
	offset, err := p.deps.TimeSource.Offset(ctx)
	if err != nil {
		return err
	}
	if offset < 0 {
		offset = -offset
	}
	if offset > p.opts.ClockSync.Threshold {
		return fmt.Errorf("clock offset %s exceeds threshold %s", offset, p.opts.ClockSync.Threshold)
	}
	return nil
}

// installDeps installs the engine and the compose plugin, skipping whatever
// is already present. Installation failures propagate fatally.
func (p *Provisioner) installDeps(ctx context.Context, result *Result) error {
	if !p.deps.Installer.EngineInstalled(ctx) {
		if err := p.deps.Installer.InstallEngine(ctx); err != nil {
			return fmt.Errorf("install engine: %w", err)
		}
		result.InstalledEngine = true
	}
	if !p.deps.Installer.PluginInstalled(ctx) {
		if err := p.deps.Installer.InstallPlugin(ctx); err != nil {
			return fmt.Errorf("install compose plugin: %w", err)
		}
		result.InstalledPlugin = true
	}
	return nil
}

// activateService enables the engine unit at boot, starts it now, and waits
// until the daemon answers.
func (p *Provisioner) activateService(ctx context.Context) error {
	if err := p.deps.Services.Enable(ctx, p.opts.ServiceUnit); err != nil {
		return fmt.Errorf("enable %s: %w", p.opts.ServiceUnit, err)
	}
	if err := p.deps.Services.Start(ctx, p.opts.ServiceUnit); err != nil {
		return fmt.Errorf("start %s: %w", p.opts.ServiceUnit, err)
	}
	if err := p.deps.Engine.WaitReady(ctx); err != nil {
		return fmt.Errorf("wait for engine: %w", err)
	}
	return nil
}

// launch applies the selected launch policy.
func (p *Provisioner) launch(ctx context.Context, result *Result) error {
	switch p.opts.Policy {
	case LaunchCleanRestart:
		existing, err := p.deps.Engine.ListProject(ctx, result.Manifest.Project)
		if err != nil {
			return fmt.Errorf("list project instances: %w", err)
		}
		if len(existing) > 0 {
			if err := p.deps.Compose.Down(ctx, p.opts.ManifestPath, true); err != nil {
				return fmt.Errorf("tear down previous workload: %w", err)
			}
			result.ToreDown = true
		}
		if err := p.deps.Compose.Up(ctx, p.opts.ManifestPath, UpOptions{Build: true, RemoveOrphans: true}); err != nil {
			return fmt.Errorf("bring up workload: %w", err)
		}
	case LaunchLightweight:
		if err := p.deps.Compose.Up(ctx, p.opts.ManifestPath, UpOptions{}); err != nil {
			return fmt.Errorf("bring up workload: %w", err)
		}
	default:
		return fmt.Errorf("unknown launch policy %q", p.opts.Policy)
	}
	return nil
}
