package provision

import (
	"context"
	"time"
)

// Clock abstracts time.Now() for deterministic testing.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Sleeper abstracts the delay between readiness-gate attempts.
// Production: RealSleeper. Testing: a fake that counts calls.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper sleeps on a timer, honoring context cancellation.
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Instance describes one workload container known to the engine.
type Instance struct {
	Name   string
	Status string
	Image  string
}

// Engine abstracts the container engine control surface.
// Production: adapter/docker.Engine (wrapping the Docker API client)
// Testing: adapter/fake.Engine
type Engine interface {
	// WaitReady blocks until the engine daemon answers.
	WaitReady(ctx context.Context) error
	// ListProject returns instances labeled with the given compose project,
	// running or not. Used to decide whether a clean restart must tear down.
	ListProject(ctx context.Context, project string) ([]Instance, error)
	// ListAll returns all running instances with name, status, and image.
	ListAll(ctx context.Context) ([]Instance, error)
	Close() error
}

// UpOptions control a workload launch.
type UpOptions struct {
	Build         bool
	RemoveOrphans bool
}

// ComposeRunner abstracts the compose plugin. Both Up and Down run in the
// manifest's directory so relative references inside it resolve.
// Production: adapter/compose.Runner (shelling out to the plugin)
// Testing: adapter/fake.ComposeRunner
type ComposeRunner interface {
	Version(ctx context.Context) (string, error)
	Up(ctx context.Context, manifestPath string, opts UpOptions) error
	Down(ctx context.Context, manifestPath string, removeOrphans bool) error
}

// ServiceManager abstracts the host service-control surface.
// Production: adapter/systemd.Manager
// Testing: adapter/fake.ServiceManager
type ServiceManager interface {
	// Enable registers the unit to start at boot. Idempotent.
	Enable(ctx context.Context, unit string) error
	// Start starts the unit now. Idempotent.
	Start(ctx context.Context, unit string) error
}

// Installer abstracts engine and plugin installation.
// Production: adapter/aptget.Installer (vendor script + package manager)
// Testing: adapter/fake.Installer
type Installer interface {
	EngineInstalled(ctx context.Context) bool
	PluginInstalled(ctx context.Context) bool
	InstallEngine(ctx context.Context) error
	InstallPlugin(ctx context.Context) error
}

// Prober makes a single reachability attempt per call.
// Production: adapter/probe.Ping (one ICMP echo)
// Testing: adapter/fake.Prober
type Prober interface {
	Probe(ctx context.Context) error
}

// TimeSource reports the offset between the host clock and a reference
// clock, one query per call.
// Production: adapter/probe.NTP
// Testing: adapter/fake.TimeSource
type TimeSource interface {
	Offset(ctx context.Context) (time.Duration, error)
}

// Manifest describes the loaded workload manifest.
type Manifest struct {
	Path     string
	Project  string
	Services []string
}

// ManifestLoader reads a manifest and reports its project name and declared
// service names. Content beyond that is the engine's business.
// Production: adapter/compose.ManifestLoader
// Testing: adapter/fake.ManifestLoader
type ManifestLoader interface {
	Load(ctx context.Context, path string) (Manifest, error)
}
