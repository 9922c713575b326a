package provision_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"camrig/internal/adapter/fake"
	"camrig/internal/provision"
)

// rig wires a Provisioner to fakes for one test scenario.
type rig struct {
	engine    *fake.Engine
	compose   *fake.ComposeRunner
	services  *fake.ServiceManager
	installer *fake.Installer
	prober    *fake.Prober
	times     *fake.TimeSource
	loader    *fake.ManifestLoader
	sleeper   *fake.Sleeper
	opts      provision.Options
}

func newRig(t *testing.T, policy provision.LaunchPolicy) *rig {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "relay")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := filepath.Join(dir, "docker-compose.yml")
	if err := os.WriteFile(manifest, []byte("services:\n  rtsp-relay: {}\n  rtmp-out: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	engine := fake.NewEngine()
	comp := fake.NewComposeRunner()
	comp.Engine = engine
	comp.Project = "relay"
	comp.Services = []string{"rtsp-relay", "rtmp-out"}

	return &rig{
		engine:    engine,
		compose:   comp,
		services:  fake.NewServiceManager(),
		installer: fake.NewInstalledInstaller(),
		prober:    fake.NewProber(),
		times:     fake.NewTimeSource(0),
		loader:    fake.NewManifestLoader("relay", "rtsp-relay", "rtmp-out"),
		sleeper:   fake.NewSleeper(),
		opts: provision.Options{
			ManifestPath: manifest,
			Policy:       policy,
			ServiceUnit:  "docker.service",
		},
	}
}

func (r *rig) provisioner(t *testing.T) *provision.Provisioner {
	t.Helper()
	p, err := provision.New(r.opts, provision.Deps{
		Engine:       r.engine,
		Compose:      r.compose,
		Services:     r.services,
		Installer:    r.installer,
		Manifests:    r.loader,
		NetworkProbe: r.prober,
		TimeSource:   r.times,
		Sleeper:      r.sleeper,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestRunMissingManifest(t *testing.T) {
	r := newRig(t, provision.LaunchCleanRestart)
	r.opts.ManifestPath = filepath.Join(t.TempDir(), "nope", "docker-compose.yml")

	_, err := r.provisioner(t).Run(context.Background())
	if !errors.Is(err, provision.ErrManifestMissing) {
		t.Fatalf("Run() error = %v, want ErrManifestMissing", err)
	}

	// The precondition check precedes every engine operation.
	for name, calls := range map[string]int{
		"engine":    len(r.engine.Calls("")),
		"compose":   len(r.compose.Calls("")),
		"services":  len(r.services.Calls("")),
		"installer": len(r.installer.Calls("")),
	} {
		if calls != 0 {
			t.Fatalf("%s saw %d calls before precondition failure, want 0", name, calls)
		}
	}
}

func TestRunInstallIdempotence(t *testing.T) {
	t.Run("already installed performs no installation", func(t *testing.T) {
		r := newRig(t, provision.LaunchLightweight)

		if _, err := r.provisioner(t).Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if n := r.installer.CallCount("InstallEngine"); n != 0 {
			t.Fatalf("InstallEngine calls = %d, want 0", n)
		}
		if n := r.installer.CallCount("InstallPlugin"); n != 0 {
			t.Fatalf("InstallPlugin calls = %d, want 0", n)
		}
	})

	t.Run("empty host installs engine and plugin", func(t *testing.T) {
		r := newRig(t, provision.LaunchLightweight)
		r.installer = fake.NewInstaller()

		result, err := r.provisioner(t).Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !result.InstalledEngine || !result.InstalledPlugin {
			t.Fatalf("installed engine=%v plugin=%v, want both", result.InstalledEngine, result.InstalledPlugin)
		}
	})
}

func TestRunCleanRestart(t *testing.T) {
	t.Run("existing instances are torn down first", func(t *testing.T) {
		r := newRig(t, provision.LaunchCleanRestart)
		r.engine.AddInstance("relay", "relay-rtsp-relay-1", "old/relay:1")

		result, err := r.provisioner(t).Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !result.ToreDown {
			t.Fatal("expected teardown of previous instances")
		}

		downs := r.compose.Calls("Down")
		if len(downs) != 1 {
			t.Fatalf("Down calls = %d, want 1", len(downs))
		}
		if removeOrphans := downs[0].Args[1].(bool); !removeOrphans {
			t.Fatal("Down must remove orphans")
		}

		// Down happens strictly before Up.
		var order []string
		for _, c := range r.compose.Calls("") {
			if c.Method == "Down" || c.Method == "Up" {
				order = append(order, c.Method)
			}
		}
		if len(order) != 2 || order[0] != "Down" || order[1] != "Up" {
			t.Fatalf("compose call order = %v, want [Down Up]", order)
		}

		ups := r.compose.Calls("Up")
		opts := ups[0].Args[1].(provision.UpOptions)
		if !opts.Build || !opts.RemoveOrphans {
			t.Fatalf("Up opts = %+v, want forced rebuild and orphan removal", opts)
		}
	})

	t.Run("no existing instances skips teardown", func(t *testing.T) {
		r := newRig(t, provision.LaunchCleanRestart)

		result, err := r.provisioner(t).Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.ToreDown {
			t.Fatal("unexpected teardown on clean host")
		}
		if n := r.compose.CallCount("Down"); n != 0 {
			t.Fatalf("Down calls = %d, want 0", n)
		}
	})

	t.Run("stale instances from an old manifest are gone afterwards", func(t *testing.T) {
		r := newRig(t, provision.LaunchCleanRestart)
		r.engine.AddInstance("relay", "relay-old-encoder-1", "old/encoder:1")
		r.engine.AddInstance("relay", "relay-rtsp-relay-1", "old/relay:1")

		result, err := r.provisioner(t).Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		want := map[string]bool{"relay-rtsp-relay-1": true, "relay-rtmp-out-1": true}
		if len(result.Instances) != len(want) {
			t.Fatalf("instances = %+v, want exactly %d matching the current manifest", result.Instances, len(want))
		}
		for _, inst := range result.Instances {
			if !want[inst.Name] {
				t.Fatalf("orphaned instance %q survived a clean restart", inst.Name)
			}
		}
	})
}

func TestRunLightweight(t *testing.T) {
	t.Run("never inspects or tears down prior state", func(t *testing.T) {
		r := newRig(t, provision.LaunchLightweight)
		r.engine.AddInstance("relay", "relay-rtsp-relay-1", "rtsp-relay:latest")

		if _, err := r.provisioner(t).Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if n := r.engine.CallCount("ListProject"); n != 0 {
			t.Fatalf("ListProject calls = %d, want 0", n)
		}
		if n := r.compose.CallCount("Down"); n != 0 {
			t.Fatalf("Down calls = %d, want 0", n)
		}

		ups := r.compose.Calls("Up")
		if len(ups) != 1 {
			t.Fatalf("Up calls = %d, want 1", len(ups))
		}
		if opts := ups[0].Args[1].(provision.UpOptions); opts.Build || opts.RemoveOrphans {
			t.Fatalf("Up opts = %+v, want plain launch", opts)
		}
	})

	t.Run("two runs with an unchanged manifest reconcile to the same state", func(t *testing.T) {
		r := newRig(t, provision.LaunchLightweight)
		p := r.provisioner(t)

		first, err := p.Run(context.Background())
		if err != nil {
			t.Fatalf("first Run() error = %v", err)
		}
		second, err := p.Run(context.Background())
		if err != nil {
			t.Fatalf("second Run() error = %v", err)
		}

		if len(first.Instances) != len(second.Instances) {
			t.Fatalf("instance count changed between runs: %d then %d", len(first.Instances), len(second.Instances))
		}
		if n := r.compose.CallCount("Down"); n != 0 {
			t.Fatalf("Down calls = %d across both runs, want 0", n)
		}
	})
}

func TestRunEmptyHostEndToEnd(t *testing.T) {
	r := newRig(t, provision.LaunchCleanRestart)
	r.installer = fake.NewInstaller()
	r.opts.NetworkWait = provision.GateOptions{
		Enabled: true,
		Policy:  provision.GatePolicy{Interval: 5 * time.Second},
	}
	r.prober.FailuresBeforeSuccess = 2

	result, err := r.provisioner(t).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if r.prober.Attempts() != 3 {
		t.Fatalf("probe attempts = %d, want 3", r.prober.Attempts())
	}
	for _, d := range r.sleeper.Slept() {
		if d != 5*time.Second {
			t.Fatalf("gate slept %s, want fixed 5s interval", d)
		}
	}
	if !result.InstalledEngine || !result.InstalledPlugin {
		t.Fatal("expected engine and plugin installation on an empty host")
	}
	if !r.services.Enabled("docker.service") || !r.services.Started("docker.service") {
		t.Fatal("expected docker.service enabled and started")
	}
	if n := r.engine.CallCount("WaitReady"); n != 1 {
		t.Fatalf("WaitReady calls = %d, want 1", n)
	}

	wantNames := []string{"relay-rtmp-out-1", "relay-rtsp-relay-1"}
	if len(result.Instances) != len(wantNames) {
		t.Fatalf("instances = %+v, want %v", result.Instances, wantNames)
	}
	for i, inst := range result.Instances {
		if inst.Name != wantNames[i] {
			t.Fatalf("instance[%d] = %q, want %q", i, inst.Name, wantNames[i])
		}
	}
}

func TestRunClockSyncGate(t *testing.T) {
	r := newRig(t, provision.LaunchLightweight)
	r.opts.ClockSync = provision.ClockSyncOptions{
		Enabled:   true,
		Policy:    provision.GatePolicy{Interval: time.Second},
		Threshold: 500 * time.Millisecond,
	}
	r.times = fake.NewTimeSource(2*time.Second, 900*time.Millisecond, 100*time.Millisecond)

	if _, err := r.provisioner(t).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n := r.times.CallCount("Offset"); n != 3 {
		t.Fatalf("Offset calls = %d, want 3", n)
	}
}

func TestRunFailFast(t *testing.T) {
	t.Run("launch failure aborts before summary", func(t *testing.T) {
		r := newRig(t, provision.LaunchLightweight)
		r.compose.UpErr = func(context.Context, string, provision.UpOptions) error {
			return fmt.Errorf("no space left on device")
		}

		_, err := r.provisioner(t).Run(context.Background())
		if err == nil {
			t.Fatal("Run() expected error")
		}
		if n := r.engine.CallCount("ListAll"); n != 0 {
			t.Fatalf("ListAll calls = %d after launch failure, want 0", n)
		}
	})

	t.Run("service activation failure aborts before launch", func(t *testing.T) {
		r := newRig(t, provision.LaunchLightweight)
		r.services.StartErr = func(context.Context, string) error {
			return fmt.Errorf("permission denied")
		}

		_, err := r.provisioner(t).Run(context.Background())
		if err == nil {
			t.Fatal("Run() expected error")
		}
		if n := r.compose.CallCount("Up"); n != 0 {
			t.Fatalf("Up calls = %d after activation failure, want 0", n)
		}
	})
}

func TestRunEmitsStepEvents(t *testing.T) {
	r := newRig(t, provision.LaunchLightweight)
	events := make(chan provision.StepEvent, 64)

	p, err := provision.New(r.opts, provision.Deps{
		Engine:    r.engine,
		Compose:   r.compose,
		Services:  r.services,
		Installer: r.installer,
		Manifests: r.loader,
		Sleeper:   r.sleeper,
		Events:    events,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	close(events)

	var done, skipped []string
	for ev := range events {
		switch ev.Type {
		case "step_done":
			done = append(done, ev.Step)
		case "step_skipped":
			skipped = append(skipped, ev.Step)
		}
	}
	wantDone := []string{
		provision.StepCheckManifest,
		provision.StepInstallEngine,
		provision.StepActivateService,
		provision.StepLaunchWorkload,
		provision.StepSummarize,
	}
	if len(done) != len(wantDone) {
		t.Fatalf("done steps = %v, want %v", done, wantDone)
	}
	for i := range wantDone {
		if done[i] != wantDone[i] {
			t.Fatalf("done[%d] = %q, want %q", i, done[i], wantDone[i])
		}
	}
	if len(skipped) != 2 {
		t.Fatalf("skipped steps = %v, want both disabled gates", skipped)
	}
}

func TestNewValidation(t *testing.T) {
	r := newRig(t, provision.LaunchCleanRestart)

	t.Run("bad policy", func(t *testing.T) {
		opts := r.opts
		opts.Policy = "both-at-once"
		if _, err := provision.New(opts, provision.Deps{}); err == nil {
			t.Fatal("New() expected policy error")
		}
	})

	t.Run("network gate without probe", func(t *testing.T) {
		opts := r.opts
		opts.NetworkWait.Enabled = true
		_, err := provision.New(opts, provision.Deps{
			Engine:    r.engine,
			Compose:   r.compose,
			Services:  r.services,
			Installer: r.installer,
			Manifests: r.loader,
		})
		if err == nil {
			t.Fatal("New() expected missing probe error")
		}
	})
}
