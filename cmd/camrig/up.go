package main

import (
	"fmt"
	"time"

	"camrig/cmd/camrig/ui"
	"camrig/config"
	"camrig/internal/adapter/aptget"
	"camrig/internal/adapter/compose"
	"camrig/internal/adapter/docker"
	"camrig/internal/adapter/probe"
	"camrig/internal/adapter/systemd"
	"camrig/internal/provision"

	"github.com/spf13/cobra"
)

func upCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Provision the host and launch the relay stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config %s: %w", *configPath, err)
			}

			policy, err := provision.ParseLaunchPolicy(cfg.Policy)
			if err != nil {
				return err
			}

			engine, err := docker.NewEngine()
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			events := make(chan provision.StepEvent, 64)
			done := make(chan struct{})
			go func() {
				defer close(done)
				for ev := range events {
					printStepEvent(ev)
				}
			}()

			prov, err := provision.New(provision.Options{
				ManifestPath: cfg.Manifest,
				Policy:       policy,
				ServiceUnit:  cfg.ServiceUnit,
				NetworkWait: provision.GateOptions{
					Enabled: cfg.NetworkWait.Enabled,
					Policy:  provision.GatePolicy{Interval: time.Duration(cfg.NetworkWait.Interval)},
				},
				ClockSync: provision.ClockSyncOptions{
					Enabled:   cfg.ClockSync.Enabled,
					Policy:    provision.GatePolicy{Interval: time.Duration(cfg.ClockSync.Interval)},
					Threshold: time.Duration(cfg.ClockSync.Threshold),
				},
			}, provision.Deps{
				Engine:       engine,
				Compose:      compose.NewRunner(),
				Services:     systemd.NewManager(),
				Installer:    aptget.NewInstaller(),
				Manifests:    compose.NewManifestLoader(),
				NetworkProbe: probe.Ping{Address: cfg.NetworkWait.Address},
				TimeSource:   probe.NTP{Pool: cfg.ClockSync.Pool},
				Events:       events,
			})
			if err != nil {
				return err
			}

			result, runErr := prov.Run(cmd.Context())
			close(events)
			<-done
			if runErr != nil {
				return runErr
			}

			printSummary(cfg.Manifest, result)
			return nil
		},
	}
}

func printStepEvent(ev provision.StepEvent) {
	switch ev.Type {
	case "step_started":
		fmt.Println(ui.InfoMsg("%s", ev.Message))
	case "step_done":
		fmt.Println(ui.SuccessMsg("%s", ev.Message))
	case "step_skipped":
		fmt.Println(ui.Muted("- " + ev.Message + " (skipped)"))
	case "step_failed":
		fmt.Println(ui.ErrorMsg("%s", ev.Message))
	}
}

func printSummary(manifestPath string, result provision.Result) {
	if result.InstalledEngine {
		fmt.Println(ui.SuccessMsg("installed container engine"))
	}
	if result.InstalledPlugin {
		fmt.Println(ui.SuccessMsg("installed compose plugin"))
	}
	if result.ToreDown {
		fmt.Println(ui.InfoMsg("removed previous %s instances before relaunch", ui.Accent(result.Manifest.Project)))
	}

	if len(result.Instances) == 0 {
		fmt.Println(ui.WarnMsg("no running instances"))
	} else {
		rows := make([][]string, 0, len(result.Instances))
		for _, inst := range result.Instances {
			rows = append(rows, []string{inst.Name, inst.Status, inst.Image})
		}
		fmt.Println(ui.Table([]string{"Name", "Status", "Image"}, rows))
	}

	fmt.Print(ui.Hints(manifestPath))
	fmt.Println(ui.Muted(fmt.Sprintf("done in %s", result.Elapsed.Round(time.Millisecond))))
}
