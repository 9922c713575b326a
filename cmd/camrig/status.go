package main

import (
	"fmt"
	"strconv"

	"camrig/cmd/camrig/ui"
	"camrig/config"
	"camrig/internal/adapter/compose"
	"camrig/internal/adapter/docker"
	"camrig/internal/adapter/systemd"

	"github.com/spf13/cobra"
)

func statusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine state and running instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			services := systemd.NewManager()

			pluginVersion := "not installed"
			if v, err := compose.NewRunner().Version(ctx); err == nil {
				pluginVersion = v
			}

			fmt.Println(ui.KeyValues("  ",
				ui.KV("Manifest", cfg.Manifest),
				ui.KV("Policy", cfg.Policy),
				ui.KV("Unit enabled", strconv.FormatBool(services.Enabled(ctx, cfg.ServiceUnit))),
				ui.KV("Unit active", strconv.FormatBool(services.Active(ctx, cfg.ServiceUnit))),
				ui.KV("Compose plugin", pluginVersion),
			))

			engine, err := docker.NewEngine()
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			instances, err := engine.ListAll(ctx)
			if err != nil {
				return err
			}
			if len(instances) == 0 {
				fmt.Println(ui.Muted("no running instances"))
				return nil
			}

			rows := make([][]string, 0, len(instances))
			for _, inst := range instances {
				rows = append(rows, []string{inst.Name, inst.Status, inst.Image})
			}
			fmt.Println(ui.Table([]string{"Name", "Status", "Image"}, rows))
			return nil
		},
	}
}
