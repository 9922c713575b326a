package main

import (
	"fmt"

	"camrig/cmd/camrig/ui"
	"camrig/config"
	"camrig/internal/adapter/compose"

	"github.com/spf13/cobra"
)

func downCmd(configPath *string) *cobra.Command {
	var keepOrphans bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop and remove the relay stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config %s: %w", *configPath, err)
			}

			if err := compose.NewRunner().Down(cmd.Context(), cfg.Manifest, !keepOrphans); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("relay stack stopped"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepOrphans, "keep-orphans", false, "Leave containers not declared in the manifest running")
	return cmd
}
