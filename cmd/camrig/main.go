package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"camrig/cmd/camrig/ui"
	"camrig/config"
	"camrig/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	var (
		debug      bool
		configPath string
	)

	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "camrig",
		Short:         "Provision a host to run a containerized RTSP→RTMP relay",
		Long:          "camrig brings up a video relay host: it installs the container engine\nand compose plugin, waits for network readiness, activates the engine\ndaemon, and launches the relay stack from a compose manifest.\n\nRun at most one camrig instance per host at a time.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ui.Configure()
			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			return logging.Configure(level)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the camrig config file")

	root.AddCommand(upCmd(&configPath))
	root.AddCommand(downCmd(&configPath))
	root.AddCommand(statusCmd(&configPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorMsg("%v", err))
		os.Exit(1)
	}
}
