// Package compose shells out to the Docker Compose plugin and loads manifest
// metadata with compose-go. The plugin owns container creation; camrig only
// tells it which way to launch.
package compose

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"camrig/internal/provision"
)

var _ provision.ComposeRunner = (*Runner)(nil)

// Runner invokes the compose plugin through the engine CLI. Commands run in
// the manifest's directory so relative references inside it resolve.
type Runner struct {
	bin string
}

// NewRunner returns a Runner using the "docker" binary on PATH.
func NewRunner() *Runner {
	return &Runner{bin: "docker"}
}

// Version reports the installed compose plugin version.
func (r *Runner) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, r.bin, "compose", "version", "--short").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("docker compose version: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Up brings the manifest's services up detached.
func (r *Runner) Up(ctx context.Context, manifestPath string, opts provision.UpOptions) error {
	return r.run(ctx, manifestPath, upArgs(manifestPath, opts))
}

// Down tears the manifest's services down.
func (r *Runner) Down(ctx context.Context, manifestPath string, removeOrphans bool) error {
	return r.run(ctx, manifestPath, downArgs(manifestPath, removeOrphans))
}

func (r *Runner) run(ctx context.Context, manifestPath string, args []string) error {
	cmd := exec.CommandContext(ctx, r.bin, args...)
	cmd.Dir = filepath.Dir(manifestPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %s: %w", r.bin, strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return nil
}

func upArgs(manifestPath string, opts provision.UpOptions) []string {
	args := []string{"compose", "-f", manifestPath, "up", "-d"}
	if opts.Build {
		args = append(args, "--build")
	}
	if opts.RemoveOrphans {
		args = append(args, "--remove-orphans")
	}
	return args
}

func downArgs(manifestPath string, removeOrphans bool) []string {
	args := []string{"compose", "-f", manifestPath, "down"}
	if removeOrphans {
		args = append(args, "--remove-orphans")
	}
	return args
}
