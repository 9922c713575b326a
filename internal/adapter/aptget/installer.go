// Package aptget implements provision.Installer for Debian-family hosts
// (Raspberry Pi OS included): the engine comes from the vendor's convenience
// script, the compose plugin from the package manager.
package aptget

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"camrig/internal/provision"
)

const (
	engineBinary     = "docker"
	installScriptURL = "https://get.docker.com"
	pluginPackage    = "docker-compose-plugin"
)

var _ provision.Installer = (*Installer)(nil)

// Installer checks for and installs the container engine and its compose
// plugin. Presence checks are cheap and run first so repeated invocations
// never refetch anything.
type Installer struct{}

func NewInstaller() *Installer {
	return &Installer{}
}

// EngineInstalled reports whether the engine binary is on PATH.
func (Installer) EngineInstalled(_ context.Context) bool {
	_, err := exec.LookPath(engineBinary)
	return err == nil
}

// PluginInstalled reports whether the compose subcommand answers.
func (Installer) PluginInstalled(ctx context.Context) bool {
	return exec.CommandContext(ctx, engineBinary, "compose", "version").Run() == nil
}

// InstallEngine runs the vendor install script. Failures (network,
// permissions, unsupported OS) propagate; the script's own diagnostics are
// included verbatim.
func (Installer) InstallEngine(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", "curl -fsSL "+installScriptURL+" | sh")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("engine install script: %s: %w", tail(out), err)
	}
	return nil
}

// InstallPlugin installs the compose plugin package.
func (Installer) InstallPlugin(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "apt-get", "install", "-y", pluginPackage)
	cmd.Env = append(os.Environ(), "DEBIAN_FRONTEND=noninteractive")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("apt-get install %s: %s: %w", pluginPackage, tail(out), err)
	}
	return nil
}

// tail returns the last few lines of command output, which is where apt and
// the install script put their actual error.
func tail(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "\n")
}
