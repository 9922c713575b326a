package fake

import (
	"context"
	"sync"

	"camrig/internal/provision"
)

var _ provision.Installer = (*Installer)(nil)

// Installer is an in-memory implementation of provision.Installer.
type Installer struct {
	CallRecorder
	mu            sync.Mutex
	enginePresent bool
	pluginPresent bool

	InstallEngineErr func(ctx context.Context) error
	InstallPluginErr func(ctx context.Context) error
}

// NewInstaller creates an Installer for an empty host: nothing installed.
func NewInstaller() *Installer {
	return &Installer{}
}

// NewInstalledInstaller creates an Installer for a host that already has the
// engine and plugin.
func NewInstalledInstaller() *Installer {
	return &Installer{enginePresent: true, pluginPresent: true}
}

func (i *Installer) EngineInstalled(_ context.Context) bool {
	i.record("EngineInstalled")
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.enginePresent
}

func (i *Installer) PluginInstalled(_ context.Context) bool {
	i.record("PluginInstalled")
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pluginPresent
}

func (i *Installer) InstallEngine(ctx context.Context) error {
	i.record("InstallEngine")
	if i.InstallEngineErr != nil {
		if err := i.InstallEngineErr(ctx); err != nil {
			return err
		}
	}
	i.mu.Lock()
	i.enginePresent = true
	i.mu.Unlock()
	return nil
}

func (i *Installer) InstallPlugin(ctx context.Context) error {
	i.record("InstallPlugin")
	if i.InstallPluginErr != nil {
		if err := i.InstallPluginErr(ctx); err != nil {
			return err
		}
	}
	i.mu.Lock()
	i.pluginPresent = true
	i.mu.Unlock()
	return nil
}
