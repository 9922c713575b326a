package fake

import (
	"context"
	"fmt"

	"camrig/internal/provision"
)

var _ provision.ComposeRunner = (*ComposeRunner)(nil)

// ComposeRunner is an in-memory implementation of provision.ComposeRunner.
// When linked to a fake Engine it mirrors what the real plugin does: Up
// creates one running instance per declared service (leaving already-correct
// instances untouched), Down removes every project instance.
type ComposeRunner struct {
	CallRecorder

	// Engine, Project, and Services wire the fake to engine state. All three
	// are optional; without an Engine, Up and Down only record calls.
	Engine   *Engine
	Project  string
	Services []string

	VersionValue string
	VersionErr   func(ctx context.Context) error
	UpErr        func(ctx context.Context, manifestPath string, opts provision.UpOptions) error
	DownErr      func(ctx context.Context, manifestPath string, removeOrphans bool) error
}

// NewComposeRunner creates a ComposeRunner reporting a fixed plugin version.
func NewComposeRunner() *ComposeRunner {
	return &ComposeRunner{VersionValue: "2.39.0"}
}

func (r *ComposeRunner) Version(ctx context.Context) (string, error) {
	r.record("Version")
	if r.VersionErr != nil {
		if err := r.VersionErr(ctx); err != nil {
			return "", err
		}
	}
	return r.VersionValue, nil
}

func (r *ComposeRunner) Up(ctx context.Context, manifestPath string, opts provision.UpOptions) error {
	r.record("Up", manifestPath, opts)
	if r.UpErr != nil {
		if err := r.UpErr(ctx, manifestPath, opts); err != nil {
			return err
		}
	}
	if r.Engine == nil {
		return nil
	}
	for _, svc := range r.Services {
		name := fmt.Sprintf("%s-%s-1", r.Project, svc)
		r.Engine.mu.Lock()
		if _, exists := r.Engine.instances[name]; !exists {
			r.Engine.instances[name] = &instanceState{
				Project: r.Project,
				Name:    name,
				Image:   svc + ":latest",
				Status:  "Up 1 second",
				Running: true,
			}
		}
		r.Engine.mu.Unlock()
	}
	return nil
}

func (r *ComposeRunner) Down(ctx context.Context, manifestPath string, removeOrphans bool) error {
	r.record("Down", manifestPath, removeOrphans)
	if r.DownErr != nil {
		if err := r.DownErr(ctx, manifestPath, removeOrphans); err != nil {
			return err
		}
	}
	if r.Engine == nil {
		return nil
	}
	r.Engine.RemoveProject(r.Project)
	return nil
}
