package fake

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"camrig/internal/provision"
)

var _ provision.Engine = (*Engine)(nil)

type instanceState struct {
	Project string
	Name    string
	Image   string
	Status  string
	Running bool
}

// Engine is an in-memory implementation of provision.Engine.
type Engine struct {
	CallRecorder
	mu        sync.Mutex
	ready     bool
	instances map[string]*instanceState

	WaitReadyErr   func(ctx context.Context) error
	ListProjectErr func(ctx context.Context, project string) error
	ListAllErr     func(ctx context.Context) error
}

// NewEngine creates an Engine that is ready by default.
func NewEngine() *Engine {
	return &Engine{
		ready:     true,
		instances: make(map[string]*instanceState),
	}
}

func (e *Engine) WaitReady(ctx context.Context) error {
	e.record("WaitReady")
	if e.WaitReadyErr != nil {
		if err := e.WaitReadyErr(ctx); err != nil {
			return err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return fmt.Errorf("engine not ready")
	}
	return nil
}

func (e *Engine) ListProject(ctx context.Context, project string) ([]provision.Instance, error) {
	e.record("ListProject", project)
	if e.ListProjectErr != nil {
		if err := e.ListProjectErr(ctx, project); err != nil {
			return nil, err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []provision.Instance
	for _, inst := range e.instances {
		if inst.Project != project {
			continue
		}
		out = append(out, provision.Instance{Name: inst.Name, Status: inst.Status, Image: inst.Image})
	}
	sortInstances(out)
	return out, nil
}

func (e *Engine) ListAll(ctx context.Context) ([]provision.Instance, error) {
	e.record("ListAll")
	if e.ListAllErr != nil {
		if err := e.ListAllErr(ctx); err != nil {
			return nil, err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []provision.Instance
	for _, inst := range e.instances {
		if !inst.Running {
			continue
		}
		out = append(out, provision.Instance{Name: inst.Name, Status: inst.Status, Image: inst.Image})
	}
	sortInstances(out)
	return out, nil
}

func (e *Engine) Close() error {
	e.record("Close")
	return nil
}

// SetReady controls whether WaitReady succeeds.
func (e *Engine) SetReady(ready bool) {
	e.mu.Lock()
	e.ready = ready
	e.mu.Unlock()
}

// AddInstance seeds a running instance, as if a previous run created it.
func (e *Engine) AddInstance(project, name, image string) {
	e.mu.Lock()
	e.instances[name] = &instanceState{
		Project: project,
		Name:    name,
		Image:   image,
		Status:  "Up 5 minutes",
		Running: true,
	}
	e.mu.Unlock()
}

// RemoveProject removes every instance of a project, orphans included.
func (e *Engine) RemoveProject(project string) {
	e.mu.Lock()
	for name, inst := range e.instances {
		if inst.Project == project {
			delete(e.instances, name)
		}
	}
	e.mu.Unlock()
}

func sortInstances(out []provision.Instance) {
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
}
