package fake

import (
	"context"
	"sync"

	"camrig/internal/provision"
)

var _ provision.ServiceManager = (*ServiceManager)(nil)

// ServiceManager is an in-memory implementation of provision.ServiceManager.
type ServiceManager struct {
	CallRecorder
	mu      sync.Mutex
	enabled map[string]bool
	started map[string]bool

	EnableErr func(ctx context.Context, unit string) error
	StartErr  func(ctx context.Context, unit string) error
}

func NewServiceManager() *ServiceManager {
	return &ServiceManager{
		enabled: make(map[string]bool),
		started: make(map[string]bool),
	}
}

func (m *ServiceManager) Enable(ctx context.Context, unit string) error {
	m.record("Enable", unit)
	if m.EnableErr != nil {
		if err := m.EnableErr(ctx, unit); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.enabled[unit] = true
	m.mu.Unlock()
	return nil
}

func (m *ServiceManager) Start(ctx context.Context, unit string) error {
	m.record("Start", unit)
	if m.StartErr != nil {
		if err := m.StartErr(ctx, unit); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.started[unit] = true
	m.mu.Unlock()
	return nil
}

// Enabled reports whether Enable was called for unit.
func (m *ServiceManager) Enabled(unit string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled[unit]
}

// Started reports whether Start was called for unit.
func (m *ServiceManager) Started(unit string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started[unit]
}
