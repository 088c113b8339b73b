package module

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Manager is a named registry of providers for one capability. The first
// provider that registers successfully becomes the default. Registration
// and cleanup happen during setup and teardown; Process calls must not
// race with either.
type Manager[I any, R any] struct {
	mu          sync.RWMutex
	providers   map[string]Provider[I, R]
	defaultName string
	logger      *zap.Logger
}

// NewManager returns an empty manager.
func NewManager[I any, R any](logger *zap.Logger) *Manager[I, R] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager[I, R]{
		providers: map[string]Provider[I, R]{},
		logger:    logger,
	}
}

// Register initializes the provider and, on success, stores it under
// name, marking it default if none is set. Returns the initialize result.
func (m *Manager[I, R]) Register(ctx context.Context, name string, p Provider[I, R]) bool {
	if !p.Initialize(ctx) {
		m.logger.Warn("provider failed to initialize, not registered",
			zap.String("provider", name))
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[name] = p
	if m.defaultName == "" {
		m.defaultName = name
	}
	m.logger.Info("provider registered",
		zap.String("provider", name),
		zap.Bool("default", m.defaultName == name))
	return true
}

// Process dispatches to the named provider, or the default when name is
// empty. Returns ErrProviderNotFound when neither resolves.
func (m *Manager[I, R]) Process(ctx context.Context, input I, providerName string, pctx map[string]any) (R, error) {
	m.mu.RLock()
	if providerName == "" {
		providerName = m.defaultName
	}
	p, ok := m.providers[providerName]
	m.mu.RUnlock()

	if !ok {
		var zero R
		return zero, fmt.Errorf("%w: %q", ErrProviderNotFound, providerName)
	}
	return p.Process(ctx, input, pctx)
}

// HasProviders reports whether any provider is registered.
func (m *Manager[I, R]) HasProviders() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.providers) > 0
}

// DefaultName returns the current default provider name, empty when none.
func (m *Manager[I, R]) DefaultName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultName
}

// Names lists registered provider names, sorted.
func (m *Manager[I, R]) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cleanup cleans up every provider, logging and swallowing individual
// failures, then clears the registry and default pointer.
func (m *Manager[I, R]) Cleanup(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, p := range m.providers {
		if err := p.Cleanup(ctx); err != nil {
			m.logger.Warn("provider cleanup failed",
				zap.String("provider", name),
				zap.Error(err))
		}
	}
	m.providers = map[string]Provider[I, R]{}
	m.defaultName = ""
}
