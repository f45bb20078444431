// Package hub implements the routing core: a registry of named
// database backends and a router that executes queries against one or
// all of them.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dbmux-labs/dbmux/pkg/adapter"
	"github.com/dbmux-labs/dbmux/pkg/core"
)

// backend pairs a registered config with its live adapter. Config
// fields other than IsActive are immutable after registration, so
// fan-out tasks may read them without holding the registry lock.
type backend struct {
	cfg core.DatabaseConfig
	adp adapter.Adapter
}

// Registry holds named database backends. Mutations are serialized
// under one write lock; lookups and listings run under the read lock.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]*backend
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
// If logger is nil, a discard logger is used.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		backends: make(map[string]*backend),
		logger:   logger,
	}
}

// AddDatabase validates cfg, connects its adapter (open + ping under
// the backend's timeout) and registers it. Registration is fail-fast:
// on any error nothing is retained.
func (r *Registry) AddDatabase(ctx context.Context, cfg core.DatabaseConfig) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid database config: %w", err)
	}
	// Backends always enter the registry active; SetActive deactivates.
	cfg.IsActive = true

	r.mu.RLock()
	_, exists := r.backends[cfg.Name]
	r.mu.RUnlock()
	if exists {
		return &core.DuplicateNameError{Name: cfg.Name}
	}

	adp, err := adapter.New(cfg, r.logger)
	if err != nil {
		return err
	}

	// Connect outside the lock so a slow backend cannot stall the
	// registry.
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := adp.Connect(connectCtx, cfg); err != nil {
		return fmt.Errorf("failed to connect database %q: %w", cfg.Name, err)
	}

	r.mu.Lock()
	if _, exists := r.backends[cfg.Name]; exists {
		r.mu.Unlock()
		_ = adp.Close()
		return &core.DuplicateNameError{Name: cfg.Name}
	}
	r.backends[cfg.Name] = &backend{cfg: cfg, adp: adp}
	r.mu.Unlock()

	r.logger.Info("database registered",
		slog.String("name", cfg.Name),
		slog.String("engine", string(cfg.Engine)))
	return nil
}

// RemoveDatabase deregisters a backend and closes its pool. The entry
// is removed under the write lock and the pool closed outside it:
// in-flight checkouts finish on their own, while queries issued after
// removal fail with NotFoundError.
func (r *Registry) RemoveDatabase(name string) error {
	r.mu.Lock()
	b, ok := r.backends[name]
	if !ok {
		r.mu.Unlock()
		return &core.NotFoundError{Name: name}
	}
	delete(r.backends, name)
	r.mu.Unlock()

	if err := b.adp.Close(); err != nil {
		r.logger.Error("failed to close database pool",
			slog.String("name", name), slog.Any("error", err))
	}
	r.logger.Info("database removed", slog.String("name", name))
	return nil
}

// SetActive toggles a backend's participation in fan-out operations.
// The only permitted post-registration mutation.
func (r *Registry) SetActive(name string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.backends[name]
	if !ok {
		return &core.NotFoundError{Name: name}
	}
	b.cfg.IsActive = active
	return nil
}

// List returns a read-only snapshot of the registered backends,
// sorted by name. Credentials are never included.
func (r *Registry) List() []core.DatabaseSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.DatabaseSummary, 0, len(r.backends))
	for _, b := range r.backends {
		out = append(out, b.cfg.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Close shuts down every backend pool. Errors are joined.
func (r *Registry) Close() error {
	r.mu.Lock()
	backends := r.backends
	r.backends = make(map[string]*backend)
	r.mu.Unlock()

	var errs []error
	for name, b := range backends {
		if err := b.adp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		} else {
			r.logger.Info("closed database pool", slog.String("name", name))
		}
	}
	return errors.Join(errs...)
}

// lookup fetches one backend for routing.
func (r *Registry) lookup(name string) (*backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	if !ok {
		return nil, &core.NotFoundError{Name: name}
	}
	return b, nil
}

// activeBackends snapshots the backends participating in fan-out.
func (r *Registry) activeBackends() []*backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*backend, 0, len(r.backends))
	for _, b := range r.backends {
		if b.cfg.IsActive {
			out = append(out, b)
		}
	}
	return out
}
