package adapter

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/dbmux-labs/dbmux/pkg/core"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[core.Engine]func(*slog.Logger) Adapter)
)

// Register adds an adapter factory for an engine.
// Called by adapter implementations in their init() functions.
func Register(engine core.Engine, factory func(*slog.Logger) Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[engine] = factory
}

// Get retrieves the adapter factory for an engine.
func Get(engine core.Engine) (func(*slog.Logger) Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[engine]
	return f, ok
}

// New creates an adapter instance for cfg's engine.
// The logger parameter is passed to the adapter constructor (nil uses
// a discard logger).
//
// An engine outside core.KnownEngines yields UnknownEngineError; a
// known engine whose adapter package was not linked into this build
// yields DriverUnavailableError.
func New(cfg core.DatabaseConfig, logger *slog.Logger) (Adapter, error) {
	if !cfg.Engine.Known() {
		return nil, &core.UnknownEngineError{
			Engine:    cfg.Engine,
			Available: core.KnownEngines(),
		}
	}
	factory, ok := Get(cfg.Engine)
	if !ok {
		return nil, &core.DriverUnavailableError{Engine: cfg.Engine}
	}
	return factory(logger), nil
}

// Registered returns all engines with a linked-in adapter (sorted).
func Registered() []core.Engine {
	registryMu.RLock()
	defer registryMu.RUnlock()
	engines := make([]core.Engine, 0, len(registry))
	for e := range registry {
		engines = append(engines, e)
	}
	sort.Slice(engines, func(i, j int) bool { return engines[i] < engines[j] })
	return engines
}

// IsRegistered checks if an engine's adapter is linked into this build.
func IsRegistered(engine core.Engine) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[engine]
	return ok
}
