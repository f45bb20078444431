package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dbmux-labs/dbmux/pkg/core"
)

// healthProbe is the statement Health runs through the ordinary
// execution path.
const healthProbe = "SELECT 1"

// Router dispatches queries to one named backend or fans them out to
// all active backends. Execution failures are captured per backend;
// the only errors a Router method returns are routing failures
// (unknown backend name).
type Router struct {
	registry *Registry
	logger   *slog.Logger
}

// NewRouter creates a router over a registry.
// If logger is nil, a discard logger is used.
func NewRouter(registry *Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{registry: registry, logger: logger}
}

// ExecuteOne runs a query against one named backend. The returned
// error is non-nil only when no backend is registered under name;
// backend failures come back inside the QueryResult.
func (r *Router) ExecuteOne(ctx context.Context, name, query string, params *core.Params) (*core.QueryResult, error) {
	b, err := r.registry.lookup(name)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, b, query, params), nil
}

// ExecuteAll fans the query out to every active backend, one
// goroutine per backend. Partial failure is a per-entry property: the
// map always carries one result per active backend.
func (r *Router) ExecuteAll(ctx context.Context, query string, params *core.Params) map[string]*core.QueryResult {
	backends := r.registry.activeBackends()
	results := make([]*core.QueryResult, len(backends))

	var wg sync.WaitGroup
	for i, b := range backends {
		wg.Add(1)
		go func(idx int, b *backend) {
			defer wg.Done()
			results[idx] = r.run(ctx, b, query, params)
		}(i, b)
	}
	wg.Wait()

	out := make(map[string]*core.QueryResult, len(results))
	for _, res := range results {
		out[res.BackendName] = res
	}
	return out
}

// run executes one statement against one backend under its configured
// timeout and wraps the outcome in a QueryResult.
func (r *Router) run(ctx context.Context, b *backend, query string, params *core.Params) *core.QueryResult {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	start := time.Now()
	rs, err := b.adp.Execute(ctx, query, params)
	elapsed := time.Since(start)

	if err != nil {
		// Drivers surface an interrupt as their own error; the context
		// records whose deadline actually fired.
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%v: %w", err, ctxErr)
		}
		res := core.Failed(b.cfg.Name, query, err, elapsed)
		r.logger.Warn("query failed",
			slog.String("database", b.cfg.Name),
			slog.String("kind", string(res.ErrorKind)),
			slog.Any("error", err))
		return res
	}

	r.logger.Debug("query executed",
		slog.String("database", b.cfg.Name),
		slog.Int("rows", rs.RowCount),
		slog.Duration("elapsed", elapsed))
	return core.Succeeded(b.cfg.Name, query, rs, elapsed)
}

// Health probes one backend with SELECT 1 through the ordinary
// execution path.
func (r *Router) Health(ctx context.Context, name string) (*core.HealthStatus, error) {
	b, err := r.registry.lookup(name)
	if err != nil {
		return nil, err
	}

	res := r.run(ctx, b, healthProbe, nil)
	return &core.HealthStatus{
		BackendName:  name,
		Healthy:      res.Success,
		ResponseTime: res.ExecutionTime,
		Error:        res.Error,
	}, nil
}

// GetSchema introspects one named backend. Introspection failures are
// captured in the description envelope, mirroring QueryResult.
func (r *Router) GetSchema(ctx context.Context, name string) (*core.SchemaDescription, error) {
	b, err := r.registry.lookup(name)
	if err != nil {
		return nil, err
	}
	return r.describe(ctx, b), nil
}

// GetAllSchemas introspects every active backend concurrently.
func (r *Router) GetAllSchemas(ctx context.Context) map[string]*core.SchemaDescription {
	backends := r.registry.activeBackends()
	results := make([]*core.SchemaDescription, len(backends))

	var wg sync.WaitGroup
	for i, b := range backends {
		wg.Add(1)
		go func(idx int, b *backend) {
			defer wg.Done()
			results[idx] = r.describe(ctx, b)
		}(i, b)
	}
	wg.Wait()

	out := make(map[string]*core.SchemaDescription, len(results))
	for _, desc := range results {
		out[desc.BackendName] = desc
	}
	return out
}

func (r *Router) describe(ctx context.Context, b *backend) *core.SchemaDescription {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	desc := &core.SchemaDescription{
		BackendName: b.cfg.Name,
		Engine:      b.cfg.Engine,
	}

	tables, err := b.adp.Schema(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%v: %w", err, ctxErr)
		}
		desc.Tables = []core.TableSchema{}
		desc.Error = err.Error()
		desc.ErrorKind = core.ClassifyError(err)
		r.logger.Warn("schema introspection failed",
			slog.String("database", b.cfg.Name), slog.Any("error", err))
		return desc
	}
	if tables == nil {
		tables = []core.TableSchema{}
	}
	desc.Tables = tables
	desc.Success = true
	return desc
}

// Search runs the catalog metadata search on every active backend. A
// backend with zero matches contributes an empty slice; so does a
// backend that errored (the failure is logged).
func (r *Router) Search(ctx context.Context, term, tablePattern string) map[string][]core.MetadataMatch {
	backends := r.registry.activeBackends()
	results := make([][]core.MetadataMatch, len(backends))

	var wg sync.WaitGroup
	for i, b := range backends {
		wg.Add(1)
		go func(idx int, b *backend) {
			defer wg.Done()
			results[idx] = r.searchOne(ctx, b, term, tablePattern)
		}(i, b)
	}
	wg.Wait()

	out := make(map[string][]core.MetadataMatch, len(backends))
	for i, b := range backends {
		out[b.cfg.Name] = results[i]
	}
	return out
}

func (r *Router) searchOne(ctx context.Context, b *backend, term, tablePattern string) []core.MetadataMatch {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	matches, err := b.adp.SearchMetadata(ctx, term, tablePattern)
	if err != nil {
		r.logger.Error("search failed",
			slog.String("database", b.cfg.Name), slog.Any("error", err))
		return []core.MetadataMatch{}
	}
	if matches == nil {
		matches = []core.MetadataMatch{}
	}
	return matches
}
