package hub

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbmux-labs/dbmux/internal/testutil"
	"github.com/dbmux-labs/dbmux/pkg/core"

	// Only the sqlite adapter is linked into this test binary, so the
	// other engines exercise the driver-unavailable path.
	_ "github.com/dbmux-labs/dbmux/pkg/adapters/sqlite"
)

func memoryConfig(name string) core.DatabaseConfig {
	return core.DatabaseConfig{
		Name:     name,
		Engine:   core.EngineSQLite,
		Database: ":memory:",
	}
}

func newHub(t *testing.T) (*Registry, *Router) {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	reg := NewRegistry(logger)
	t.Cleanup(func() { _ = reg.Close() })
	return reg, NewRouter(reg, logger)
}

func addBackend(t *testing.T, reg *Registry, name string) {
	t.Helper()
	require.NoError(t, reg.AddDatabase(context.Background(), memoryConfig(name)))
}

func mustExec(t *testing.T, router *Router, name, query string, params *core.Params) *core.QueryResult {
	t.Helper()
	res, err := router.ExecuteOne(context.Background(), name, query, params)
	require.NoError(t, err)
	require.True(t, res.Success, "query %q failed: %s", query, res.Error)
	return res
}

func TestAddDatabaseAndList(t *testing.T) {
	reg, _ := newHub(t)
	addBackend(t, reg, "beta")
	addBackend(t, reg, "alpha")

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "beta", list[1].Name)
	assert.Equal(t, core.EngineSQLite, list[0].Engine)
	assert.Equal(t, ":memory:", list[0].Database)
	assert.True(t, list[0].IsActive)
}

func TestAddDatabaseAppliesDefaults(t *testing.T) {
	reg, _ := newHub(t)
	addBackend(t, reg, "main")

	b, err := reg.lookup("main")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultMaxConnections, b.cfg.MaxConnections)
	assert.Equal(t, core.DefaultTimeout, b.cfg.Timeout)
	assert.True(t, b.cfg.IsActive)
}

func TestAddDatabaseValidation(t *testing.T) {
	reg, _ := newHub(t)

	tests := []struct {
		name    string
		cfg     core.DatabaseConfig
		wantErr string
	}{
		{
			name:    "missing name",
			cfg:     core.DatabaseConfig{Engine: core.EngineSQLite, Database: ":memory:"},
			wantErr: "database name is required",
		},
		{
			name:    "missing engine",
			cfg:     core.DatabaseConfig{Name: "x", Database: ":memory:"},
			wantErr: "engine is required",
		},
		{
			name:    "missing database",
			cfg:     core.DatabaseConfig{Name: "x", Engine: core.EngineSQLite},
			wantErr: "database name or connection string is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.AddDatabase(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, reg.List())
}

func TestAddDatabaseDuplicate(t *testing.T) {
	reg, _ := newHub(t)
	addBackend(t, reg, "sales")

	err := reg.AddDatabase(context.Background(), memoryConfig("sales"))
	var dup *core.DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "sales", dup.Name)
	assert.Len(t, reg.List(), 1)
}

func TestAddDatabaseUnknownEngine(t *testing.T) {
	reg, _ := newHub(t)

	err := reg.AddDatabase(context.Background(), core.DatabaseConfig{
		Name:     "legacy",
		Engine:   core.Engine("oracle"),
		Database: "legacy.db",
	})
	var unknown *core.UnknownEngineError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, core.Engine("oracle"), unknown.Engine)
	assert.Equal(t, core.KnownEngines(), unknown.Available)
}

func TestAddDatabaseDriverUnavailable(t *testing.T) {
	reg, _ := newHub(t)

	err := reg.AddDatabase(context.Background(), core.DatabaseConfig{
		Name:     "events",
		Engine:   core.EngineClickHouse,
		Database: "metrics",
	})
	var unavailable *core.DriverUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, core.EngineClickHouse, unavailable.Engine)
	assert.Empty(t, reg.List())
}

func TestAddDatabaseConnectFailure(t *testing.T) {
	reg, _ := newHub(t)

	err := reg.AddDatabase(context.Background(), core.DatabaseConfig{
		Name:     "broken",
		Engine:   core.EngineSQLite,
		Database: filepath.Join(t.TempDir(), "missing", "db.sqlite"),
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, `failed to connect database "broken"`)
	assert.Empty(t, reg.List())
}

func TestRemoveDatabase(t *testing.T) {
	reg, router := newHub(t)
	addBackend(t, reg, "temp")

	require.NoError(t, reg.RemoveDatabase("temp"))
	assert.Empty(t, reg.List())

	_, err := router.ExecuteOne(context.Background(), "temp", "SELECT 1", nil)
	var notFound *core.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "temp", notFound.Name)

	require.ErrorAs(t, reg.RemoveDatabase("temp"), &notFound)
}

func TestSetActive(t *testing.T) {
	reg, _ := newHub(t)
	addBackend(t, reg, "main")

	var notFound *core.NotFoundError
	require.ErrorAs(t, reg.SetActive("ghost", false), &notFound)

	require.NoError(t, reg.SetActive("main", false))
	assert.False(t, reg.List()[0].IsActive)

	require.NoError(t, reg.SetActive("main", true))
	assert.True(t, reg.List()[0].IsActive)
}

func TestRegistryClose(t *testing.T) {
	reg, router := newHub(t)
	addBackend(t, reg, "a")
	addBackend(t, reg, "b")

	require.NoError(t, reg.Close())
	assert.Empty(t, reg.List())

	_, err := router.ExecuteOne(context.Background(), "a", "SELECT 1", nil)
	var notFound *core.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestConcurrentAddSameName(t *testing.T) {
	reg, _ := newHub(t)

	const workers = 4
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- reg.AddDatabase(context.Background(), memoryConfig("contended"))
		}()
	}
	wg.Wait()
	close(errs)

	var registered, duplicates int
	for err := range errs {
		if err == nil {
			registered++
			continue
		}
		var dup *core.DuplicateNameError
		require.ErrorAs(t, err, &dup)
		duplicates++
	}
	assert.Equal(t, 1, registered)
	assert.Equal(t, workers-1, duplicates)
	assert.Len(t, reg.List(), 1)
}
