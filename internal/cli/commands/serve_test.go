package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbmux-labs/dbmux/internal/config"
	"github.com/dbmux-labs/dbmux/internal/hub"
	"github.com/dbmux-labs/dbmux/internal/testutil"

	_ "github.com/dbmux-labs/dbmux/pkg/adapters/sqlite"
)

func memBackend(name string) config.BackendConfig {
	return config.BackendConfig{Name: name, Engine: "sqlite", Database: ":memory:"}
}

func registryNames(reg *hub.Registry) []string {
	list := reg.List()
	names := make([]string, 0, len(list))
	for _, s := range list {
		names = append(names, s.Name)
	}
	return names
}

func TestReconcileBackends(t *testing.T) {
	logger := testutil.NewTestLogger(t)
	ctx := context.Background()

	reg := hub.NewRegistry(logger)
	t.Cleanup(func() { _ = reg.Close() })

	old := []config.BackendConfig{memBackend("keep"), memBackend("drop"), memBackend("retune")}
	seedRegistry(ctx, reg, old, logger)
	require.Len(t, reg.List(), 3)

	off := false
	retuned := memBackend("retune")
	retuned.MaxConnections = 3
	dark := memBackend("dark")
	dark.Active = &off

	next := []config.BackendConfig{memBackend("keep"), retuned, memBackend("fresh"), dark}
	got := reconcileBackends(ctx, reg, old, next, logger)

	assert.Equal(t, next, got)
	assert.Equal(t, []string{"dark", "fresh", "keep", "retune"}, registryNames(reg))

	for _, s := range reg.List() {
		switch s.Name {
		case "dark":
			assert.False(t, s.IsActive, "dark is configured inactive")
		default:
			assert.True(t, s.IsActive, "%s should be active", s.Name)
		}
	}
}

func TestReconcileBackendsToggle(t *testing.T) {
	logger := testutil.NewTestLogger(t)
	ctx := context.Background()

	reg := hub.NewRegistry(logger)
	t.Cleanup(func() { _ = reg.Close() })

	old := []config.BackendConfig{memBackend("main")}
	seedRegistry(ctx, reg, old, logger)

	off := false
	dimmed := memBackend("main")
	dimmed.Active = &off

	next := []config.BackendConfig{dimmed}
	reconcileBackends(ctx, reg, old, next, logger)

	list := reg.List()
	require.Len(t, list, 1)
	assert.False(t, list[0].IsActive)

	reconcileBackends(ctx, reg, next, old, logger)
	list = reg.List()
	require.Len(t, list, 1)
	assert.True(t, list[0].IsActive)
}

func TestReconcileBackendsLeavesAPIBackends(t *testing.T) {
	logger := testutil.NewTestLogger(t)
	ctx := context.Background()

	reg := hub.NewRegistry(logger)
	t.Cleanup(func() { _ = reg.Close() })
	router := hub.NewRouter(reg, logger)

	// Registered over the API, not from the config file.
	require.NoError(t, reg.AddDatabase(ctx, memBackend("adhoc").ToDatabaseConfig()))
	res, err := router.ExecuteOne(ctx, "adhoc", "CREATE TABLE marks (id INTEGER)", nil)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	// The config now claims the same name; the pool must not be replaced.
	next := []config.BackendConfig{memBackend("adhoc")}
	reconcileBackends(ctx, reg, nil, next, logger)

	res, err = router.ExecuteOne(ctx, "adhoc", "SELECT count(*) FROM marks", nil)
	require.NoError(t, err)
	assert.True(t, res.Success, "table should survive the reload: %s", res.Error)
}

func TestReconcileBackendsRetriesFailed(t *testing.T) {
	logger := testutil.NewTestLogger(t)
	ctx := context.Background()

	reg := hub.NewRegistry(logger)
	t.Cleanup(func() { _ = reg.Close() })

	dir := filepath.Join(t.TempDir(), "missing")
	flaky := config.BackendConfig{
		Name:     "flaky",
		Engine:   "sqlite",
		Database: filepath.Join(dir, "data.db"),
	}

	backends := []config.BackendConfig{flaky}
	seedRegistry(ctx, reg, backends, logger)
	require.Empty(t, reg.List(), "registration should fail while the directory is missing")

	require.NoError(t, os.MkdirAll(dir, 0o750))

	// An unchanged config still retries backends that never connected.
	reconcileBackends(ctx, reg, backends, backends, logger)
	assert.Equal(t, []string{"flaky"}, registryNames(reg))
}
