package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbmux-labs/dbmux/pkg/core"
)

func newConnected(t *testing.T) *Adapter {
	t.Helper()
	adp := New(nil)
	cfg := core.DatabaseConfig{Name: "test", Engine: core.EngineDuckDB, Database: ":memory:"}
	cfg.ApplyDefaults()
	require.NoError(t, adp.Connect(context.Background(), cfg))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			cfg := core.DatabaseConfig{Name: "t", Engine: core.EngineDuckDB, Database: dbPath}
			cfg.ApplyDefaults()
			require.NoError(t, adp.Connect(ctx, cfg))
			defer func() { _ = adp.Close() }()

			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_ExecuteLifecycle(t *testing.T) {
	ctx := context.Background()
	adp := newConnected(t)

	_, err := adp.Execute(ctx, `
		CREATE TABLE events (
			id INTEGER PRIMARY KEY,
			kind VARCHAR NOT NULL,
			weight DOUBLE
		)`, nil)
	require.NoError(t, err)

	rs, err := adp.Execute(ctx,
		"INSERT INTO events VALUES (:id, :kind, :weight)",
		core.NewParams().Set("id", 1).Set("kind", "click").Set("weight", 0.5))
	require.NoError(t, err)
	assert.Equal(t, 1, rs.RowCount)

	rs, err = adp.Execute(ctx,
		"SELECT kind FROM events WHERE id = :id",
		core.NewParams().Set("id", 1))
	require.NoError(t, err)
	require.Equal(t, 1, rs.RowCount)
	assert.Equal(t, "click", rs.Rows[0]["kind"])
}

func TestAdapter_Schema(t *testing.T) {
	ctx := context.Background()
	adp := newConnected(t)

	_, err := adp.Execute(ctx, `
		CREATE TABLE products (
			product_id INTEGER PRIMARY KEY,
			name VARCHAR,
			price DOUBLE
		)`, nil)
	require.NoError(t, err)

	tables, err := adp.Schema(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	products := tables[0]
	assert.Equal(t, "products", products.Name)
	require.Len(t, products.Columns, 3)

	pid := products.Columns[0]
	assert.Equal(t, "product_id", pid.Name)
	assert.Equal(t, "INTEGER", pid.Type)
	assert.True(t, pid.PrimaryKey)

	name := products.Columns[1]
	assert.Equal(t, "VARCHAR", name.Type)
	assert.True(t, name.Nullable)
	assert.False(t, name.PrimaryKey)
}

func TestAdapter_SearchMetadata(t *testing.T) {
	ctx := context.Background()
	adp := newConnected(t)

	_, err := adp.Execute(ctx, "CREATE TABLE metrics (id INTEGER, metric_name VARCHAR)", nil)
	require.NoError(t, err)
	_, err = adp.Execute(ctx, "CREATE TABLE labels (id INTEGER, label VARCHAR)", nil)
	require.NoError(t, err)

	matches, err := adp.SearchMetadata(ctx, "metric", "%")
	require.NoError(t, err)

	tableNames := map[string]bool{}
	for _, m := range matches {
		tableNames[m.TableName] = true
	}
	assert.True(t, tableNames["metrics"])
	assert.False(t, tableNames["labels"])
}

func TestAdapter_Close(t *testing.T) {
	tests := []struct {
		name    string
		connect bool
	}{
		{"close without connect", false},
		{"close after connect", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp := New(nil)
			if tt.connect {
				cfg := core.DatabaseConfig{Name: "t", Engine: core.EngineDuckDB, Database: ":memory:"}
				cfg.ApplyDefaults()
				require.NoError(t, adp.Connect(context.Background(), cfg))
			}
			assert.NoError(t, adp.Close())
		})
	}
}
