// Package duckdb provides a DuckDB database adapter for dbmux.
package duckdb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/dbmux-labs/dbmux/pkg/adapter"
	"github.com/dbmux-labs/dbmux/pkg/core"
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:       logger,
			Placeholders: adapter.StyleQuestion,
		},
	}
}

// Engine reports the engine family this adapter drives.
func (a *Adapter) Engine() core.Engine { return core.EngineDuckDB }

// Connect opens the DuckDB database file. An empty database or
// ":memory:" opens an in-memory instance.
func (a *Adapter) Connect(ctx context.Context, cfg core.DatabaseConfig) error {
	dsn := cfg.ConnectionString
	if dsn == "" {
		dsn = cfg.Database
	}
	if dsn == ":memory:" {
		// go-duckdb opens in-memory databases with an empty path
		dsn = ""
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", dsn))
	return a.OpenAndPing(ctx, "duckdb", dsn, cfg)
}

// Schema lists tables in the main schema and their columns from
// PRAGMA table_info (DuckDB implements the sqlite pragma).
func (a *Adapter) Schema(ctx context.Context) ([]core.TableSchema, error) {
	rs, err := a.Execute(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'main'
		ORDER BY table_name`, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]core.TableSchema, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		name := adapter.AsString(row["table_name"])
		cols, err := a.tableColumns(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, core.TableSchema{Name: name, Columns: cols})
	}
	return tables, nil
}

func (a *Adapter) tableColumns(ctx context.Context, table string) ([]core.ColumnSchema, error) {
	rs, err := a.Execute(ctx, "PRAGMA table_info("+quoteIdent(table)+")", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", table, err)
	}

	cols := make([]core.ColumnSchema, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		cols = append(cols, core.ColumnSchema{
			Name:       adapter.AsString(row["name"]),
			Type:       adapter.AsString(row["type"]),
			Nullable:   !adapter.AsBool(row["notnull"]),
			PrimaryKey: adapter.AsBool(row["pk"]),
		})
	}
	return cols, nil
}

// SearchMetadata matches table and column names in the catalog via
// information_schema.columns.
func (a *Adapter) SearchMetadata(ctx context.Context, term, tablePattern string) ([]core.MetadataMatch, error) {
	if tablePattern == "" {
		tablePattern = "%"
	}
	params := core.NewParams().
		Set("table_pattern", tablePattern).
		Set("term", "%"+strings.ToLower(term)+"%")

	rs, err := a.Execute(ctx, `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'main'
		  AND table_name LIKE :table_pattern
		  AND (LOWER(table_name) LIKE :term OR LOWER(column_name) LIKE :term)
		ORDER BY table_name, column_name`, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search metadata: %w", err)
	}
	return adapter.MatchesFromRows(rs), nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
