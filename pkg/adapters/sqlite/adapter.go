// Package sqlite provides a SQLite database adapter backed by the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/dbmux-labs/dbmux/pkg/adapter"
	"github.com/dbmux-labs/dbmux/pkg/core"
)

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
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
func (a *Adapter) Engine() core.Engine { return core.EngineSQLite }

// Connect opens the SQLite database file. Use ":memory:" as the
// database for an in-memory instance.
func (a *Adapter) Connect(ctx context.Context, cfg core.DatabaseConfig) error {
	dsn := cfg.ConnectionString
	if dsn == "" {
		dsn = cfg.Database
	}
	if isMemory(dsn) {
		// Each pooled connection would otherwise open its own empty
		// in-memory database.
		cfg.MaxConnections = 1
	}

	a.Logger.Debug("connecting to sqlite", slog.String("path", dsn))
	return a.OpenAndPing(ctx, "sqlite", dsn, cfg)
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" ||
		strings.HasPrefix(dsn, "file::memory:") ||
		strings.Contains(dsn, "mode=memory")
}

// Schema lists user tables from sqlite_master and their columns from
// PRAGMA table_info.
func (a *Adapter) Schema(ctx context.Context) ([]core.TableSchema, error) {
	rs, err := a.Execute(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]core.TableSchema, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		name := adapter.AsString(row["name"])
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

// SearchMetadata matches table and column names in the catalog. The
// pragma_table_info table-valued function exposes each table's columns.
func (a *Adapter) SearchMetadata(ctx context.Context, term, tablePattern string) ([]core.MetadataMatch, error) {
	if tablePattern == "" {
		tablePattern = "%"
	}
	params := core.NewParams().
		Set("table_pattern", tablePattern).
		Set("term", "%"+strings.ToLower(term)+"%")

	rs, err := a.Execute(ctx, `
		SELECT m.name AS table_name, p.name AS column_name, p.type AS data_type
		FROM sqlite_master m, pragma_table_info(m.name) p
		WHERE m.type = 'table'
		  AND m.name NOT LIKE 'sqlite_%'
		  AND m.name LIKE :table_pattern
		  AND (LOWER(m.name) LIKE :term OR LOWER(p.name) LIKE :term)
		ORDER BY m.name, p.name`, params)
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
