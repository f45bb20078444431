// Package postgres provides a PostgreSQL database adapter for dbmux.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/dbmux-labs/dbmux/pkg/adapter"
	"github.com/dbmux-labs/dbmux/pkg/core"
)

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:       logger,
			Placeholders: adapter.StyleDollar,
		},
	}
}

// Engine reports the engine family this adapter drives.
func (a *Adapter) Engine() core.Engine { return core.EnginePostgres }

// Connect establishes a connection pool to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg core.DatabaseConfig) error {
	dsn := cfg.ConnectionString
	if dsn == "" {
		dsn = buildPostgresDSN(cfg)
	}

	a.Logger.Debug("connecting to postgres",
		slog.String("host", cfg.Host), slog.String("database", cfg.Database))
	return a.OpenAndPing(ctx, "pgx", dsn, cfg)
}

// buildPostgresDSN constructs a key=value PostgreSQL connection string.
func buildPostgresDSN(cfg core.DatabaseConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=disable", host, port, cfg.Database)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

// Schema introspects the public schema: columns from
// information_schema.columns, primary keys from the key_column_usage
// join.
func (a *Adapter) Schema(ctx context.Context) ([]core.TableSchema, error) {
	rs, err := a.Execute(ctx, `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}

	pks, err := a.primaryKeys(ctx)
	if err != nil {
		return nil, err
	}

	var tables []core.TableSchema
	idx := make(map[string]int)
	for _, row := range rs.Rows {
		tableName := adapter.AsString(row["table_name"])
		i, ok := idx[tableName]
		if !ok {
			i = len(tables)
			idx[tableName] = i
			tables = append(tables, core.TableSchema{Name: tableName})
		}
		colName := adapter.AsString(row["column_name"])
		tables[i].Columns = append(tables[i].Columns, core.ColumnSchema{
			Name:       colName,
			Type:       adapter.AsString(row["data_type"]),
			Nullable:   adapter.AsBool(row["is_nullable"]),
			PrimaryKey: pks[tableName][colName],
		})
	}
	if tables == nil {
		tables = []core.TableSchema{}
	}
	return tables, nil
}

func (a *Adapter) primaryKeys(ctx context.Context) (map[string]map[string]bool, error) {
	rs, err := a.Execute(ctx, `
		SELECT tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = 'public'`, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary keys: %w", err)
	}

	pks := make(map[string]map[string]bool)
	for _, row := range rs.Rows {
		table := adapter.AsString(row["table_name"])
		if pks[table] == nil {
			pks[table] = make(map[string]bool)
		}
		pks[table][adapter.AsString(row["column_name"])] = true
	}
	return pks, nil
}

// SearchMetadata matches table and column names in the public schema.
func (a *Adapter) SearchMetadata(ctx context.Context, term, tablePattern string) ([]core.MetadataMatch, error) {
	if tablePattern == "" {
		tablePattern = "%"
	}
	params := core.NewParams().
		Set("table_pattern", tablePattern).
		Set("term", "%"+term+"%")

	rs, err := a.Execute(ctx, `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public'
		  AND table_name LIKE :table_pattern
		  AND (table_name ILIKE :term OR column_name ILIKE :term)
		ORDER BY table_name, column_name`, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search metadata: %w", err)
	}
	return adapter.MatchesFromRows(rs), nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
