// Package clickhouse provides a ClickHouse database adapter for dbmux.
package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	_ "github.com/ClickHouse/clickhouse-go/v2" // clickhouse driver

	"github.com/dbmux-labs/dbmux/pkg/adapter"
	"github.com/dbmux-labs/dbmux/pkg/core"
)

// Adapter implements the adapter.Adapter interface for ClickHouse.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new ClickHouse adapter instance.
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
func (a *Adapter) Engine() core.Engine { return core.EngineClickHouse }

// Connect establishes a connection pool to ClickHouse over the native
// protocol.
func (a *Adapter) Connect(ctx context.Context, cfg core.DatabaseConfig) error {
	dsn := cfg.ConnectionString
	if dsn == "" {
		dsn = buildClickHouseDSN(cfg)
	}

	a.Logger.Debug("connecting to clickhouse",
		slog.String("host", cfg.Host), slog.String("database", cfg.Database))
	return a.OpenAndPing(ctx, "clickhouse", dsn, cfg)
}

// buildClickHouseDSN constructs a clickhouse:// URL with credentials
// escaped.
func buildClickHouseDSN(cfg core.DatabaseConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 9000
	}

	u := &url.URL{
		Scheme: "clickhouse",
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/" + cfg.Database,
	}
	if cfg.Username != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			u.User = url.User(cfg.Username)
		}
	}
	return u.String()
}

// Schema introspects the current database via system.columns.
// Nullable(...) wrapper types are unwrapped into the Nullable flag.
func (a *Adapter) Schema(ctx context.Context) ([]core.TableSchema, error) {
	rs, err := a.Execute(ctx, `
		SELECT table AS table_name,
		       name AS column_name,
		       type AS data_type,
		       is_in_primary_key
		FROM system.columns
		WHERE database = currentDatabase()
		ORDER BY table, position`, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
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
		colType, nullable := unwrapNullable(adapter.AsString(row["data_type"]))
		tables[i].Columns = append(tables[i].Columns, core.ColumnSchema{
			Name:       adapter.AsString(row["column_name"]),
			Type:       colType,
			Nullable:   nullable,
			PrimaryKey: adapter.AsBool(row["is_in_primary_key"]),
		})
	}
	if tables == nil {
		tables = []core.TableSchema{}
	}
	return tables, nil
}

// unwrapNullable strips ClickHouse's Nullable(...) type wrapper.
func unwrapNullable(t string) (string, bool) {
	if strings.HasPrefix(t, "Nullable(") && strings.HasSuffix(t, ")") {
		return t[len("Nullable(") : len(t)-1], true
	}
	return t, false
}

// SearchMetadata matches table and column names in the current
// database.
func (a *Adapter) SearchMetadata(ctx context.Context, term, tablePattern string) ([]core.MetadataMatch, error) {
	if tablePattern == "" {
		tablePattern = "%"
	}
	params := core.NewParams().
		Set("table_pattern", tablePattern).
		Set("term", "%"+strings.ToLower(term)+"%")

	rs, err := a.Execute(ctx, `
		SELECT table AS table_name,
		       name AS column_name,
		       type AS data_type
		FROM system.columns
		WHERE database = currentDatabase()
		  AND table LIKE :table_pattern
		  AND (lower(table) LIKE :term OR lower(name) LIKE :term)
		ORDER BY table, name`, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search metadata: %w", err)
	}
	return adapter.MatchesFromRows(rs), nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
