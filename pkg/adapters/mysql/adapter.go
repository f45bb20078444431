// Package mysql provides a MySQL database adapter for dbmux.
package mysql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mysqldrv "github.com/go-sql-driver/mysql"

	"github.com/dbmux-labs/dbmux/pkg/adapter"
	"github.com/dbmux-labs/dbmux/pkg/core"
)

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MySQL adapter instance.
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
func (a *Adapter) Engine() core.Engine { return core.EngineMySQL }

// Connect establishes a connection pool to MySQL.
func (a *Adapter) Connect(ctx context.Context, cfg core.DatabaseConfig) error {
	dsn := cfg.ConnectionString
	if dsn == "" {
		dsn = buildMySQLDSN(cfg)
	}

	a.Logger.Debug("connecting to mysql",
		slog.String("host", cfg.Host), slog.String("database", cfg.Database))
	return a.OpenAndPing(ctx, "mysql", dsn, cfg)
}

// buildMySQLDSN constructs a DSN via the driver's own config type, so
// escaping and defaults stay consistent with the driver.
func buildMySQLDSN(cfg core.DatabaseConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := mysqldrv.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", host, port)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	return mc.FormatDSN()
}

// Schema introspects the current database via
// information_schema.columns; COLUMN_KEY marks primary keys.
func (a *Adapter) Schema(ctx context.Context) ([]core.TableSchema, error) {
	rs, err := a.Execute(ctx, `
		SELECT TABLE_NAME AS table_name,
		       COLUMN_NAME AS column_name,
		       DATA_TYPE AS data_type,
		       IS_NULLABLE AS is_nullable,
		       COLUMN_KEY AS column_key
		FROM information_schema.columns
		WHERE TABLE_SCHEMA = DATABASE()
		ORDER BY TABLE_NAME, ORDINAL_POSITION`, nil)
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
		tables[i].Columns = append(tables[i].Columns, core.ColumnSchema{
			Name:       adapter.AsString(row["column_name"]),
			Type:       adapter.AsString(row["data_type"]),
			Nullable:   adapter.AsBool(row["is_nullable"]),
			PrimaryKey: adapter.AsString(row["column_key"]) == "PRI",
		})
	}
	if tables == nil {
		tables = []core.TableSchema{}
	}
	return tables, nil
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
		SELECT TABLE_NAME AS table_name,
		       COLUMN_NAME AS column_name,
		       DATA_TYPE AS data_type
		FROM information_schema.columns
		WHERE TABLE_SCHEMA = DATABASE()
		  AND TABLE_NAME LIKE :table_pattern
		  AND (LOWER(TABLE_NAME) LIKE :term OR LOWER(COLUMN_NAME) LIKE :term)
		ORDER BY TABLE_NAME, COLUMN_NAME`, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search metadata: %w", err)
	}
	return adapter.MatchesFromRows(rs), nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
