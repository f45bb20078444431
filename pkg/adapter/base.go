package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dbmux-labs/dbmux/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Connect plumbing, Close, and Execute implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.DatabaseConfig
	Logger *slog.Logger

	// Placeholders is the native placeholder style Execute rewrites
	// statements to. Set once by the concrete adapter's constructor.
	Placeholders PlaceholderStyle
}

// OpenAndPing opens the pool for driverName/dsn, verifies the backend
// is reachable, and adopts the config. The pool is sized from
// cfg.MaxConnections. On ping failure the pool is closed and nothing
// is retained.
func (b *BaseSQLAdapter) OpenAndPing(ctx context.Context, driverName, dsn string, cfg core.DatabaseConfig) error {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", cfg.Engine, err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s: %w", cfg.Engine, err)
	}

	b.DB = db
	b.Cfg = cfg
	return nil
}

// Close closes the database connection pool.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection", slog.String("database", b.Cfg.Name))
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Execute runs one statement against the pool. Placeholders are bound
// from params and rewritten to the adapter's native style first.
func (b *BaseSQLAdapter) Execute(ctx context.Context, query string, params *core.Params) (*core.ResultSet, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	stmt, args, err := Bind(query, params, b.Placeholders)
	if err != nil {
		return nil, err
	}

	if !ReturnsRows(stmt) {
		res, err := b.DB.ExecContext(ctx, stmt, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to execute statement: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			// Some drivers cannot report it (DDL); treat as zero.
			affected = 0
		}
		return &core.ResultSet{Columns: []string{}, Rows: []core.Row{}, RowCount: int(affected)}, nil
	}

	rows, err := b.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return ScanRows(rows)
}

// ScanRows drains rows into a ResultSet, preserving projection order
// and normalizing driver []byte values to string.
func ScanRows(rows *sql.Rows) (*core.ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	out := &core.ResultSet{Columns: cols, Rows: []core.Row{}}
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(core.Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	out.RowCount = len(out.Rows)
	return out, nil
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// rowKeywords are the statement-leading keywords that produce a row
// set. Everything else goes through ExecContext.
var rowKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"PRAGMA":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
	"VALUES":   true,
}

// ReturnsRows reports whether the statement's first keyword (leading
// whitespace and comments skipped) produces a row set.
func ReturnsRows(query string) bool {
	s := query
	for {
		s = strings.TrimLeft(s, " \t\r\n")
		switch {
		case strings.HasPrefix(s, "--"):
			if idx := strings.IndexByte(s, '\n'); idx >= 0 {
				s = s[idx+1:]
			} else {
				return false
			}
		case strings.HasPrefix(s, "/*"):
			if idx := strings.Index(s, "*/"); idx >= 0 {
				s = s[idx+2:]
			} else {
				return false
			}
		default:
			end := 0
			for end < len(s) && isWordByte(s[end]) {
				end++
			}
			return rowKeywords[strings.ToUpper(s[:end])]
		}
	}
}

func isWordByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
