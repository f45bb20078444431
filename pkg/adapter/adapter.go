// Package adapter provides the database adapter contract and registry
// for dbmux's routing layer.
//
// This package contains the public contract that all database adapters must
// implement. Concrete adapter implementations are in pkg/adapters/
// subdirectories and register themselves via init().
package adapter

import (
	"context"

	"github.com/dbmux-labs/dbmux/pkg/core"
)

// Adapter defines the interface that all database adapters must implement.
// It provides methods for connecting to backends, executing statements,
// and introspecting catalog metadata.
type Adapter interface {
	// Connect establishes the backend's connection pool using the
	// provided config. It pings the backend before returning so
	// registration is fail-fast.
	Connect(ctx context.Context, cfg core.DatabaseConfig) error

	// Close closes the connection pool and releases resources.
	Close() error

	// Execute runs one statement. Row-returning statements yield rows
	// and columns; everything else yields the affected-row count.
	// Placeholders in query are rewritten to the engine's native style
	// and bound from params (nil or empty params passes the statement
	// through untouched).
	Execute(ctx context.Context, query string, params *core.Params) (*core.ResultSet, error)

	// Schema introspects the backend's tables and columns. It runs
	// through the same Execute path as user statements.
	Schema(ctx context.Context) ([]core.TableSchema, error)

	// SearchMetadata finds tables and columns whose names contain term
	// (case-insensitive substring), limited to tables matching the SQL
	// LIKE pattern tablePattern. Catalog metadata only, never row data.
	SearchMetadata(ctx context.Context, term, tablePattern string) ([]core.MetadataMatch, error)

	// Engine reports which engine family this adapter drives.
	Engine() core.Engine
}
