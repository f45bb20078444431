// Package core defines the shared language of the dbmux system.
//
// This package contains:
//   - Backend identity and connection settings (DatabaseConfig, Engine)
//   - Normalized operation outcomes (QueryResult, SchemaDescription, MetadataMatch)
//   - Ordered query parameters (Params)
//   - The failure taxonomy (FailureKind, registry error types)
//
// The Golden Rule: pkg/core imports ONLY the standard library.
// All other packages depend on core, not the reverse.
package core
