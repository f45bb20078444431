package core

import (
	"fmt"
	"time"
)

// Default connection settings applied by ApplyDefaults.
const (
	DefaultMaxConnections = 10
	DefaultTimeout        = 30 * time.Second
)

// DatabaseConfig holds the identity and connection parameters for one
// registered backend. A config is immutable after registration except
// for IsActive, which the registry toggles via SetActive.
type DatabaseConfig struct {
	// Name is the unique key the backend is registered under.
	Name string

	// Engine selects the adapter family (sqlite, duckdb, postgresql, ...).
	Engine Engine

	// Host and Port locate network engines. Ignored by embedded engines.
	Host string
	Port int

	// Database is the database name, or the file path for embedded
	// engines (":memory:" supported).
	Database string

	// Username and Password authenticate against network engines.
	Username string
	Password string

	// ConnectionString overrides the DSN the adapter would otherwise
	// build from the fields above. Passed to the driver verbatim.
	ConnectionString string

	// IsActive controls participation in fan-out operations
	// (ExecuteAll, GetAllSchemas, Search).
	IsActive bool

	// MaxConnections caps the backend's connection pool.
	MaxConnections int

	// Timeout bounds every operation against this backend, including
	// the initial connect. Exceeding it is reported as a timeout
	// failure for this backend only.
	Timeout time.Duration
}

// ApplyDefaults fills zero-valued pool settings.
func (c *DatabaseConfig) ApplyDefaults() {
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate checks the fields every engine requires. Engine-specific
// requirements (reachable host, existing path) surface when the
// adapter connects.
func (c *DatabaseConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Engine == "" {
		return fmt.Errorf("database %q: engine is required", c.Name)
	}
	if c.Database == "" && c.ConnectionString == "" {
		return fmt.Errorf("database %q: database name or connection string is required", c.Name)
	}
	return nil
}

// Summary returns the read-only projection of the config exposed by
// Registry.List. Credentials are never included.
func (c *DatabaseConfig) Summary() DatabaseSummary {
	return DatabaseSummary{
		Name:     c.Name,
		Engine:   c.Engine,
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		IsActive: c.IsActive,
	}
}

// DatabaseSummary is one entry of the registry listing.
type DatabaseSummary struct {
	Name     string `json:"name"`
	Engine   Engine `json:"engine"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Database string `json:"database"`
	IsActive bool   `json:"is_active"`
}
