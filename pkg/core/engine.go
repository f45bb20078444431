package core

// Engine identifies a database engine family.
type Engine string

// Engine families with a bundled adapter.
const (
	EngineSQLite     Engine = "sqlite"
	EngineDuckDB     Engine = "duckdb"
	EnginePostgres   Engine = "postgresql"
	EngineMySQL      Engine = "mysql"
	EngineClickHouse Engine = "clickhouse"
)

// knownEngines lists every engine family dbmux ships an adapter for.
// A binary may still lack one of these at runtime if the matching
// adapter package was not linked in; see DriverUnavailableError.
var knownEngines = []Engine{
	EngineSQLite,
	EngineDuckDB,
	EnginePostgres,
	EngineMySQL,
	EngineClickHouse,
}

// KnownEngines returns the engine families dbmux knows about.
func KnownEngines() []Engine {
	out := make([]Engine, len(knownEngines))
	copy(out, knownEngines)
	return out
}

// Known reports whether e is one of the engine families dbmux ships
// an adapter for.
func (e Engine) Known() bool {
	for _, k := range knownEngines {
		if e == k {
			return true
		}
	}
	return false
}

// Embedded reports whether the engine is file-backed rather than a
// network server. Embedded engines treat Database as a file path and
// accept ":memory:".
func (e Engine) Embedded() bool {
	return e == EngineSQLite || e == EngineDuckDB
}
