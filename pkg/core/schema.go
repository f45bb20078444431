package core

// ColumnSchema describes one column of an introspected table.
type ColumnSchema struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
}

// TableSchema describes one table: its columns in ordinal order.
type TableSchema struct {
	Name    string         `json:"name"`
	Columns []ColumnSchema `json:"columns"`
}

// SchemaDescription is a full snapshot of one backend's schema, tables
// sorted by name. Introspection failures are captured in the envelope
// the same way QueryResult captures execution failures.
type SchemaDescription struct {
	BackendName string        `json:"backend_name"`
	Engine      Engine        `json:"engine"`
	Tables      []TableSchema `json:"tables"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	ErrorKind   FailureKind   `json:"error_kind,omitempty"`
}

// TableNames returns the table names in listing order.
func (s *SchemaDescription) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

// MetadataMatch is one hit from a catalog search: a table or column
// whose name contains the search term. The backend it came from is the
// key of the search result map.
type MetadataMatch struct {
	TableName  string `json:"table_name"`
	ColumnName string `json:"column_name,omitempty"`
	DataType   string `json:"data_type,omitempty"`
}
