package core

import "time"

// Row is one result row keyed by column name.
type Row map[string]any

// ResultSet is what an adapter returns from a successful execution.
// For statements that return no rows (INSERT, UPDATE, DDL) Columns and
// Rows are empty and RowCount carries the affected-row count.
type ResultSet struct {
	Columns  []string
	Rows     []Row
	RowCount int
}

// QueryResult is the routing layer's per-backend envelope. Execution
// failures are captured here rather than returned as errors, so a
// fan-out across N backends always yields N results.
type QueryResult struct {
	BackendName   string      `json:"backend_name"`
	Query         string      `json:"query"`
	Columns       []string    `json:"columns"`
	Rows          []Row       `json:"rows"`
	RowCount      int         `json:"row_count"`
	ExecutionTime float64     `json:"execution_time"`
	Success       bool        `json:"success"`
	Error         string      `json:"error,omitempty"`
	ErrorKind     FailureKind `json:"error_kind,omitempty"`
}

// Succeeded builds the success envelope for a backend's result set.
// ExecutionTime is reported in seconds.
func Succeeded(backend, query string, rs *ResultSet, elapsed time.Duration) *QueryResult {
	r := &QueryResult{
		BackendName:   backend,
		Query:         query,
		RowCount:      rs.RowCount,
		ExecutionTime: elapsed.Seconds(),
		Success:       true,
	}
	r.Columns = rs.Columns
	if r.Columns == nil {
		r.Columns = []string{}
	}
	r.Rows = rs.Rows
	if r.Rows == nil {
		r.Rows = []Row{}
	}
	return r
}

// Failed builds the failure envelope, classifying err into a
// FailureKind.
func Failed(backend, query string, err error, elapsed time.Duration) *QueryResult {
	return &QueryResult{
		BackendName:   backend,
		Query:         query,
		Columns:       []string{},
		Rows:          []Row{},
		ExecutionTime: elapsed.Seconds(),
		Success:       false,
		Error:         err.Error(),
		ErrorKind:     ClassifyError(err),
	}
}

// HealthStatus reports the outcome of a liveness probe against one
// backend. ResponseTime is in seconds.
type HealthStatus struct {
	BackendName  string  `json:"backend_name"`
	Healthy      bool    `json:"healthy"`
	ResponseTime float64 `json:"response_time"`
	Error        string  `json:"error,omitempty"`
}
