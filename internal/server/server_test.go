package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbmux-labs/dbmux/internal/config"
	"github.com/dbmux-labs/dbmux/internal/hub"
	"github.com/dbmux-labs/dbmux/internal/testutil"
	"github.com/dbmux-labs/dbmux/pkg/core"

	// Only the sqlite adapter is linked into this test binary, so the
	// clickhouse engine exercises the driver-unavailable mapping.
	_ "github.com/dbmux-labs/dbmux/pkg/adapters/sqlite"
)

func newTestServer(t *testing.T) (*Server, *hub.Registry) {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	reg := hub.NewRegistry(logger)
	t.Cleanup(func() { _ = reg.Close() })
	router := hub.NewRouter(reg, logger)
	return New(reg, router, config.ServerConfig{}, logger), reg
}

func addMemoryBackend(t *testing.T, reg *hub.Registry, name string) {
	t.Helper()
	err := reg.AddDatabase(context.Background(), core.DatabaseConfig{
		Name:     name,
		Engine:   core.EngineSQLite,
		Database: ":memory:",
	})
	require.NoError(t, err)
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func execQuery(t *testing.T, h http.Handler, body string) *core.QueryResult {
	t.Helper()
	rec := doRequest(t, h, http.MethodPost, "/api/databases/query", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res core.QueryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return &res
}

func TestServiceHealth(t *testing.T) {
	srv, reg := newTestServer(t)
	addMemoryBackend(t, reg, "inventory")

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Status    string `json:"status"`
		Databases int    `json:"databases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, 1, body.Databases)
}

func TestAddAndListDatabases(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/databases",
		`{"name": "inventory", "engine": "sqlite", "database": ":memory:"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var ack MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.True(t, ack.Success)
	assert.Equal(t, `database "inventory" added`, ack.Message)

	rec = doRequest(t, h, http.MethodGet, "/api/databases", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []core.DatabaseSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "inventory", list[0].Name)
	assert.Equal(t, core.EngineSQLite, list[0].Engine)
	assert.True(t, list[0].IsActive)
}

func TestAddDatabaseInactive(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/databases",
		`{"name": "standby", "engine": "sqlite", "database": ":memory:", "is_active": false}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, h, http.MethodGet, "/api/databases", "")
	var list []core.DatabaseSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.False(t, list[0].IsActive)
}

func TestAddDatabaseErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{
			name:     "malformed json",
			body:     `{"name": "broken"`,
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request",
		},
		{
			name:     "missing required fields",
			body:     `{"host": "localhost"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request",
		},
		{
			name:     "unknown engine",
			body:     `{"name": "legacy", "engine": "oracle", "database": "hr"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "unknown_engine",
		},
		{
			name:     "driver not linked",
			body:     `{"name": "events", "engine": "clickhouse", "database": "metrics"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "driver_unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t)
			rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/databases", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			var errRes ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errRes))
			assert.Equal(t, tt.wantErr, errRes.Error)
			assert.NotEmpty(t, errRes.Message)
		})
	}
}

func TestAddDatabaseDuplicate(t *testing.T) {
	srv, reg := newTestServer(t)
	addMemoryBackend(t, reg, "sales")

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/databases",
		`{"name": "sales", "engine": "sqlite", "database": ":memory:"}`)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	var errRes ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errRes))
	assert.Equal(t, "duplicate_name", errRes.Error)
	assert.Contains(t, errRes.Message, "sales")
}

func TestRemoveDatabase(t *testing.T) {
	srv, reg := newTestServer(t)
	addMemoryBackend(t, reg, "inventory")
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodDelete, "/api/databases/inventory", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ack MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.True(t, ack.Success)
	assert.Equal(t, `database "inventory" removed`, ack.Message)

	rec = doRequest(t, h, http.MethodGet, "/api/databases", "")
	var list []core.DatabaseSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)

	rec = doRequest(t, h, http.MethodDelete, "/api/databases/inventory", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var errRes ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errRes))
	assert.Equal(t, "not_found", errRes.Error)
}

func TestQueryLifecycle(t *testing.T) {
	srv, reg := newTestServer(t)
	addMemoryBackend(t, reg, "shop")
	h := srv.Handler()

	res := execQuery(t, h,
		`{"database_name": "shop", "query": "CREATE TABLE parts (label TEXT, qty INTEGER)"}`)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 0, res.RowCount)

	res = execQuery(t, h,
		`{"database_name": "shop", "query": "INSERT INTO parts (label, qty) VALUES (:label, :qty)", "params": {"label": "bolt", "qty": 9}}`)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.RowCount)

	// Document order of the params object, not alphabetical order,
	// feeds the positional placeholders.
	res = execQuery(t, h,
		`{"database_name": "shop", "query": "INSERT INTO parts (qty, label) VALUES (?, ?)", "params": {"qty": 4, "label": "nut"}}`)
	require.True(t, res.Success, res.Error)

	res = execQuery(t, h,
		`{"database_name": "shop", "query": "SELECT label, qty FROM parts ORDER BY label"}`)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "shop", res.BackendName)
	assert.Equal(t, []string{"label", "qty"}, res.Columns)
	assert.Equal(t, 2, res.RowCount)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, core.Row{"label": "bolt", "qty": float64(9)}, res.Rows[0])
	assert.Equal(t, core.Row{"label": "nut", "qty": float64(4)}, res.Rows[1])
	assert.GreaterOrEqual(t, res.ExecutionTime, 0.0)
}

func TestQueryFailureEnvelope(t *testing.T) {
	srv, reg := newTestServer(t)
	addMemoryBackend(t, reg, "shop")

	// Execution failures ride inside a 200 envelope; HTTP errors are
	// reserved for routing problems.
	res := execQuery(t, srv.Handler(),
		`{"database_name": "shop", "query": "SELECT * FROM missing_table"}`)
	assert.False(t, res.Success)
	assert.Equal(t, core.FailureQuery, res.ErrorKind)
	assert.Contains(t, res.Error, "no such table")
}

func TestQueryRequestErrors(t *testing.T) {
	srv, reg := newTestServer(t)
	addMemoryBackend(t, reg, "shop")
	h := srv.Handler()

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing database name",
			body:     `{"query": "SELECT 1"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request",
		},
		{
			name:     "missing query",
			body:     `{"database_name": "shop"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request",
		},
		{
			name:     "unknown backend",
			body:     `{"database_name": "ghost", "query": "SELECT 1"}`,
			wantCode: http.StatusNotFound,
			wantErr:  "not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/api/databases/query", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			var errRes ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errRes))
			assert.Equal(t, tt.wantErr, errRes.Error)
		})
	}
}

func TestQueryAll(t *testing.T) {
	srv, reg := newTestServer(t)
	addMemoryBackend(t, reg, "alpha")
	addMemoryBackend(t, reg, "beta")
	h := srv.Handler()

	execQuery(t, h, `{"database_name": "alpha", "query": "CREATE TABLE items (n INTEGER)"}`)
	execQuery(t, h, `{"database_name": "alpha", "query": "INSERT INTO items VALUES (7)"}`)

	rec := doRequest(t, h, http.MethodPost, "/api/databases/query/all",
		`{"query": "SELECT n FROM items"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var results map[string]*core.QueryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2)

	assert.True(t, results["alpha"].Success)
	assert.Equal(t, core.Row{"n": float64(7)}, results["alpha"].Rows[0])
	assert.False(t, results["beta"].Success)
	assert.Equal(t, core.FailureQuery, results["beta"].ErrorKind)

	require.NoError(t, reg.SetActive("beta", false))
	rec = doRequest(t, h, http.MethodPost, "/api/databases/query/all",
		`{"query": "SELECT n FROM items"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	results = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Contains(t, results, "alpha")
}

func TestSearchMetadata(t *testing.T) {
	srv, reg := newTestServer(t)
	addMemoryBackend(t, reg, "inventory")
	addMemoryBackend(t, reg, "crm")
	h := srv.Handler()

	execQuery(t, h,
		`{"database_name": "inventory", "query": "CREATE TABLE widgets (widget_id INTEGER, label TEXT)"}`)
	execQuery(t, h,
		`{"database_name": "inventory", "query": "CREATE TABLE orders (order_id INTEGER, widget_id INTEGER)"}`)
	execQuery(t, h,
		`{"database_name": "crm", "query": "CREATE TABLE customers (customer_id INTEGER)"}`)

	rec := doRequest(t, h, http.MethodPost, "/api/databases/search",
		`{"search_term": "widget"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var matches map[string][]core.MetadataMatch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	require.Len(t, matches, 2)
	assert.Equal(t, []core.MetadataMatch{
		{TableName: "orders", ColumnName: "widget_id", DataType: "INTEGER"},
		{TableName: "widgets", ColumnName: "label", DataType: "TEXT"},
		{TableName: "widgets", ColumnName: "widget_id", DataType: "INTEGER"},
	}, matches["inventory"])
	assert.Empty(t, matches["crm"])

	rec = doRequest(t, h, http.MethodPost, "/api/databases/search",
		`{"search_term": "widget", "table_pattern": "ord%"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	matches = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	assert.Equal(t, []core.MetadataMatch{
		{TableName: "orders", ColumnName: "widget_id", DataType: "INTEGER"},
	}, matches["inventory"])

	rec = doRequest(t, h, http.MethodPost, "/api/databases/search", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errRes ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errRes))
	assert.Equal(t, "invalid_request", errRes.Error)
}

func TestSchemaEndpoints(t *testing.T) {
	srv, reg := newTestServer(t)
	addMemoryBackend(t, reg, "inventory")
	h := srv.Handler()

	execQuery(t, h,
		`{"database_name": "inventory", "query": "CREATE TABLE widgets (widget_id INTEGER PRIMARY KEY, label TEXT NOT NULL)"}`)

	rec := doRequest(t, h, http.MethodGet, "/api/databases/inventory/schema", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var desc core.SchemaDescription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &desc))
	assert.True(t, desc.Success)
	assert.Equal(t, "inventory", desc.BackendName)
	assert.Equal(t, core.EngineSQLite, desc.Engine)
	assert.Equal(t, []string{"widgets"}, desc.TableNames())

	rec = doRequest(t, h, http.MethodGet, "/api/databases/inventory/tables", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var tables []core.TableSchema
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tables))
	require.Len(t, tables, 1)
	assert.Equal(t, "widgets", tables[0].Name)
	require.Len(t, tables[0].Columns, 2)
	assert.True(t, tables[0].Columns[0].PrimaryKey)

	rec = doRequest(t, h, http.MethodGet, "/api/databases/schemas", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var all map[string]*core.SchemaDescription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Contains(t, all, "inventory")
	assert.True(t, all["inventory"].Success)

	for _, target := range []string{
		"/api/databases/ghost/schema",
		"/api/databases/ghost/tables",
	} {
		rec = doRequest(t, h, http.MethodGet, target, "")
		require.Equal(t, http.StatusNotFound, rec.Code, target)
	}
}

func TestBackendHealth(t *testing.T) {
	srv, reg := newTestServer(t)
	addMemoryBackend(t, reg, "inventory")
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodGet, "/api/databases/inventory/health", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var hs core.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hs))
	assert.Equal(t, "inventory", hs.BackendName)
	assert.True(t, hs.Healthy)
	assert.GreaterOrEqual(t, hs.ResponseTime, 0.0)
	assert.Empty(t, hs.Error)

	rec = doRequest(t, h, http.MethodGet, "/api/databases/ghost/health", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
