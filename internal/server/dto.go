package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dbmux-labs/dbmux/pkg/core"
)

var validate = validator.New()

// addDatabaseRequest is the POST /api/databases payload. Timeout is
// whole seconds on the wire.
type addDatabaseRequest struct {
	Name             string `json:"name" validate:"required"`
	Engine           string `json:"engine" validate:"required"`
	Host             string `json:"host"`
	Port             int    `json:"port" validate:"min=0,max=65535"`
	Database         string `json:"database"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	ConnectionString string `json:"connection_string"`
	Active           *bool  `json:"is_active"`
	MaxConnections   int    `json:"max_connections" validate:"min=0"`
	Timeout          int    `json:"timeout" validate:"min=0"`
}

func (req addDatabaseRequest) toConfig() core.DatabaseConfig {
	return core.DatabaseConfig{
		Name:             req.Name,
		Engine:           core.Engine(req.Engine),
		Host:             req.Host,
		Port:             req.Port,
		Database:         req.Database,
		Username:         req.Username,
		Password:         req.Password,
		ConnectionString: req.ConnectionString,
		MaxConnections:   req.MaxConnections,
		Timeout:          time.Duration(req.Timeout) * time.Second,
	}
}

// queryRequest is the POST /api/databases/query{,/all} payload. Params
// is an ordered JSON object; key order drives positional binding.
type queryRequest struct {
	DatabaseName string       `json:"database_name"`
	Query        string       `json:"query" validate:"required"`
	Params       *core.Params `json:"params"`
}

// searchRequest is the POST /api/databases/search payload.
type searchRequest struct {
	SearchTerm   string `json:"search_term" validate:"required"`
	TablePattern string `json:"table_pattern"`
}

// decodeRequest decodes the JSON body into dst and validates it.
func decodeRequest(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}
