package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dbmux-labs/dbmux/pkg/core"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, errCode, message string) {
	s.writeJSON(w, code, ErrorResponse{Error: errCode, Message: message})
}

// lookupError maps a router lookup failure to a response. Execution
// failures never land here; they travel inside result envelopes.
func (s *Server) lookupError(w http.ResponseWriter, err error) {
	var notFound *core.NotFoundError
	if errors.As(err, &notFound) {
		s.writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	s.writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}

// addError maps an AddDatabase failure. The request is at fault in
// every case except a duplicate, which is a state conflict.
func (s *Server) addError(w http.ResponseWriter, err error) {
	var (
		duplicate   *core.DuplicateNameError
		unknown     *core.UnknownEngineError
		unavailable *core.DriverUnavailableError
	)
	switch {
	case errors.As(err, &duplicate):
		s.writeError(w, http.StatusConflict, "duplicate_name", err.Error())
	case errors.As(err, &unknown):
		s.writeError(w, http.StatusBadRequest, "unknown_engine", err.Error())
	case errors.As(err, &unavailable):
		s.writeError(w, http.StatusBadRequest, "driver_unavailable", err.Error())
	default:
		s.writeError(w, http.StatusBadRequest, "registration_failed", err.Error())
	}
}
