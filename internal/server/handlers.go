package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleServiceHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"databases": len(s.registry.List()),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addDatabaseRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cfg := req.toConfig()
	if err := s.registry.AddDatabase(r.Context(), cfg); err != nil {
		s.addError(w, err)
		return
	}
	if req.Active != nil && !*req.Active {
		_ = s.registry.SetActive(cfg.Name, false)
	}

	s.writeJSON(w, http.StatusCreated, MessageResponse{
		Message: fmt.Sprintf("database %q added", req.Name),
		Success: true,
	})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.registry.RemoveDatabase(name); err != nil {
		s.lookupError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("database %q removed", name),
		Success: true,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.DatabaseName == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request",
			"database_name is required; use /api/databases/query/all to query every backend")
		return
	}

	res, err := s.router.ExecuteOne(r.Context(), req.DatabaseName, req.Query, req.Params)
	if err != nil {
		s.lookupError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQueryAll(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.router.ExecuteAll(r.Context(), req.Query, req.Params))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.router.Search(r.Context(), req.SearchTerm, req.TablePattern))
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	desc, err := s.router.GetSchema(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.lookupError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, desc)
}

func (s *Server) handleAllSchemas(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.router.GetAllSchemas(r.Context()))
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	desc, err := s.router.GetSchema(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.lookupError(w, err)
		return
	}
	if !desc.Success {
		s.writeError(w, http.StatusBadGateway, string(desc.ErrorKind), desc.Error)
		return
	}
	s.writeJSON(w, http.StatusOK, desc.Tables)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	hs, err := s.router.Health(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.lookupError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hs)
}
