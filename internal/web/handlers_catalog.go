package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/pokecatalog/internal/core"
)

const healthTimeout = 2 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.service.Store().Ping(ctx); err != nil {
		respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]any{
		"status":  "ok",
		"imports": s.service.ImportLimiter().Status(),
	})
}

func (s *Server) handleListPokemon(w http.ResponseWriter, r *http.Request) {
	mons, err := s.service.ListPokemon(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, mons)
}

// handleViewPokemon returns one variant; ?version= selects it and defaults
// to the base form.
func (s *Server) handleViewPokemon(w http.ResponseWriter, r *http.Request) {
	number, err := numberParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	p, err := s.service.GetPokemon(r.Context(), number, r.URL.Query().Get("version"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (s *Server) handleViewAllPokemon(w http.ResponseWriter, r *http.Request) {
	number, err := numberParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	mons, err := s.service.ListPokemonByNumber(r.Context(), number)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, mons)
}

func (s *Server) handleListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.service.ListTypes(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, types)
}

func (s *Server) handleViewType(w http.ResponseWriter, r *http.Request) {
	t, err := s.service.GetType(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, t)
}

// handleCreateType creates the Type or updates its description; 201 means
// created, 200 means updated.
func (s *Server) handleCreateType(w http.ResponseWriter, r *http.Request) {
	var req core.TypeParams
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}

	res, err := s.service.SaveType(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSONStatus(w, status, res)
}

func (s *Server) handleEditType(w http.ResponseWriter, r *http.Request) {
	var req core.TypeParams
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}

	t, err := s.service.EditType(r.Context(), chi.URLParam(r, "name"), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, t)
}

func (s *Server) handleDeleteType(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.service.DeleteType(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if !deleted {
		writeJSONStatus(w, http.StatusNotFound, map[string]string{"message": "Type not found"})
		return
	}
	writeJSON(w, map[string]string{"message": "Type deleted"})
}

func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	gens, err := s.service.ListGenerations(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, gens)
}
