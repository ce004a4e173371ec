package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/JonMunkholm/cardimport/internal/logging"
	"github.com/go-chi/render"
)

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data := indexData{DefaultDeck: s.cfg.Import.DefaultDeck, TagOverflow: s.cfg.Import.TagOverflow}
	if schemas, err := s.store.Schemas(ctx); err == nil {
		data.NoteTypes = schemas
	} else {
		logging.FromContext(ctx).Warn("list note types", "error", err)
	}
	if decks, err := s.store.Collections(ctx); err == nil {
		data.Decks = decks
	}
	if cur, ok, err := s.store.CurrentCollection(ctx); err == nil && ok {
		data.DefaultDeck = cur.Name
	}
	data.LastDirectory, _ = s.store.LastDirectory(ctx)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage(data).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render index", "error", err)
	}
}

// handleHealth reports whether the store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListNoteTypes returns every note type in the store.
func (s *Server) handleListNoteTypes(w http.ResponseWriter, r *http.Request) {
	schemas, err := s.store.Schemas(r.Context())
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if schemas == nil {
		schemas = []core.Schema{}
	}
	writeJSON(w, r, http.StatusOK, schemas)
}

// decksResponse lists decks and marks the selected one.
type decksResponse struct {
	Decks   []core.Collection `json:"decks"`
	Current *core.Collection  `json:"current,omitempty"`
}

// handleListDecks returns every deck and the current selection.
func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	decks, err := s.store.Collections(ctx)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	resp := decksResponse{Decks: decks}
	if resp.Decks == nil {
		resp.Decks = []core.Collection{}
	}
	if cur, ok, err := s.store.CurrentCollection(ctx); err == nil && ok {
		resp.Current = &cur
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleCreateDeck creates parent, or parent::child when a child is given.
func (s *Server) handleCreateDeck(w http.ResponseWriter, r *http.Request) {
	var req createDeckRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, errBadForm, http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	name := req.Parent
	if req.Child != "" {
		var err error
		if name, err = core.SubdeckName(req.Parent, req.Child); err != nil {
			respondError(w, r, err, http.StatusUnprocessableEntity)
			return
		}
	}

	ctx := r.Context()
	id, err := s.store.GetOrCreateCollection(ctx, name)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if req.Select {
		if err := s.store.SelectCollection(ctx, id); err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
	}
	writeJSON(w, r, http.StatusCreated, core.Collection{ID: id, Name: name})
}

// handleGetLastDirectory returns the remembered file-picker directory.
func (s *Server) handleGetLastDirectory(w http.ResponseWriter, r *http.Request) {
	dir, err := s.store.LastDirectory(r.Context())
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, lastDirectoryRequest{Directory: dir})
}

// handleSetLastDirectory stores the file-picker directory.
func (s *Server) handleSetLastDirectory(w http.ResponseWriter, r *http.Request) {
	var req lastDirectoryRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, errBadForm, http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.store.SetLastDirectory(r.Context(), req.Directory); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, req)
}
