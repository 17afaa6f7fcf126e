package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/dgallion1/corpusload/internal/library"
	"github.com/go-chi/chi/v5"
)

const maxRecordBytes = 64 << 20

func (s *Server) handleListIndexes(w http.ResponseWriter, r *http.Request) {
	idx, err := s.store.ListIndexes(r.Context())
	if err != nil {
		jsonError(w, "failed to list indexes: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if idx == nil {
		idx = []library.Index{}
	}
	writeJSON(w, http.StatusOK, idx)
}

func (s *Server) handleGetIndex(w http.ResponseWriter, r *http.Request) {
	title, ok := pathParam(w, r, "title")
	if !ok {
		return
	}
	idx, err := s.store.GetIndex(r.Context(), title)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

func (s *Server) handlePutIndex(w http.ResponseWriter, r *http.Request) {
	title, ok := pathParam(w, r, "title")
	if !ok {
		return
	}
	var idx library.Index
	if !decodeBody(w, r, &idx) {
		return
	}
	if !matchTitle(w, &idx.Title, title) {
		return
	}
	if err := s.store.ReplaceIndex(r.Context(), idx); err != nil {
		jsonError(w, "failed to store index: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"title": idx.Title})
}

func (s *Server) handleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	title, ok := pathParam(w, r, "title")
	if !ok {
		return
	}
	if err := s.store.DeleteIndex(r.Context(), title); err != nil {
		jsonError(w, "failed to delete index: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	title, ok := pathParam(w, r, "title")
	if !ok {
		return
	}
	v, err := s.store.GetVersion(r.Context(), title)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handlePutVersion(w http.ResponseWriter, r *http.Request) {
	title, ok := pathParam(w, r, "title")
	if !ok {
		return
	}
	var v library.Version
	if !decodeBody(w, r, &v) {
		return
	}
	if !matchTitle(w, &v.Title, title) {
		return
	}
	if v.Chapter == nil {
		jsonError(w, "chapter is required", http.StatusBadRequest)
		return
	}
	if err := s.store.ReplaceVersion(r.Context(), v); err != nil {
		jsonError(w, "failed to store version: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"title": v.Title})
}

func (s *Server) handleDeleteVersions(w http.ResponseWriter, r *http.Request) {
	title, ok := pathParam(w, r, "title")
	if !ok {
		return
	}
	if err := s.store.DeleteVersions(r.Context(), title); err != nil {
		jsonError(w, "failed to delete versions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTerms(w http.ResponseWriter, r *http.Request) {
	scheme, ok := pathParam(w, r, "scheme")
	if !ok {
		return
	}
	terms, err := s.store.ListTerms(r.Context(), scheme)
	if err != nil {
		jsonError(w, "failed to list terms: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if terms == nil {
		terms = []library.Term{}
	}
	writeJSON(w, http.StatusOK, terms)
}

func (s *Server) handlePutTerms(w http.ResponseWriter, r *http.Request) {
	scheme, ok := pathParam(w, r, "scheme")
	if !ok {
		return
	}
	var terms []library.Term
	if !decodeBody(w, r, &terms) {
		return
	}
	for i := range terms {
		terms[i].Scheme = scheme
	}
	if err := s.store.ReplaceTerms(r.Context(), scheme, terms); err != nil {
		jsonError(w, "failed to store terms: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"terms": len(terms)})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		jsonError(w, "failed to list categories: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if cats == nil {
		cats = []library.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handlePutCategories(w http.ResponseWriter, r *http.Request) {
	var cats []library.Category
	if !decodeBody(w, r, &cats) {
		return
	}
	for _, c := range cats {
		if len(c.Path) == 0 {
			jsonError(w, "every category needs a path", http.StatusBadRequest)
			return
		}
	}
	if err := s.store.ReplaceCategories(r.Context(), cats); err != nil {
		jsonError(w, "failed to store categories: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"categories": len(cats)})
}

func pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil || v == "" {
		jsonError(w, "invalid "+name, http.StatusBadRequest)
		return "", false
	}
	return v, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRecordBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// matchTitle fills an empty body title from the URL and rejects a mismatch.
func matchTitle(w http.ResponseWriter, body *string, fromURL string) bool {
	if *body == "" {
		*body = fromURL
	}
	if *body != fromURL {
		jsonError(w, "body title does not match url", http.StatusBadRequest)
		return false
	}
	return true
}

func storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, library.ErrNotFound) {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	jsonError(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
