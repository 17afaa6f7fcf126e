package api

import (
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	idx, err := s.store.ListIndexes(r.Context())
	if err != nil {
		jsonError(w, "failed to list indexes: "+err.Error(), http.StatusInternalServerError)
		return
	}
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		jsonError(w, "failed to list categories: "+err.Error(), http.StatusInternalServerError)
		return
	}

	stats := map[string]any{
		"indexes":    len(idx),
		"categories": len(cats),
	}
	if s.orchestrator != nil {
		stats["queue_depth"] = s.orchestrator.QueueDepth()
	}
	if s.search != nil {
		if n, err := s.search.DocCount(); err == nil {
			stats["segments"] = n
		}
	}
	writeJSON(w, http.StatusOK, stats)
}
