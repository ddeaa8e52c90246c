package api

import "net/http"

// CacheHandler administers the embedding cache.
type CacheHandler struct {
	deps Dependencies
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(deps Dependencies) *CacheHandler {
	return &CacheHandler{deps: deps}
}

// HandleClear handles DELETE /cache requests.
func (h *CacheHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.ClearCache(r.Context()); err != nil {
		writeServiceError(r.Context(), w, "api.clear_cache", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
