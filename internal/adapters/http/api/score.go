package api

import (
	"net/http"

	"github.com/okian/promptmatch/internal/domain/model"
)

// ScoreHandler handles scoring requests.
type ScoreHandler struct {
	deps Dependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps Dependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandleScore handles POST /score requests. Provider failures never surface
// here; the service degrades to a heuristic result instead.
func (h *ScoreHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req model.ScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	res, err := h.deps.Score(r.Context(), req)
	if err != nil {
		writeServiceError(r.Context(), w, "api.score", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
