package api

import (
	"net/http"
)

// maxRevealTokens caps one reveal batch.
const maxRevealTokens = 100

type sealRequest struct {
	Text string `json:"text"`
}

type sealResponse struct {
	Token string `json:"token"`
}

type revealRequest struct {
	Tokens []string `json:"tokens"`
}

type revealResponse struct {
	Prompts []*string `json:"prompts"`
}

// SealHandler issues and opens gold tokens.
type SealHandler struct {
	deps Dependencies
}

// NewSealHandler creates a new seal handler.
func NewSealHandler(deps Dependencies) *SealHandler {
	return &SealHandler{deps: deps}
}

// HandleSeal handles POST /seal requests.
func (h *SealHandler) HandleSeal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req sealRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	tok, err := h.deps.Seal(r.Context(), req.Text)
	if err != nil {
		writeServiceError(r.Context(), w, "api.seal", err)
		return
	}
	writeJSON(w, http.StatusOK, sealResponse{Token: tok})
}

// HandleReveal handles POST /reveal requests. Unreadable tokens come back
// as null in the same position.
func (h *SealHandler) HandleReveal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req revealRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if len(req.Tokens) > maxRevealTokens {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "validation_error",
			Message: "too many tokens",
			Field:   "tokens",
		})
		return
	}
	writeJSON(w, http.StatusOK, revealResponse{Prompts: h.deps.Reveal(r.Context(), req.Tokens)})
}
