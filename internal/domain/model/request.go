// Package model holds the request shapes accepted by the scoring service.
package model

import (
	"strings"
)

// ScoreRequest is one scoring call as received over the wire.
// Images are base64 or data URLs and Tier is a tier name; the service
// decodes and validates both before scoring.
type ScoreRequest struct {
	Prompt             string    `json:"prompt"`
	Tier               string    `json:"tier"`
	TargetDescription  string    `json:"targetDescription,omitempty"`
	TargetLabel        string    `json:"targetLabel,omitempty"`
	TargetToken        string    `json:"targetToken,omitempty"`
	TargetImage        string    `json:"targetImage,omitempty"`
	GeneratedImage     string    `json:"generatedImage,omitempty"`
	TargetEmbedding    []float32 `json:"targetEmbedding,omitempty"`
	GeneratedEmbedding []float32 `json:"generatedEmbedding,omitempty"`
}

// HasTarget reports whether anything describes the target: text, a sealed
// token, an image or a precomputed embedding.
func (r ScoreRequest) HasTarget() bool {
	return strings.TrimSpace(r.TargetDescription) != "" ||
		strings.TrimSpace(r.TargetToken) != "" ||
		strings.TrimSpace(r.TargetImage) != "" ||
		len(r.TargetEmbedding) > 0
}

// LabelOr returns the short target label, or fallback when none was sent.
// Callers pass the resolved description so sealed targets label correctly.
func (r ScoreRequest) LabelOr(fallback string) string {
	if l := strings.TrimSpace(r.TargetLabel); l != "" {
		return l
	}
	return strings.TrimSpace(fallback)
}
