// Package types contains common types used across the application
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTier is returned by ParseTier for unrecognised tier names.
var ErrUnknownTier = errors.New("unknown tier")

// Tier is a difficulty level. Tiers are ordered; Easy is the lowest.
type Tier int

const (
	Easy Tier = iota
	Medium
	Hard
	Advanced
	Expert
)

var tierNames = [...]string{"easy", "medium", "hard", "advanced", "expert"}

// Tiers lists every tier from lowest to highest.
func Tiers() []Tier { return []Tier{Easy, Medium, Hard, Advanced, Expert} }

func (t Tier) String() string {
	if t < Easy || t > Expert {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// Valid reports whether t is one of the defined tiers.
func (t Tier) Valid() bool { return t >= Easy && t <= Expert }

// Next returns the following tier, or Expert when already at the top.
func (t Tier) Next() Tier {
	if t >= Expert {
		return Expert
	}
	return t + 1
}

// ParseTier maps a case-insensitive name to a Tier.
func ParseTier(s string) (Tier, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range tierNames {
		if n == name {
			return Tier(i), nil
		}
	}
	return Easy, fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTier, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ScoringMode records which fallback step produced a similarity.
type ScoringMode string

const (
	ModeImageEmbedding  ScoringMode = "image-embedding"
	ModeTextEmbedding   ScoringMode = "text-embedding"
	ModeLexicalFallback ScoringMode = "lexical-fallback"
)

// Valid reports whether m is one of the three defined modes.
func (m ScoringMode) Valid() bool {
	switch m {
	case ModeImageEmbedding, ModeTextEmbedding, ModeLexicalFallback:
		return true
	}
	return false
}

// SimilarityResult is a similarity in [0,1] and the mode that produced it.
type SimilarityResult struct {
	Value01 float64
	Mode    ScoringMode
}

// Feedback is the note/tip pair shown to the user.
type Feedback struct {
	Note string `json:"note"`
	Tip  string `json:"tip"`
}

// ScoreResult is returned once per score request.
type ScoreResult struct {
	AIScore      int         `json:"aiScore"`
	Similarity01 float64     `json:"similarity01"`
	Bonus        int         `json:"bonus"`
	Penalty      int         `json:"penalty"`
	ScoringMode  ScoringMode `json:"scoringMode"`
	Feedback     Feedback    `json:"feedback"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
}
