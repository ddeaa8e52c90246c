// Package scoring turns a similarity into a tier-shaped integer score.
package scoring

import (
	"math"

	"github.com/okian/promptmatch/internal/domain/keywords"
	"github.com/okian/promptmatch/internal/domain/tier"
	"github.com/okian/promptmatch/internal/domain/types"
)

const (
	minScore = 0
	maxScore = 100
)

// Option applies a configuration option to the Shaper.
type Option func(*Shaper)

// WithRules replaces the built-in tier table.
func WithRules(t tier.Table) Option {
	return func(s *Shaper) {
		s.rules = t
	}
}

// Input carries everything the shaper looks at.
type Input struct {
	// Similarity01 is clamped into [0,1]; NaN counts as 0.
	Similarity01 float64
	Prompt       string
	// Label is the short target label ("red circle"). Beginner boosts need it.
	Label string
	Tier  types.Tier
}

// Result is the shaped score and its parts. Score == clamp(Base+Bonus-Penalty).
type Result struct {
	Score   int
	Base    int
	Bonus   int
	Penalty int
	// Awarded names the bonuses that fired, for logs.
	Awarded []string
}

// Shaper applies tier rules. It holds no mutable state and is safe for concurrent use.
type Shaper struct {
	rules tier.Table
}

// NewShaper creates a shaper using the built-in tier table unless overridden.
func NewShaper(opts ...Option) *Shaper {
	s := &Shaper{rules: tier.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Shape computes the final score. It is pure: same input, same result.
func (s *Shaper) Shape(in Input) Result {
	sim := clamp01(in.Similarity01)
	rule := s.rules.Lookup(in.Tier)

	res := Result{Base: int(math.Round(sim * maxScore))}

	for _, b := range rule.Bonuses {
		if b.Matches(in.Prompt) {
			res.Bonus += b.Points
			res.Awarded = append(res.Awarded, b.Name)
		}
	}
	if rule.BonusCap > 0 && res.Bonus > rule.BonusCap {
		res.Bonus = rule.BonusCap
	}

	if in.Label != "" {
		boost, penalty, awarded := labelMatch(rule, sim, in.Label, in.Prompt)
		res.Bonus += boost
		res.Penalty += penalty
		res.Awarded = append(res.Awarded, awarded...)
	}

	if rule.MinWords > 0 && tier.WordCount(in.Prompt) < rule.MinWords {
		res.Penalty += rule.ShortPromptPenalty
	}

	res.Score = clampScore(res.Base + res.Bonus - res.Penalty)
	return res
}

// labelMatch rewards naming the target's colour and shape and penalises naming
// the wrong shape on a weak match.
func labelMatch(rule tier.Rule, sim float64, label, prompt string) (boost, penalty int, awarded []string) {
	if rule.ColorBoost > 0 {
		if c := keywords.FirstMatch(label, keywords.Colors); c != "" && keywords.ContainsAny(prompt, []string{c}) {
			boost += rule.ColorBoost
			awarded = append(awarded, "color")
		}
	}

	want := keywords.FirstMatch(label, keywords.Shapes)
	if want == "" {
		return boost, penalty, awarded
	}
	if rule.ShapeBoost > 0 && keywords.ContainsAny(prompt, []string{want}) {
		boost += rule.ShapeBoost
		awarded = append(awarded, "shape")
		return boost, penalty, awarded
	}
	got := keywords.FirstMatch(prompt, keywords.Shapes)
	if rule.ShapeMismatchCap > 0 && got != "" && got != want && sim < rule.ShapeMismatchBelow {
		p := int(math.Round((rule.ShapeMismatchBelow - sim) * rule.ShapeMismatchScale))
		penalty += min(max(p, 0), rule.ShapeMismatchCap)
	}
	return boost, penalty, awarded
}

var defaultShaper = NewShaper()

// Shape scores with the built-in tier table and no target label.
func Shape(similarity01 float64, prompt string, t types.Tier) int {
	return defaultShaper.Shape(Input{Similarity01: similarity01, Prompt: prompt, Tier: t}).Score
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func clampScore(v int) int {
	return max(minScore, min(maxScore, v))
}
