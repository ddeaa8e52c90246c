// Package tier holds the per-difficulty scoring and feedback policy.
//
// Every tier-dependent decision in the shaper and the feedback generator is
// read from a Rule in this table; callers never branch on tier names.
package tier

import (
	"regexp"
	"strings"

	"github.com/okian/promptmatch/internal/domain/types"
)

// Bonus is one additive prompt-craft reward.
type Bonus struct {
	Name   string
	Points int
	match  func(prompt string) bool
}

// Matches reports whether prompt earns the bonus.
func (b Bonus) Matches(prompt string) bool {
	return b.match != nil && b.match(prompt)
}

// NoteStyle selects how the feedback note is phrased for sub-90 scores.
type NoteStyle int

const (
	// NoteDiff builds the note from the keyword diff.
	NoteDiff NoteStyle = iota
	// NoteQuoteLabel quotes the short target label directly.
	NoteQuoteLabel
	// NoteHumanize trims the target descriptor into a natural phrase.
	NoteHumanize
)

// Rule is the static policy for one tier. Rules are values; the table never hands
// out pointers so callers cannot mutate it.
type Rule struct {
	Tier types.Tier

	Bonuses  []Bonus
	BonusCap int

	// Prompts with fewer than MinWords words lose ShortPromptPenalty points.
	MinWords           int
	ShortPromptPenalty int

	// Beginner boosts, applied only when a target label is known.
	ColorBoost int
	ShapeBoost int
	// Shape mismatch penalty: (ShapeMismatchBelow-sim)*ShapeMismatchScale, capped.
	ShapeMismatchBelow float64
	ShapeMismatchScale float64
	ShapeMismatchCap   int

	// FilterShapeWords drops bare shape nouns from the target during keyword diffing.
	FilterShapeWords bool
	NoteStyle        NoteStyle
	// MaxNoteWords bounds a humanized note.
	MaxNoteWords int
}

// Point values. These are tunable constants, not a contract.
const (
	TexturePoints  = 8
	LightingPoints = 7
	NegativePoints = 6
	AspectPoints   = 4
	QualityPoints  = 5

	defaultMinWords    = 6
	defaultShortPrompt = 10
)

var (
	textureRe  = regexp.MustCompile(`(?i)shiny|fuzzy|matte|glossy|rough|smooth|metal|glass`)
	lightingRe = regexp.MustCompile(`(?i)shadow|light|glowing|backlit|warm|cool|volumetric|cinematic`)
	qualityRe  = regexp.MustCompile(`(?i)masterpiece|ultra-detailed|highly detailed`)
)

// Bonus catalogue.
var (
	Texture  = Bonus{Name: "texture", Points: TexturePoints, match: textureRe.MatchString}
	Light    = Bonus{Name: "lighting", Points: LightingPoints, match: lightingRe.MatchString}
	Negative = Bonus{Name: "negative-prompt", Points: NegativePoints, match: marker("--no")}
	Aspect   = Bonus{Name: "aspect-ratio", Points: AspectPoints, match: marker("--ar")}
	Quality  = Bonus{Name: "quality", Points: QualityPoints, match: qualityRe.MatchString}
)

func marker(m string) func(string) bool {
	return func(p string) bool { return strings.Contains(p, m) }
}

// Table maps every tier to its rule.
type Table struct {
	rules map[types.Tier]Rule
}

// Default returns the built-in table.
func Default() Table {
	return NewTable(
		Rule{
			Tier:               types.Easy,
			ColorBoost:         3,
			ShapeBoost:         5,
			ShapeMismatchBelow: 0.8,
			ShapeMismatchScale: 50,
			ShapeMismatchCap:   10,
			NoteStyle:          NoteQuoteLabel,
		},
		Rule{
			Tier:             types.Medium,
			Bonuses:          []Bonus{Texture, Light},
			BonusCap:         15,
			FilterShapeWords: true,
			NoteStyle:        NoteHumanize,
			MaxNoteWords:     9,
		},
		Rule{
			Tier:               types.Hard,
			Bonuses:            []Bonus{Texture, Light, Quality},
			BonusCap:           20,
			MinWords:           defaultMinWords,
			ShortPromptPenalty: defaultShortPrompt,
			FilterShapeWords:   true,
			NoteStyle:          NoteDiff,
		},
		Rule{
			Tier:               types.Advanced,
			Bonuses:            []Bonus{Texture, Light, Negative, Aspect, Quality},
			BonusCap:           25,
			MinWords:           defaultMinWords,
			ShortPromptPenalty: defaultShortPrompt,
			FilterShapeWords:   true,
			NoteStyle:          NoteDiff,
		},
		Rule{
			Tier:               types.Expert,
			Bonuses:            []Bonus{Texture, Light, Negative, Aspect, Quality},
			BonusCap:           30,
			MinWords:           defaultMinWords,
			ShortPromptPenalty: defaultShortPrompt,
			FilterShapeWords:   true,
			NoteStyle:          NoteDiff,
		},
	)
}

// NewTable builds a table from rules. Later rules for the same tier win.
func NewTable(rules ...Rule) Table {
	t := Table{rules: make(map[types.Tier]Rule, len(rules))}
	for _, r := range rules {
		r.Bonuses = append([]Bonus(nil), r.Bonuses...)
		t.rules[r.Tier] = r
	}
	return t
}

// Lookup returns the rule for tr. Unknown tiers get the strictest defined rule
// below them, falling back to Easy.
func (t Table) Lookup(tr types.Tier) Rule {
	for cur := tr; cur >= types.Easy; cur-- {
		if r, ok := t.rules[cur]; ok {
			r.Bonuses = append([]Bonus(nil), r.Bonuses...)
			return r
		}
	}
	return Rule{Tier: tr}
}

var defaultTable = Default()

// Lookup reads the built-in table.
func Lookup(tr types.Tier) Rule { return defaultTable.Lookup(tr) }

// WordCount counts whitespace-separated words.
func WordCount(s string) int { return len(strings.Fields(s)) }
