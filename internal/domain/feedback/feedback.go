// Package feedback builds the note/tip pair that explains a score.
package feedback

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/okian/promptmatch/internal/domain/keywords"
	"github.com/okian/promptmatch/internal/domain/tier"
	"github.com/okian/promptmatch/internal/domain/types"
)

const (
	highScore          = 90
	maxNoteAttributes  = 5
	maxTipSpecifics    = 2
	maxHumanizeClauses = 3
	minHumanizeClauses = 2
)

var textureWord = regexp.MustCompile(`(?i)\btexture\b`)

var prepositions = map[string]struct{}{
	"with": {}, "on": {}, "in": {}, "at": {}, "of": {}, "by": {}, "for": {},
	"to": {}, "from": {}, "under": {}, "over": {}, "near": {}, "into": {},
}

// Input is what the generator compares.
type Input struct {
	// Target is the full reference description.
	Target string
	// Label is the short target label ("red circle"); Target is used when empty.
	Label  string
	Prompt string
	Score  int
	Tier   types.Tier
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithRules replaces the built-in tier table.
func WithRules(t tier.Table) Option {
	return func(g *Generator) { g.rules = t }
}

// WithTips replaces the generic tip pool. Empty pools are ignored.
func WithTips(tips []string) Option {
	return func(g *Generator) {
		if len(tips) > 0 {
			g.tips = append([]string(nil), tips...)
		}
	}
}

// Generator is stateless after construction and safe for concurrent use.
type Generator struct {
	rules tier.Table
	tips  []string
}

// NewGenerator creates a generator with the built-in tier table and tip pool.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{rules: tier.Default(), tips: DefaultTips}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a non-empty note and tip. It has no hidden randomness.
func (g *Generator) Generate(in Input) types.Feedback {
	if in.Score > highScore {
		return g.polish(in)
	}

	rule := g.rules.Lookup(in.Tier)
	a := keywords.Analyze(in.Target, in.Prompt, keywords.Options{DropShapes: rule.FilterShapeWords})
	specifics := notInSubject(a)

	var note string
	switch rule.NoteStyle {
	case tier.NoteQuoteLabel:
		if l := strings.TrimSpace(label(in)); l != "" {
			note = fmt.Sprintf(`Try: "%s"`, trimPunct(l))
		}
	case tier.NoteHumanize:
		if h := humanize(in.Target, rule.MaxNoteWords); h != "" {
			note = fmt.Sprintf(`Try: "%s"`, h)
		}
	}
	if note == "" {
		note = diffNote(a, specifics)
	}

	return types.Feedback{Note: note, Tip: g.tip(in, a, specifics)}
}

// polish handles scores above 90: point at atmosphere the prompt skipped or move on.
func (g *Generator) polish(in Input) types.Feedback {
	if cues := keywords.MissingCues(in.Target, in.Prompt); len(cues) > 0 {
		list := strings.Join(cues, ", ")
		return types.Feedback{
			Note: fmt.Sprintf("Try adding: %s for 95+", list),
			Tip:  "Focus on: " + list,
		}
	}
	note := fmt.Sprintf("Perfect! Ready for %s mode.", in.Tier.Next())
	if in.Tier.Next() == in.Tier {
		note = "Perfect! Nothing left to add."
	}
	return types.Feedback{Note: note, Tip: pick(g.tips, in.Target, in.Prompt)}
}

func (g *Generator) tip(in Input, a keywords.Analysis, specifics []string) string {
	if len(a.MissingAttributes) > 0 {
		names := make([]string, len(a.MissingAttributes))
		for i, c := range a.MissingAttributes {
			names[i] = string(c)
		}
		return "Focus on: " + strings.Join(names, ", ")
	}
	if len(specifics) > 0 {
		return "Add specifics: " + strings.Join(specifics[:min(maxTipSpecifics, len(specifics))], ", ")
	}
	return pick(g.tips, in.Target, in.Prompt)
}

func label(in Input) string {
	if in.Label != "" {
		return in.Label
	}
	return in.Target
}

// notInSubject keeps missing keywords that the subject phrase does not already say.
func notInSubject(a keywords.Analysis) []string {
	subj := make(map[string]struct{})
	for _, w := range strings.Fields(a.Subject) {
		subj[w] = struct{}{}
	}
	var out []string
	for _, w := range a.MissingKeywords {
		if _, ok := subj[w]; ok {
			continue
		}
		out = append(out, w)
		if len(out) == maxNoteAttributes {
			break
		}
	}
	return out
}

func diffNote(a keywords.Analysis, specifics []string) string {
	if len(a.MissingKeywords) == 0 {
		return fmt.Sprintf("Describe the %s with specific color, lighting and placement.", a.Subject)
	}
	words := append(append([]string(nil), specifics...), a.Subject)
	phrase := sanitize(strings.Join(words, " "))
	if phrase == "" {
		phrase = a.Subject
	}
	return fmt.Sprintf(`Try: "%s"`, phrase)
}

// humanize keeps the first clauses of a descriptor, swaps "texture" for
// "surface" and stays under maxWords+1 words.
func humanize(target string, maxWords int) string {
	var clauses []string
	for _, c := range strings.Split(target, ",") {
		if c = strings.TrimSpace(c); c != "" {
			clauses = append(clauses, c)
		}
		if len(clauses) == maxHumanizeClauses {
			break
		}
	}
	if len(clauses) == 0 {
		return ""
	}

	text := textureWord.ReplaceAllString(strings.Join(clauses, ", "), "surface")
	if maxWords <= 0 {
		return trimPunct(text)
	}
	for len(clauses) > minHumanizeClauses && len(strings.Fields(text)) > maxWords {
		clauses = clauses[:len(clauses)-1]
		text = textureWord.ReplaceAllString(strings.Join(clauses, ", "), "surface")
	}
	if words := strings.Fields(text); len(words) > maxWords {
		text = strings.Join(words[:maxWords], " ")
	}
	return trimPunct(text)
}

// sanitize removes repeated words, collapses runs of prepositions, drops a
// leading "with" and trims trailing punctuation or dangling prepositions.
func sanitize(phrase string) string {
	var out []string
	for _, w := range strings.Fields(phrase) {
		lw := bare(w)
		if lw == "" {
			continue
		}
		if n := len(out); n > 0 {
			prev := bare(out[n-1])
			if prev == lw {
				continue
			}
			if isPreposition(prev) && isPreposition(lw) {
				out[n-1] = w
				continue
			}
		}
		out = append(out, w)
	}
	for len(out) > 0 && bare(out[0]) == "with" {
		out = out[1:]
	}
	for len(out) > 0 && isPreposition(bare(out[len(out)-1])) {
		out = out[:len(out)-1]
	}
	return trimPunct(strings.Join(out, " "))
}

func bare(w string) string {
	return strings.ToLower(strings.Trim(w, ".,;:!?"))
}

func isPreposition(w string) bool {
	_, ok := prepositions[w]
	return ok
}

func trimPunct(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ".,;:!? ")
}

var defaultGenerator = NewGenerator()

// Generate uses the built-in tier table and tip pool.
func Generate(in Input) types.Feedback {
	return defaultGenerator.Generate(in)
}
