package smoke

import (
	"fmt"
	"strings"
)

var validModes = map[string]bool{
	"image-embedding":  true,
	"text-embedding":   true,
	"lexical-fallback": true,
}

// checkResponses validates the repeated responses of one case.
func checkResponses(rs []scoreResponse) []string {
	var problems []string
	for i, r := range rs {
		if r.AIScore < 0 || r.AIScore > 100 {
			problems = append(problems, fmt.Sprintf("#%d aiScore %d out of range", i, r.AIScore))
		}
		if r.Similarity01 < 0 || r.Similarity01 > 1 {
			problems = append(problems, fmt.Sprintf("#%d similarity01 %.4f out of range", i, r.Similarity01))
		}
		if !validModes[r.ScoringMode] {
			problems = append(problems, fmt.Sprintf("#%d unknown scoringMode %q", i, r.ScoringMode))
		}
		if strings.TrimSpace(r.Feedback.Note) == "" {
			problems = append(problems, fmt.Sprintf("#%d empty feedback note", i))
		}
	}
	for i := 1; i < len(rs); i++ {
		if rs[i].Feedback != rs[0].Feedback {
			problems = append(problems, fmt.Sprintf("#%d feedback differs from #0", i))
		}
		if rs[i].AIScore != rs[0].AIScore {
			problems = append(problems, fmt.Sprintf("#%d aiScore %d differs from #0 (%d)", i, rs[i].AIScore, rs[0].AIScore))
		}
	}
	return problems
}

// checkOrdering flags targets where the exact prompt scored below the
// placeholder prompt under the same mode.
func checkOrdering(outcomes []Outcome) {
	type key struct{ tier, target string }
	weak := map[key]int{}
	for i, o := range outcomes {
		if o.Case.Prompt == "test" && !o.Case.TargetToken {
			weak[key{o.Case.Tier, o.Case.Target}] = i
		}
	}
	for i := range outcomes {
		o := &outcomes[i]
		if o.Case.TargetToken || o.Case.Prompt != o.Case.Target {
			continue
		}
		j, ok := weak[key{o.Case.Tier, o.Case.Target}]
		if !ok || outcomes[j].Mode != o.Mode {
			continue
		}
		if o.Similarity < outcomes[j].Similarity {
			o.Problems = append(o.Problems, fmt.Sprintf("exact prompt similarity %.4f below placeholder %.4f",
				o.Similarity, outcomes[j].Similarity))
		}
	}
}
