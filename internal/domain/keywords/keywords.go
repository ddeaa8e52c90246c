// Package keywords diffs target and prompt vocabulary to find what a prompt left out.
package keywords

import (
	"regexp"
	"strings"
)

const (
	maxMissingKeywords = 8
	minKeywordLen      = 3
	defaultSubject     = "target"
)

var nonKeyword = regexp.MustCompile(`[^a-z0-9\s-]`)

// Tokenize lowercases text, replaces everything but letters, digits, hyphens
// and whitespace with spaces and splits on whitespace.
func Tokenize(text string) []string {
	return strings.Fields(nonKeyword.ReplaceAllString(strings.ToLower(text), " "))
}

// Keywords drops stopwords and tokens shorter than three characters.
func Keywords(text string) []string {
	var out []string
	for _, t := range Tokenize(text) {
		if len(t) < minKeywordLen || IsStopword(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Options tune Analyze.
type Options struct {
	// DropShapes removes bare shape nouns from the target side.
	DropShapes bool
}

// Analysis is the vocabulary diff between a target and a prompt.
type Analysis struct {
	// Subject is a short noun phrase for the target, "target" when nothing survives.
	Subject string
	// TargetKeywords are the cleaned target tokens in order.
	TargetKeywords []string
	// MissingKeywords are target keywords absent from the prompt, ordered,
	// deduplicated and capped at eight.
	MissingKeywords []string
	// MissingAttributes lists categories hinted by the target but not the prompt.
	MissingAttributes []Category
}

// Analyze diffs target against prompt.
func Analyze(target, prompt string, opts Options) Analysis {
	all := Keywords(target)
	targetKW := all
	if opts.DropShapes {
		targetKW = withoutShapes(all)
	}

	promptKW := toSet(Keywords(prompt))
	seen := make(map[string]struct{}, len(targetKW))
	var missing []string
	for _, w := range targetKW {
		if _, ok := promptKW[w]; ok {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		missing = append(missing, w)
		if len(missing) == maxMissingKeywords {
			break
		}
	}

	return Analysis{
		Subject:           subject(targetKW, all),
		TargetKeywords:    targetKW,
		MissingKeywords:   missing,
		MissingAttributes: MissingCategories(target, prompt),
	}
}

// MissingCategories returns, in fixed order, the categories for which target
// mentions a hint and prompt mentions none.
func MissingCategories(target, prompt string) []Category {
	t, p := normalize(target), normalize(prompt)
	var out []Category
	for _, c := range Categories {
		if containsAny(t, hints[c]) && !containsAny(p, hints[c]) {
			out = append(out, c)
		}
	}
	return out
}

// MissingCues returns the names of atmosphere cues present in target but not in prompt.
func MissingCues(target, prompt string) []string {
	tt, pt := Tokenize(target), Tokenize(prompt)
	var out []string
	for _, c := range Atmosphere {
		if hasPrefixed(tt, c.Words) && !hasPrefixed(pt, c.Words) {
			out = append(out, c.Name)
		}
	}
	return out
}

// FirstMatch returns the first vocabulary entry found in text as a whole word
// or phrase, or "".
func FirstMatch(text string, vocab []string) string {
	n := normalize(text)
	for _, w := range vocab {
		if containsPhrase(n, w) {
			return w
		}
	}
	return ""
}

// ContainsAny reports whether text mentions any vocabulary entry as a whole word or phrase.
func ContainsAny(text string, vocab []string) bool {
	return containsAny(normalize(text), vocab)
}

// IsShape reports whether w is a bare shape noun.
func IsShape(w string) bool {
	_, ok := shapeSet[w]
	return ok
}

func subject(filtered, all []string) string {
	src := filtered
	if len(src) == 0 {
		src = all
	}
	if len(src) == 0 {
		return defaultSubject
	}
	return strings.Join(src[:min(2, len(src))], " ")
}

func withoutShapes(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if !IsShape(w) {
			out = append(out, w)
		}
	}
	return out
}

// normalize pads the token stream with spaces so phrases match on word boundaries.
func normalize(text string) string {
	return " " + strings.Join(Tokenize(text), " ") + " "
}

func containsPhrase(normalized, phrase string) bool {
	return strings.Contains(normalized, " "+phrase+" ")
}

func containsAny(normalized string, vocab []string) bool {
	for _, w := range vocab {
		if containsPhrase(normalized, w) {
			return true
		}
	}
	return false
}

func hasPrefixed(tokens, stems []string) bool {
	for _, t := range tokens {
		for _, s := range stems {
			if strings.HasPrefix(t, s) {
				return true
			}
		}
	}
	return false
}
