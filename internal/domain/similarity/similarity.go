// Package similarity holds the pure similarity measures used by the fallback chain.
package similarity

import (
	"math"
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Cosine returns dot(a,b)/(|a||b|) over the shared prefix min(len(a),len(b)).
// The result is in [-1,1]. Empty or zero-norm input yields 0.
func Cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	c := dot / (math.Sqrt(na) * math.Sqrt(nb))
	switch {
	case math.IsNaN(c):
		return 0
	case c > 1:
		return 1
	case c < -1:
		return -1
	}
	return c
}

// ToUnit maps a cosine in [-1,1] onto [0,1] via (c+1)/2.
func ToUnit(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(0, math.Min(1, (c+1)/2))
}

// Tokens lowercases s, replaces punctuation with spaces and splits on whitespace.
func Tokens(s string) []string {
	return strings.Fields(nonWord.ReplaceAllString(strings.ToLower(s), " "))
}

// Lexical is the Jaccard overlap of the token sets of a and b.
// It returns 0 when both are empty and never fails.
func Lexical(a, b string) float64 {
	setA := toSet(Tokens(a))
	setB := toSet(Tokens(b))

	inter := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
