package feedback

import (
	"hash/fnv"
	"strings"
)

// DefaultTips is the generic coaching pool used when no concrete gap is found.
var DefaultTips = []string{
	"Add a camera angle (macro, wide, overhead)",
	"Specify time of day and lighting (golden hour, overcast)",
	"Mention material and texture (wood, metal, glossy, matte)",
	"Add style cues (cinematic, vintage, studio photo)",
	"Control depth of field (shallow focus, bokeh)",
	"Refine background/foreground separation",
	"Boost contrast and shadows for clarity",
	"State color palette explicitly",
	"Describe placement and distance (centered, close-up)",
	"Use environment context (on a table, on the beach)",
}

// pick selects a tip by hashing target and prompt. Same inputs, same tip.
func pick(pool []string, target, prompt string) string {
	if len(pool) == 0 {
		return DefaultTips[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(target)))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(strings.ToLower(prompt)))
	return pool[h.Sum32()%uint32(len(pool))]
}
