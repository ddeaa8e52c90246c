package keywords

// Category is an attribute family used to classify target vocabulary.
type Category string

const (
	Color     Category = "color"
	Material  Category = "material"
	Lighting  Category = "lighting"
	Placement Category = "placement"
	Style     Category = "style"
)

// Categories is the fixed reporting order.
var Categories = []Category{Color, Material, Lighting, Placement, Style}

var hints = map[Category][]string{
	Color:     {"red", "blue", "green", "yellow", "orange", "purple", "pink", "white", "black", "gray", "brown", "gold", "silver"},
	Material:  {"wood", "metal", "glass", "plastic", "stone", "marble", "fabric", "ceramic"},
	Lighting:  {"sunlight", "shadow", "shadows", "soft light", "hard light", "studio", "backlit", "sunny", "golden hour", "overcast"},
	Placement: {"center", "centred", "centered", "middle", "left", "right", "close-up", "closeup", "wide", "overhead", "top-down", "background", "foreground"},
	Style:     {"vintage", "modern", "minimal", "realistic", "photo", "photograph", "macro", "film", "bokeh", "cinematic"},
}

// Hints returns a copy of the vocabulary for c.
func Hints(c Category) []string {
	return append([]string(nil), hints[c]...)
}

var stopwords = toSet([]string{
	"a", "an", "the", "with", "and", "or", "of", "on", "in", "at", "to", "for", "by", "from",
	"over", "under", "into", "near", "next", "up", "down", "is", "are", "be",
	"very", "some", "more", "most", "much", "many", "few", "less", "least",
	"this", "that", "these", "those", "it", "its", "as", "like", "while", "between", "behind", "front",
})

// IsStopword reports whether w is ignored during keyword extraction.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// Shapes are the bare geometric nouns beginners learn first.
var Shapes = []string{
	"circle", "square", "triangle", "star", "heart", "rectangle", "oval",
	"diamond", "hexagon", "pentagon", "sphere", "cube", "cone", "cylinder",
}

var shapeSet = toSet(Shapes)

// Colors is the colour vocabulary used for beginner matching.
var Colors = hints[Color]

// Cue is an atmosphere detail that separates a good prompt from a great one.
type Cue struct {
	Name  string
	Words []string
}

// Atmosphere cues checked on high-scoring prompts, in reporting order.
var Atmosphere = []Cue{
	{Name: "fog/smoke", Words: []string{"fog", "smoke", "mist", "haze"}},
	{Name: "weather", Words: []string{"rain", "wet", "snow", "storm"}},
	{Name: "reflections", Words: []string{"reflection", "glass", "mirror"}},
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
