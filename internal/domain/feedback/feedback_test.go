package feedback

import (
	"strings"
	"testing"

	"github.com/okian/promptmatch/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate_Diff(t *testing.T) {
	Convey("Given a hard-tier target and a vague prompt", t, func() {
		in := Input{
			Target: "glossy red apple on a wooden table, soft light, close-up",
			Prompt: "a fruit",
			Score:  40,
			Tier:   types.Hard,
		}

		Convey("When generating feedback", func() {
			fb := Generate(in)

			Convey("Then the note should list missing words before the subject", func() {
				So(fb.Note, ShouldEqual, `Try: "apple wooden table soft light glossy red"`)
			})

			Convey("And the tip should name the missing categories in order", func() {
				So(fb.Tip, ShouldEqual, "Focus on: color, lighting, placement")
			})
		})

		Convey("When the prompt misses only uncategorised words", func() {
			fb := Generate(Input{Target: "rustic apple basket", Prompt: "apple", Score: 50, Tier: types.Hard})

			Convey("Then the tip should surface them as specifics", func() {
				So(fb.Note, ShouldEqual, `Try: "basket rustic apple"`)
				So(fb.Tip, ShouldEqual, "Add specifics: basket")
			})
		})

		Convey("When nothing is missing", func() {
			fb := Generate(Input{Target: "apple", Prompt: "an apple", Score: 50, Tier: types.Hard})

			Convey("Then the note should ask for detail and the tip should come from the pool", func() {
				So(fb.Note, ShouldEqual, "Describe the apple with specific color, lighting and placement.")
				So(DefaultTips, ShouldContain, fb.Tip)
			})
		})
	})
}

func TestGenerate_TierStyles(t *testing.T) {
	Convey("Given tier-specific note styles", t, func() {
		Convey("When the tier is easy", func() {
			fb := Generate(Input{
				Target: "red circle on white background",
				Label:  "red circle",
				Prompt: "blue square",
				Score:  30,
				Tier:   types.Easy,
			})

			Convey("Then the note should quote the short label", func() {
				So(fb.Note, ShouldEqual, `Try: "red circle"`)
				So(fb.Tip, ShouldEqual, "Focus on: placement")
			})
		})

		Convey("When the tier is easy and no label is given", func() {
			fb := Generate(Input{Target: "glowing heart.", Prompt: "a star", Score: 20, Tier: types.Easy})

			Convey("Then the target itself should be quoted", func() {
				So(fb.Note, ShouldEqual, `Try: "glowing heart"`)
			})
		})

		Convey("When the tier is medium", func() {
			fb := Generate(Input{
				Target: "yellow flower crown, woven daisies, soft texture, pastel background, studio light",
				Prompt: "crown",
				Score:  50,
				Tier:   types.Medium,
			})

			Convey("Then the note should be the humanized descriptor", func() {
				So(fb.Note, ShouldEqual, `Try: "yellow flower crown, woven daisies, soft surface"`)
				So(fb.Note, ShouldContainSubstring, "yellow flower crown")
			})
		})

		Convey("When a medium descriptor is long", func() {
			h := humanize("a very large ornate golden picture frame, carved wooden texture with deep grooves, hanging on a wall", 9)

			Convey("Then it should be cut below ten words without the word texture", func() {
				So(len(strings.Fields(h)), ShouldBeLessThanOrEqualTo, 9)
				So(h, ShouldNotContainSubstring, "texture")
				So(h, ShouldStartWith, "a very large ornate golden picture frame")
			})
		})
	})
}

func TestGenerate_HighScores(t *testing.T) {
	Convey("Given scores above 90", t, func() {
		Convey("When the target has atmosphere the prompt skipped", func() {
			fb := Generate(Input{Target: "foggy harbor with wet reflections", Prompt: "harbor at dusk", Score: 93, Tier: types.Hard})

			Convey("Then the note should suggest the cues", func() {
				So(fb.Note, ShouldEqual, "Try adding: fog/smoke, weather, reflections for 95+")
				So(fb.Tip, ShouldEqual, "Focus on: fog/smoke, weather, reflections")
			})
		})

		Convey("When nothing is left to add", func() {
			medium := Generate(Input{Target: "apple", Prompt: "apple", Score: 95, Tier: types.Medium})
			expert := Generate(Input{Target: "apple", Prompt: "apple", Score: 95, Tier: types.Expert})

			Convey("Then the note should point at the next tier", func() {
				So(medium.Note, ShouldEqual, "Perfect! Ready for hard mode.")
				So(expert.Note, ShouldEqual, "Perfect! Nothing left to add.")
				So(DefaultTips, ShouldContain, medium.Tip)
			})
		})

		Convey("When the score is exactly 90", func() {
			fb := Generate(Input{Target: "apple", Prompt: "apple", Score: 90, Tier: types.Hard})

			Convey("Then it should not count as high", func() {
				So(fb.Note, ShouldStartWith, "Describe the apple")
			})
		})
	})
}

func TestGenerate_Properties(t *testing.T) {
	Convey("Given many inputs", t, func() {
		targets := []string{"", "apple", "red circle", "misty forest at dawn, volumetric light", "glass vase, texture, left"}
		prompts := []string{"", "apple", "forest", "a blue vase on the left"}
		scores := []int{0, 45, 90, 91, 100}

		Convey("Note and tip should never be empty and should be stable", func() {
			for _, tr := range types.Tiers() {
				for _, tg := range targets {
					for _, p := range prompts {
						for _, s := range scores {
							in := Input{Target: tg, Prompt: p, Score: s, Tier: tr}
							first := Generate(in)
							So(first.Note, ShouldNotBeBlank)
							So(first.Tip, ShouldNotBeBlank)
							So(Generate(in), ShouldResemble, first)
						}
					}
				}
			}
		})

		Convey("Different inputs should spread over the tip pool", func() {
			seen := map[string]bool{}
			for i := 0; i < 200; i++ {
				seen[pick(DefaultTips, "apple", strings.Repeat("x", i))] = true
			}
			So(len(seen), ShouldBeGreaterThan, 5)
		})

		Convey("A custom pool should be honoured", func() {
			g := NewGenerator(WithTips([]string{"only tip"}))
			So(g.Generate(Input{Target: "apple", Prompt: "apple", Score: 10, Tier: types.Hard}).Tip, ShouldEqual, "only tip")
		})
	})
}

func TestSanitize(t *testing.T) {
	Convey("Given sanitize", t, func() {
		So(sanitize("with a red red ball on."), ShouldEqual, "a red ball")
		So(sanitize("with with on on the red ball."), ShouldEqual, "on the red ball")
		So(sanitize("ball,  ,"), ShouldEqual, "ball")
		So(sanitize("with"), ShouldEqual, "")
	})
}
