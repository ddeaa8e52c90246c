package smoke

// targets holds sample descriptions per tier, from short single objects up
// to full scenes.
var targets = map[string][]string{
	"easy": {
		"glowing heart",
		"red apple",
		"blue umbrella",
	},
	"medium": {
		"yellow flower crown",
		"wooden rowboat on a calm lake",
		"orange cat sleeping on a windowsill",
	},
	"hard": {
		"lighthouse on a rocky cliff at sunset with crashing waves",
		"vintage bicycle leaning against a brick wall covered in ivy",
	},
	"advanced": {
		"foggy cobblestone street at night lit by warm lanterns, reflections on wet stones",
		"snowy mountain cabin with smoke rising from the chimney under a starry sky",
	},
	"expert": {
		"cinematic wide shot of a neon-lit rainy alley, shallow depth of field, volumetric fog, teal and orange grading",
	},
}

// tierOrder fixes iteration order so runs are reproducible.
var tierOrder = []string{"easy", "medium", "hard", "advanced", "expert"}

// Cases expands every target into a weak, a close and an exact prompt, plus
// one sealed-token variant per tier.
func Cases() []Case {
	var out []Case
	for _, tier := range tierOrder {
		for i, target := range targets[tier] {
			out = append(out,
				Case{Tier: tier, Target: target, Prompt: "test"},
				Case{Tier: tier, Target: target, Prompt: "a picture of " + target},
				Case{Tier: tier, Target: target, Prompt: target},
			)
			if i == 0 {
				out = append(out, Case{Tier: tier, Target: target, Prompt: target, TargetToken: true})
			}
		}
	}
	return out
}
