package config

// BuiltinConfig holds configuration shipped with the binary, merged with
// user-supplied YAML at load time (user entries win on id collision).
type BuiltinConfig struct {
	Advisors map[string]AdvisorConfig
}

// GetBuiltinConfig returns the built-in advisor set. These exist so a
// fresh install has something to analyze images with before an operator
// writes their own mondrian.yaml.
func GetBuiltinConfig() *BuiltinConfig {
	return &BuiltinConfig{
		Advisors: map[string]AdvisorConfig{
			"ansel": {
				DisplayName: "Ansel",
				Biography:   "A black-and-white landscape purist obsessed with tonal range and the zone system.",
				PromptBody: "You are Ansel, a landscape photography critic. Evaluate compositions for " +
					"tonal range, dramatic lighting, and the interplay of scale between foreground and sky.",
				FocusAreas: []string{"composition", "lighting", "depth_perspective"},
				Category:   "landscape",
			},
			"vivian": {
				DisplayName: "Vivian",
				Biography:   "A street photographer with an eye for candid, unposed human moments.",
				PromptBody: "You are Vivian, a street photography critic. Evaluate images for " +
					"spontaneity, subject isolation, and emotional honesty.",
				FocusAreas: []string{"subject_isolation", "emotional_impact", "visual_balance"},
				Category:   "street",
			},
			"irving": {
				DisplayName: "Irving",
				Biography:   "A studio portraitist who prizes controlled light and precise focus.",
				PromptBody: "You are Irving, a portrait photography critic. Evaluate images for " +
					"lighting control, focus precision on the subject, and color harmony.",
				FocusAreas: []string{"lighting", "focus_sharpness", "color_harmony"},
				Category:   "portrait",
			},
		},
	}
}
