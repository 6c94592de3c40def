package strategy

import (
	"fmt"
	"strings"

	"github.com/mondrian-project/mondrian/pkg/models"
)

// systemPromptTemplate is prefixed to every advisor prompt body (spec.md
// §4.C baseline algorithm step 1: "system_prompt (placeholder for advisor
// id substituted)").
const systemPromptTemplate = "You are %s, a photography advisor evaluating one image on eight fixed dimensions."

const analyzeSuffix = "Analyze the image."

const extractionPrompt = "Score this image on the eight fixed dimensions. Return JSON only, no persona, no commentary beyond the per-dimension comment fields."

const augmentationInstruction = "Reference the examples above comparatively where relevant to your scoring rationale."

// buildBaselinePrompt builds system_prompt + advisor prompt body + the
// fixed analysis suffix (spec.md §4.C baseline algorithm).
func buildBaselinePrompt(advisor *models.Advisor) string {
	return strings.Join([]string{
		fmt.Sprintf(systemPromptTemplate, advisor.ID),
		advisor.PromptBody,
		analyzeSuffix,
	}, "\n\n")
}

// buildExtractionPrompt builds the minimal, persona-free Pass-1 prompt
// (spec.md §4.C RAG algorithm step 1).
func buildExtractionPrompt() string {
	return extractionPrompt
}

// buildAugmentedPrompt builds system_prompt + advisor prompt body + a
// deterministic context block describing each representative + an
// instruction to reference them comparatively (spec.md §4.C RAG algorithm
// step 3).
func buildAugmentedPrompt(advisor *models.Advisor, reps []models.Representative, visual []models.VisualHit) string {
	parts := []string{
		fmt.Sprintf(systemPromptTemplate, advisor.ID),
		advisor.PromptBody,
	}
	if block := buildContextBlock(reps, visual); block != "" {
		parts = append(parts, block, augmentationInstruction)
	}
	parts = append(parts, analyzeSuffix)
	return strings.Join(parts, "\n\n")
}

// buildContextBlock renders the representatives and any visual hits into
// a deterministic, human-readable block (spec.md §4.C: "for each
// representative: targeted dimension, its advisor mean and std, the
// user's score, the gap, the representative's title/metadata, and its
// comment on that dimension").
func buildContextBlock(reps []models.Representative, visual []models.VisualHit) string {
	if len(reps) == 0 && len(visual) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Reference examples:")
	for _, r := range reps {
		b.WriteString(fmt.Sprintf("\n- %s: advisor mean %.2f (std %.2f), your score %.2f, gap %.2f.",
			r.Dimension, r.Mean, r.StdDev, r.UserScore, r.Gap))
		if r.Metadata.HasTitle() {
			b.WriteString(fmt.Sprintf(" Example %q.", r.Metadata.Title))
		}
		if r.Comment != "" {
			b.WriteString(fmt.Sprintf(" Advisor's note: %s", r.Comment))
		}
	}
	if len(visual) > 0 {
		b.WriteString("\nVisually similar references: ")
		refs := make([]string, len(visual))
		for i, v := range visual {
			refs[i] = v.ImageRef
		}
		b.WriteString(strings.Join(refs, ", "))
	}
	return b.String()
}
