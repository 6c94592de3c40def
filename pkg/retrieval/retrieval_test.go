package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mondrian-project/mondrian/pkg/config"
	"github.com/mondrian-project/mondrian/pkg/models"
)

type fakeSource struct {
	profiles []*models.DimensionalProfile
}

func (f *fakeSource) GetProfilesForAdvisor(ctx context.Context, advisorID string) ([]*models.DimensionalProfile, error) {
	return f.profiles, nil
}

func (f *fakeSource) FindProfilesByEmbedding(ctx context.Context, advisorID string) ([]*models.DimensionalProfile, error) {
	var out []*models.DimensionalProfile
	for _, p := range f.profiles {
		if p.HasEmbedding() {
			out = append(out, p)
		}
	}
	return out, nil
}

func scoreVec(scores ...float64) models.ScoreVector {
	var v models.ScoreVector
	for i, s := range scores {
		v.Set(models.Dimension(i), s)
	}
	return v
}

func grade(v float64) *float64 { return &v }

func TestDimensionalEngine_InsufficientData(t *testing.T) {
	src := &fakeSource{profiles: []*models.DimensionalProfile{
		{AdvisorID: "ansel", ImageRef: "a", Scores: scoreVec(8, 8, 8, 8, 8, 8, 8, 8)},
	}}
	engine := NewDimensionalEngine(src, config.DefaultRetrievalConfig())

	_, err := engine.Representatives(context.Background(), "ansel", scoreVec(5, 5, 5, 5, 5, 5, 5, 5))
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestDimensionalEngine_SelectsUnderperformingDimensionsInGapOrder(t *testing.T) {
	src := &fakeSource{profiles: []*models.DimensionalProfile{
		{AdvisorID: "ansel", ImageRef: "a", Scores: scoreVec(9, 9, 5, 5, 5, 5, 5, 5), OverallGrade: grade(8)},
		{AdvisorID: "ansel", ImageRef: "b", Scores: scoreVec(9, 9, 5, 5, 5, 5, 5, 5), OverallGrade: grade(7)},
	}}
	cfg := config.DefaultRetrievalConfig()
	cfg.MinStdDev = 0.01
	cfg.UnderperformanceK = 0.1
	engine := NewDimensionalEngine(src, cfg)

	reps, err := engine.Representatives(context.Background(), "ansel", scoreVec(2, 4, 5, 5, 5, 5, 5, 5))
	require.NoError(t, err)
	require.NotEmpty(t, reps)

	// composition (dim 0, gap 7) should outrank lighting (dim 1, gap 5).
	assert.Equal(t, models.DimensionComposition, reps[0].Dimension)
	// highest overall grade wins the tie between profile a and b.
	assert.Equal(t, "a", reps[0].ImageRef)
}

func TestDimensionalEngine_CapsAtMaxRepresentatives(t *testing.T) {
	src := &fakeSource{profiles: []*models.DimensionalProfile{
		{AdvisorID: "ansel", ImageRef: "a", Scores: scoreVec(9, 9, 9, 9, 9, 9, 9, 9)},
		{AdvisorID: "ansel", ImageRef: "b", Scores: scoreVec(9, 9, 9, 9, 9, 9, 9, 9)},
	}}
	cfg := config.DefaultRetrievalConfig()
	cfg.MinStdDev = 0.01
	cfg.MaxRepresentatives = 2
	engine := NewDimensionalEngine(src, cfg)

	reps, err := engine.Representatives(context.Background(), "ansel", scoreVec(0, 0, 0, 0, 0, 0, 0, 0))
	require.NoError(t, err)
	assert.Len(t, reps, 2)
}

func TestDimensionalEngine_MissingUserDimensionIsNeverUnderperforming(t *testing.T) {
	src := &fakeSource{profiles: []*models.DimensionalProfile{
		{AdvisorID: "ansel", ImageRef: "a", Scores: scoreVec(9, 9, 9, 9, 9, 9, 9, 9)},
		{AdvisorID: "ansel", ImageRef: "b", Scores: scoreVec(9, 9, 9, 9, 9, 9, 9, 9)},
	}}
	cfg := config.DefaultRetrievalConfig()
	cfg.MinStdDev = 0.01
	engine := NewDimensionalEngine(src, cfg)

	var user models.ScoreVector
	user.Set(models.DimensionLighting, 1)
	// only dimension 1 present; all others absent and must be skipped.

	reps, err := engine.Representatives(context.Background(), "ansel", user)
	require.NoError(t, err)
	for _, r := range reps {
		assert.Equal(t, models.DimensionLighting, r.Dimension)
	}
}
