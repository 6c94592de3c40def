package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mondrian-project/mondrian/pkg/models"
)

func seedAdvisor(t *testing.T, st *Store, id string) {
	t.Helper()
	require.NoError(t, st.SyncAdvisors(context.Background(), []*models.Advisor{{
		ID: id, DisplayName: id, Biography: "bio", PromptBody: "prompt", Category: "general",
	}}))
}

func TestUpsertProfile_IsIdempotentAndRoundTrips(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedAdvisor(t, st, "ansel")

	var scores models.ScoreVector
	scores.Set(models.DimensionComposition, 8.5)
	scores.Set(models.DimensionLighting, 9.0)

	grade := 9.2
	profile := &models.DimensionalProfile{
		AdvisorID: "ansel", ImageRef: "ref.jpg",
		Scores:       scores,
		OverallGrade: &grade,
		Caption:      "a dramatic landscape",
		Embedding:    []float64{0.1, 0.2, 0.3},
		TechniqueMap: map[string]string{"composition": "rule of thirds"},
	}
	require.NoError(t, st.UpsertProfile(ctx, profile))
	require.NoError(t, st.UpsertProfile(ctx, profile), "upserting the identical profile twice must not conflict")

	got, err := st.GetProfilesForAdvisor(ctx, "ansel")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ref.jpg", got[0].ImageRef)
	require.NotNil(t, got[0].OverallGrade)
	assert.Equal(t, 9.2, *got[0].OverallGrade)
	v, ok := got[0].Scores.Get(models.DimensionComposition)
	require.True(t, ok)
	assert.Equal(t, 8.5, v)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, got[0].Embedding)
	assert.Equal(t, "rule of thirds", got[0].TechniqueMap["composition"])
}

func TestFindProfilesByEmbedding_ExcludesProfilesWithoutEmbedding(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedAdvisor(t, st, "ansel")

	require.NoError(t, st.UpsertProfile(ctx, &models.DimensionalProfile{
		AdvisorID: "ansel", ImageRef: "embedded.jpg", Embedding: []float64{0.5, 0.5},
	}))
	require.NoError(t, st.UpsertProfile(ctx, &models.DimensionalProfile{
		AdvisorID: "ansel", ImageRef: "bare.jpg",
	}))

	withEmbedding, err := st.FindProfilesByEmbedding(ctx, "ansel")
	require.NoError(t, err)
	require.Len(t, withEmbedding, 1)
	assert.Equal(t, "embedded.jpg", withEmbedding[0].ImageRef)
}

func TestGetProfilesForAdvisor_ExcludesJobScopedProfiles(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedAdvisor(t, st, "ansel")

	jobID, err := st.CreateJob(ctx, CreateJobSpec{ImageRef: "job.jpg", AdvisorID: "ansel", RequestedMode: models.ModeBaseline, TotalAdvisors: 1})
	require.NoError(t, err)

	require.NoError(t, st.UpsertProfile(ctx, &models.DimensionalProfile{AdvisorID: "ansel", ImageRef: "reference.jpg"}))
	require.NoError(t, st.UpsertProfile(ctx, &models.DimensionalProfile{AdvisorID: "ansel", ImageRef: "job.jpg", JobID: jobID}))

	refs, err := st.GetProfilesForAdvisor(ctx, "ansel")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "reference.jpg", refs[0].ImageRef)
}
