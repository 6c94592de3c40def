package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mondrian-project/mondrian/pkg/models"
)

func TestSyncAdvisors_UpsertIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	advisors := []*models.Advisor{{
		ID: "ansel", DisplayName: "Ansel Adams", Biography: "landscape master",
		PromptBody: "critique like Ansel", FocusAreas: []string{"composition", "lighting"},
		Category: "landscape",
	}}
	require.NoError(t, st.SyncAdvisors(ctx, advisors))

	got, err := st.GetAdvisor(ctx, "ansel")
	require.NoError(t, err)
	assert.Equal(t, "Ansel Adams", got.DisplayName)
	assert.Equal(t, []string{"composition", "lighting"}, got.FocusAreas)

	// Re-syncing with a changed field overwrites in place rather than
	// erroring on the primary key conflict.
	advisors[0].DisplayName = "Ansel Easton Adams"
	advisors[0].AdapterHandle = "lora-ansel-v2"
	require.NoError(t, st.SyncAdvisors(ctx, advisors))

	updated, err := st.GetAdvisor(ctx, "ansel")
	require.NoError(t, err)
	assert.Equal(t, "Ansel Easton Adams", updated.DisplayName)
	assert.Equal(t, "lora-ansel-v2", updated.AdapterHandle)

	all, err := st.ListAdvisors(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetAdvisor_UnknownIDReturnsNotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.GetAdvisor(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
