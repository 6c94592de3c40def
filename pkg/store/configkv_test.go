package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigKV_SetThenGetRoundTrips(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.GetConfig(ctx, "retrieval.top_k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.SetConfig(ctx, "retrieval.top_k", "5"))
	v, err := st.GetConfig(ctx, "retrieval.top_k")
	require.NoError(t, err)
	assert.Equal(t, "5", v)

	require.NoError(t, st.SetConfig(ctx, "retrieval.top_k", "8"))
	v, err = st.GetConfig(ctx, "retrieval.top_k")
	require.NoError(t, err)
	assert.Equal(t, "8", v)
}
