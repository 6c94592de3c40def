package strategy

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mondrian-project/mondrian/pkg/adaptercache"
	"github.com/mondrian-project/mondrian/pkg/config"
	"github.com/mondrian-project/mondrian/pkg/modelclient"
	"github.com/mondrian-project/mondrian/pkg/models"
	"github.com/mondrian-project/mondrian/pkg/retrieval"
)

type fakeProfileStore struct {
	profiles map[string][]*models.DimensionalProfile
}

func (f *fakeProfileStore) GetProfilesForAdvisor(ctx context.Context, advisorID string) ([]*models.DimensionalProfile, error) {
	return f.profiles[advisorID], nil
}

func (f *fakeProfileStore) FindProfilesByEmbedding(ctx context.Context, advisorID string) ([]*models.DimensionalProfile, error) {
	return nil, nil
}

func (f *fakeProfileStore) UpsertProfile(ctx context.Context, p *models.DimensionalProfile) error {
	return nil
}

func fixedScorePayload() map[string]any {
	scores := map[string]any{}
	comments := map[string]any{}
	for _, name := range models.DimensionNames {
		scores[name] = 7.5
		comments[name] = "solid"
	}
	return map[string]any{"scores": scores, "comments": comments, "overall_grade": 8.0}
}

func stubCallable() modelclient.ModelCallable {
	return func(ctx context.Context, req modelclient.CallRequest, think func(string)) (*modelclient.CallResponse, error) {
		return &modelclient.CallResponse{JSON: fixedScorePayload()}, nil
	}
}

// thinkingStubCallable behaves like stubCallable but invokes think n times
// before returning, for tests that exercise the thinking-stream sink
// (spec.md §8 Scenario 6).
func thinkingStubCallable(n int) modelclient.ModelCallable {
	return func(ctx context.Context, req modelclient.CallRequest, think func(string)) (*modelclient.CallResponse, error) {
		for i := 0; i < n; i++ {
			if think != nil {
				think(fmt.Sprintf("thinking step %d", i+1))
			}
		}
		return &modelclient.CallResponse{JSON: fixedScorePayload()}, nil
	}
}

var errNoAdapter = errors.New("no adapter configured")

func dispatcherForTest(store ProfileStore) *Dispatcher {
	rcfg := config.DefaultRetrievalConfig()
	dimensional := retrieval.NewDimensionalEngine(store, rcfg)
	visual := retrieval.NewVisualEngine(store, rcfg)
	adapters := adaptercache.New(func(key string) (string, error) {
		return "", errNoAdapter
	})
	return NewDispatcher(stubCallable(), &modelclient.HandleMutex{}, store, dimensional, visual, adapters, nil, "base-handle")
}

func fullScoreVector(v float64) models.ScoreVector {
	var sv models.ScoreVector
	for d := 0; d < models.NumDimensions; d++ {
		sv.Set(models.Dimension(d), v)
	}
	return sv
}

func TestDispatcher_BaselineIsAlwaysAvailable(t *testing.T) {
	store := &fakeProfileStore{profiles: map[string][]*models.DimensionalProfile{}}
	dispatcher := dispatcherForTest(store)

	advisor := &models.Advisor{ID: "ansel", DisplayName: "Ansel"}
	result, err := dispatcher.Analyze(context.Background(), AnalyzeRequest{
		ImageRef: "img.jpg", Advisor: advisor, RequestedMode: models.ModeBaseline,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ModeBaseline, result.EffectiveMode)
}

func TestDispatcher_RAGFallsBackToBaselineWithoutReferenceProfiles(t *testing.T) {
	store := &fakeProfileStore{profiles: map[string][]*models.DimensionalProfile{}}
	dispatcher := dispatcherForTest(store)

	advisor := &models.Advisor{ID: "ansel", DisplayName: "Ansel"}
	result, err := dispatcher.Analyze(context.Background(), AnalyzeRequest{
		ImageRef: "img.jpg", Advisor: advisor, RequestedMode: models.ModeRAG,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ModeBaseline, result.EffectiveMode)
}

func TestDispatcher_RAGLoRAFailsWithNoFallback(t *testing.T) {
	store := &fakeProfileStore{profiles: map[string][]*models.DimensionalProfile{}}
	dispatcher := dispatcherForTest(store)

	advisor := &models.Advisor{ID: "ansel", DisplayName: "Ansel"}
	_, err := dispatcher.Analyze(context.Background(), AnalyzeRequest{
		ImageRef: "img.jpg", Advisor: advisor, RequestedMode: models.ModeRAGLoRA,
	})
	require.Error(t, err)
	var jobErr *models.JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, models.ErrorKindUnavailable, jobErr.Kind)
}

func TestDispatcher_LoRAFallsBackToBaselineWithoutAdapter(t *testing.T) {
	store := &fakeProfileStore{}
	dispatcher := dispatcherForTest(store)

	advisor := &models.Advisor{ID: "ansel", DisplayName: "Ansel"} // no AdapterHandle
	result, err := dispatcher.Analyze(context.Background(), AnalyzeRequest{
		ImageRef: "img.jpg", Advisor: advisor, RequestedMode: models.ModeLoRA,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ModeBaseline, result.EffectiveMode)
}

func TestDispatcher_RAGUsesReferenceProfilesWhenAvailable(t *testing.T) {
	grade := 9.0
	store := &fakeProfileStore{profiles: map[string][]*models.DimensionalProfile{
		"ansel": {
			{AdvisorID: "ansel", ImageRef: "a", Scores: fullScoreVector(9), OverallGrade: &grade},
			{AdvisorID: "ansel", ImageRef: "b", Scores: fullScoreVector(2)},
		},
	}}
	dispatcher := dispatcherForTest(store)

	advisor := &models.Advisor{ID: "ansel", DisplayName: "Ansel"}
	result, err := dispatcher.Analyze(context.Background(), AnalyzeRequest{
		JobID: "job-1", ImageRef: "img.jpg", Advisor: advisor, RequestedMode: models.ModeRAG,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ModeRAG, result.EffectiveMode)
}

func TestDispatcher_ThinkSinkReceivesIncrementalUpdates(t *testing.T) {
	store := &fakeProfileStore{profiles: map[string][]*models.DimensionalProfile{}}
	rcfg := config.DefaultRetrievalConfig()
	dimensional := retrieval.NewDimensionalEngine(store, rcfg)
	visual := retrieval.NewVisualEngine(store, rcfg)
	adapters := adaptercache.New(func(key string) (string, error) { return "", errNoAdapter })
	dispatcher := NewDispatcher(thinkingStubCallable(10), &modelclient.HandleMutex{}, store, dimensional, visual, adapters, nil, "base-handle")

	var seen []string
	advisor := &models.Advisor{ID: "ansel", DisplayName: "Ansel"}
	result, err := dispatcher.Analyze(context.Background(), AnalyzeRequest{
		ImageRef: "img.jpg", Advisor: advisor, RequestedMode: models.ModeBaseline,
		Think: func(text string) { seen = append(seen, text) },
	})
	require.NoError(t, err)
	assert.Equal(t, models.ModeBaseline, result.EffectiveMode)
	assert.Len(t, seen, 10)
}
