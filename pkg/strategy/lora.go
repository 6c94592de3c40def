package strategy

import (
	"context"

	"github.com/mondrian-project/mondrian/pkg/adaptercache"
	"github.com/mondrian-project/mondrian/pkg/modelclient"
	"github.com/mondrian-project/mondrian/pkg/models"
)

// loraStrategy is the single-pass path using the advisor's LoRA-augmented
// model handle (spec.md §4.C LoRA algorithm). Structurally identical to
// baseline; the only difference is which handle gets locked and called.
type loraStrategy struct {
	call        modelclient.ModelCallable
	handleMutex *modelclient.HandleMutex
	adapters    *adaptercache.Cache
}

func (s *loraStrategy) Mode() models.Mode { return models.ModeLoRA }

// Available reports whether advisor has an adapter handle configured and
// it loads successfully, cached after first load (spec.md §4.C
// availability predicates).
func (s *loraStrategy) Available(ctx context.Context, advisor *models.Advisor) bool {
	if !advisor.HasAdapter() {
		return false
	}
	_, err := s.adapters.Get(advisor.AdapterHandle)
	return err == nil
}

func (s *loraStrategy) Run(ctx context.Context, req AnalyzeRequest) (*models.Result, error) {
	handle, err := s.adapters.Get(req.Advisor.AdapterHandle)
	if err != nil {
		return nil, models.NewJobError(models.ErrorKindUnavailable, err.Error())
	}

	unlock := s.handleMutex.Lock(handle)
	defer unlock()

	payload, err := callAndParse(ctx, s.call, modelclient.CallRequest{
		ImageRef:    req.ImageRef,
		Prompt:      buildBaselinePrompt(req.Advisor),
		ModelHandle: handle,
	}, req.Think)
	if err != nil {
		return nil, err
	}

	return &models.Result{
		AdvisorID:     req.Advisor.ID,
		EffectiveMode: models.ModeLoRA,
		Scores:        payload.Scores,
		Comments:      payload.Comments,
		OverallGrade:  payload.OverallGrade,
		Metadata:      models.StrategyMetadata{AdapterHandle: handle},
	}, nil
}
