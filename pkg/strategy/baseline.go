package strategy

import (
	"context"

	"github.com/mondrian-project/mondrian/pkg/modelclient"
	"github.com/mondrian-project/mondrian/pkg/models"
)

// baselineStrategy is the always-available, single-pass, no-persona-
// augmentation path (spec.md §4.C).
type baselineStrategy struct {
	call        modelclient.ModelCallable
	handleMutex *modelclient.HandleMutex
	baseHandle  string
}

func (s *baselineStrategy) Mode() models.Mode { return models.ModeBaseline }

func (s *baselineStrategy) Available(ctx context.Context, advisor *models.Advisor) bool {
	return true
}

func (s *baselineStrategy) Run(ctx context.Context, req AnalyzeRequest) (*models.Result, error) {
	unlock := s.handleMutex.Lock(s.baseHandle)
	defer unlock()

	payload, err := callAndParse(ctx, s.call, modelclient.CallRequest{
		ImageRef:    req.ImageRef,
		Prompt:      buildBaselinePrompt(req.Advisor),
		ModelHandle: s.baseHandle,
	}, req.Think)
	if err != nil {
		return nil, err
	}

	return &models.Result{
		AdvisorID:     req.Advisor.ID,
		EffectiveMode: models.ModeBaseline,
		Scores:        payload.Scores,
		Comments:      payload.Comments,
		OverallGrade:  payload.OverallGrade,
	}, nil
}
