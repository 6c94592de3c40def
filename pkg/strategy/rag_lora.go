package strategy

import (
	"context"

	"github.com/mondrian-project/mondrian/pkg/adaptercache"
	"github.com/mondrian-project/mondrian/pkg/modelclient"
	"github.com/mondrian-project/mondrian/pkg/models"
	"github.com/mondrian-project/mondrian/pkg/retrieval"
)

// ragLoRAStrategy combines both passes of RAG with the LoRA-augmented
// handle (spec.md §4.C RAG+LoRA algorithm). Unlike ragStrategy, a
// retrieval failure here is fatal: there is no fallback mode to degrade
// into once the caller has explicitly asked for the hybrid.
type ragLoRAStrategy struct {
	call        modelclient.ModelCallable
	handleMutex *modelclient.HandleMutex
	adapters    *adaptercache.Cache
	store       ProfileStore
	dimensional *retrieval.DimensionalEngine
	visual      *retrieval.VisualEngine
	embedder    Embedder
}

func (s *ragLoRAStrategy) Mode() models.Mode { return models.ModeRAGLoRA }

// Available reports whether both the rag and lora preconditions hold
// (spec.md §4.C availability predicates).
func (s *ragLoRAStrategy) Available(ctx context.Context, advisor *models.Advisor) bool {
	if !advisor.HasAdapter() {
		return false
	}
	if _, err := s.adapters.Get(advisor.AdapterHandle); err != nil {
		return false
	}
	profiles, err := s.store.GetProfilesForAdvisor(ctx, advisor.ID)
	return err == nil && len(profiles) > 0
}

func (s *ragLoRAStrategy) Run(ctx context.Context, req AnalyzeRequest) (*models.Result, error) {
	handle, err := s.adapters.Get(req.Advisor.AdapterHandle)
	if err != nil {
		return nil, models.NewJobError(models.ErrorKindUnavailable, err.Error())
	}

	result, err := runRAG(ctx, req, ragDeps{
		call:        s.call,
		handleMutex: s.handleMutex,
		handle:      handle,
		store:       s.store,
		dimensional: s.dimensional,
		visual:      s.visual,
		embedder:    s.embedder,
	}, models.ModeRAGLoRA, true)
	if err != nil {
		return nil, err
	}
	result.Metadata.AdapterHandle = handle
	return result, nil
}
