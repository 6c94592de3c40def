// Package strategy implements the Strategy Dispatcher (spec.md §4.C): mode
// resolution via a fallback-chain walk, and the four concrete analysis
// algorithms (baseline, rag, lora, rag_lora) that each call through the
// Model Callable boundary (pkg/modelclient).
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/mondrian-project/mondrian/pkg/adaptercache"
	"github.com/mondrian-project/mondrian/pkg/modelclient"
	"github.com/mondrian-project/mondrian/pkg/models"
	"github.com/mondrian-project/mondrian/pkg/retrieval"
)

// ProfileStore is the slice of pkg/store.Store the strategies need:
// reading an advisor's reference portfolio for availability checks and
// persisting the transient Pass-1 profile keyed to a job.
type ProfileStore interface {
	retrieval.ProfileSource
	UpsertProfile(ctx context.Context, p *models.DimensionalProfile) error
}

// Strategy is one analysis algorithm.
type Strategy interface {
	// Mode identifies this strategy in Result.EffectiveMode.
	Mode() models.Mode
	// Available reports whether this strategy can run for advisor right now.
	Available(ctx context.Context, advisor *models.Advisor) bool
	// Run executes the algorithm and produces a Result.
	Run(ctx context.Context, req AnalyzeRequest) (*models.Result, error)
}

// AnalyzeRequest is the input to Dispatcher.Analyze (spec.md §4.C
// "analyze(image_ref, advisor_id, requested_mode) -> Result").
type AnalyzeRequest struct {
	JobID         string
	ImageRef      string
	Advisor       *models.Advisor
	RequestedMode models.Mode

	// Think receives incremental thinking text from the Model Callable
	// as it's produced (spec.md §4.D "Thinking stream"). May be nil, in
	// which case strategies pass it straight through to the callable
	// unchanged — a nil sink is simply never invoked.
	Think func(string)
}

// fallbackChains implements spec.md §4.C's mode-resolution table exactly.
// rag_lora has no fallback entry after itself: failing its own
// availability check is terminal (spec.md: "no implicit fallback for this
// hybrid").
var fallbackChains = map[models.Mode][]models.Mode{
	models.ModeRAGLoRA:  {models.ModeRAGLoRA},
	models.ModeLoRA:     {models.ModeLoRA, models.ModeRAG, models.ModeBaseline},
	models.ModeRAG:      {models.ModeRAG, models.ModeBaseline},
	models.ModeBaseline: {models.ModeBaseline},
}

// Dispatcher walks the fallback chain for a requested mode, calling the
// first available strategy's Run.
type Dispatcher struct {
	strategies map[models.Mode]Strategy
}

// NewDispatcher wires the four concrete strategies against shared
// collaborators: the model callable, the handle-scoped mutex serializing
// concurrent calls to one model handle, the profile store, the retrieval
// engines, and the adapter-handle cache.
func NewDispatcher(
	call modelclient.ModelCallable,
	handleMutex *modelclient.HandleMutex,
	store ProfileStore,
	dimensional *retrieval.DimensionalEngine,
	visual *retrieval.VisualEngine,
	adapters *adaptercache.Cache,
	embedder Embedder,
	baseModelHandle string,
) *Dispatcher {
	base := &baselineStrategy{call: call, handleMutex: handleMutex, baseHandle: baseModelHandle}
	rag := &ragStrategy{
		call: call, handleMutex: handleMutex, baseHandle: baseModelHandle,
		store: store, dimensional: dimensional, visual: visual, embedder: embedder,
	}
	lora := &loraStrategy{call: call, handleMutex: handleMutex, adapters: adapters}
	ragLoRA := &ragLoRAStrategy{
		call: call, handleMutex: handleMutex, adapters: adapters,
		store: store, dimensional: dimensional, visual: visual, embedder: embedder,
	}

	return &Dispatcher{strategies: map[models.Mode]Strategy{
		models.ModeBaseline: base,
		models.ModeRAG:      rag,
		models.ModeLoRA:     lora,
		models.ModeRAGLoRA:  ragLoRA,
	}}
}

// Analyze resolves requestedMode by walking its fallback chain, running
// the first available strategy. Returns ErrorKindUnavailable-shaped error
// when even the chain's terminal node is unavailable (only possible for
// rag_lora, since baseline is always available).
func (d *Dispatcher) Analyze(ctx context.Context, req AnalyzeRequest) (*models.Result, error) {
	chain, ok := fallbackChains[req.RequestedMode]
	if !ok {
		return nil, fmt.Errorf("unknown requested mode %q", req.RequestedMode)
	}

	var lastMode models.Mode
	for _, mode := range chain {
		lastMode = mode
		s := d.strategies[mode]
		if !s.Available(ctx, req.Advisor) {
			continue
		}
		start := time.Now()
		result, err := s.Run(ctx, req)
		if err != nil {
			return nil, err
		}
		result.Metadata.TotalDuration = time.Since(start)
		return result, nil
	}

	return nil, models.NewJobError(models.ErrorKindUnavailable,
		fmt.Sprintf("mode %q unavailable for advisor %q (last tried: %q)", req.RequestedMode, req.Advisor.ID, lastMode))
}
