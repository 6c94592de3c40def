package strategy

import (
	"context"
	"errors"
	"time"

	"github.com/mondrian-project/mondrian/pkg/modelclient"
	"github.com/mondrian-project/mondrian/pkg/models"
	"github.com/mondrian-project/mondrian/pkg/retrieval"
)

// ragStrategy is the two-pass dimensional-extraction + representative-
// augmented path (spec.md §4.C RAG algorithm).
type ragStrategy struct {
	call        modelclient.ModelCallable
	handleMutex *modelclient.HandleMutex
	baseHandle  string
	store       ProfileStore
	dimensional *retrieval.DimensionalEngine
	visual      *retrieval.VisualEngine
	embedder    Embedder
}

func (s *ragStrategy) Mode() models.Mode { return models.ModeRAG }

// Available reports whether at least one reference profile exists for
// advisor (spec.md §4.C availability predicates).
func (s *ragStrategy) Available(ctx context.Context, advisor *models.Advisor) bool {
	profiles, err := s.store.GetProfilesForAdvisor(ctx, advisor.ID)
	return err == nil && len(profiles) > 0
}

func (s *ragStrategy) Run(ctx context.Context, req AnalyzeRequest) (*models.Result, error) {
	return runRAG(ctx, req, ragDeps{
		call:        s.call,
		handleMutex: s.handleMutex,
		handle:      s.baseHandle,
		store:       s.store,
		dimensional: s.dimensional,
		visual:      s.visual,
		embedder:    s.embedder,
	}, models.ModeRAG, false)
}

// Embedder computes a query embedding for an image so the visual-
// similarity path has something to rank against. Satisfied by
// *pkg/embedclient.Client; nil means the embeddings subsystem is not
// configured, which the query phase treats as "unavailable" rather than
// an error (spec.md §4.B Failure policy).
type Embedder interface {
	Embed(ctx context.Context, imageRef string) ([]float64, error)
}

// ragDeps bundles the collaborators runRAG needs, shared by ragStrategy
// and ragLoRAStrategy so the two-pass orchestration is written once.
type ragDeps struct {
	call        modelclient.ModelCallable
	handleMutex *modelclient.HandleMutex
	handle      string
	store       ProfileStore
	dimensional *retrieval.DimensionalEngine
	visual      *retrieval.VisualEngine
	embedder    Embedder
}

// runRAG executes Pass 1 (extraction), the query phase, augmentation, and
// Pass 2 (spec.md §4.C RAG / RAG+LoRA algorithms, which share this exact
// shape — the only difference is the model handle and whether retrieval
// failure is fatal, controlled by retrievalFatal).
func runRAG(ctx context.Context, req AnalyzeRequest, deps ragDeps, mode models.Mode, retrievalFatal bool) (*models.Result, error) {
	unlock := deps.handleMutex.Lock(deps.handle)
	defer unlock()

	pass1Start := time.Now()
	pass1, err := callAndParse(ctx, deps.call, modelclient.CallRequest{
		ImageRef:    req.ImageRef,
		Prompt:      buildExtractionPrompt(),
		ModelHandle: deps.handle,
	}, req.Think)
	if err != nil {
		return nil, err
	}
	pass1Duration := time.Since(pass1Start)

	if req.JobID != "" {
		_ = deps.store.UpsertProfile(ctx, &models.DimensionalProfile{
			AdvisorID: req.Advisor.ID,
			ImageRef:  req.ImageRef,
			Scores:    pass1.Scores,
			Comments:  pass1.Comments,
			JobID:     req.JobID,
		})
	}

	queryStart := time.Now()
	reps, visualHits, degraded, err := queryPhase(ctx, deps, req.ImageRef, req.Advisor.ID, pass1.Scores)
	if err != nil {
		if retrievalFatal {
			return nil, models.NewJobError(models.ErrorKindRetrievalRequired, err.Error())
		}
		degraded = true
		reps, visualHits = nil, nil
	}
	queryDuration := time.Since(queryStart)

	pass2Start := time.Now()
	pass2, err := callAndParse(ctx, deps.call, modelclient.CallRequest{
		ImageRef:    req.ImageRef,
		Prompt:      buildAugmentedPrompt(req.Advisor, reps, visualHits),
		ModelHandle: deps.handle,
	}, req.Think)
	if err != nil {
		return nil, err
	}
	pass2Duration := time.Since(pass2Start)

	return &models.Result{
		AdvisorID:     req.Advisor.ID,
		EffectiveMode: mode,
		Scores:        pass2.Scores,
		Comments:      pass2.Comments,
		OverallGrade:  pass2.OverallGrade,
		Metadata: models.StrategyMetadata{
			RepresentativeCount: len(reps),
			VisualHitCount:      len(visualHits),
			Degraded:            degraded,
			Pass1Duration:       pass1Duration,
			QueryDuration:       queryDuration,
			Pass2Duration:       pass2Duration,
		},
	}, nil
}

// queryPhase calls the dimensional-distribution engine and, if the
// advisor has embedded reference profiles, the visual-similarity engine.
// Insufficient dimensional data is not an error: it yields an empty
// context with degraded set. An unavailable visual path yields no visual
// hits, and degraded is set when there are no representatives either.
// Neither is fatal for rag or rag_lora. Any other dimensional-engine error
// is returned; runRAG degrades on it for rag and fails with
// retrieval_required for rag_lora.
func queryPhase(ctx context.Context, deps ragDeps, imageRef, advisorID string, userVector models.ScoreVector) ([]models.Representative, []models.VisualHit, bool, error) {
	reps, err := deps.dimensional.Representatives(ctx, advisorID, userVector)
	if err != nil {
		if errors.Is(err, retrieval.ErrInsufficientData) {
			return nil, nil, true, nil
		}
		return nil, nil, false, err
	}

	hits := visualPhase(ctx, deps, imageRef, advisorID)
	return reps, hits, len(reps) == 0 && len(hits) == 0, nil
}

// visualPhase computes a query embedding (if an embeddings service is
// configured) and ranks against the advisor's embedded profiles. Any
// failure along the way — no embedder configured, the service being down,
// no embedded profiles on file — degrades to an empty hit list rather
// than propagating an error (spec.md §4.B Failure policy: "never aborts
// the job").
func visualPhase(ctx context.Context, deps ragDeps, imageRef, advisorID string) []models.VisualHit {
	if deps.embedder == nil {
		return nil
	}
	query, err := deps.embedder.Embed(ctx, imageRef)
	if err != nil {
		return nil
	}
	hits, err := deps.visual.TopK(ctx, advisorID, query)
	if err != nil {
		return nil
	}
	return hits
}
