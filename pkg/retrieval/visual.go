package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/mondrian-project/mondrian/pkg/config"
	"github.com/mondrian-project/mondrian/pkg/models"
)

// ErrEmbeddingUnavailable signals the visual path cannot run — either the
// embedding subsystem is down or the query embedding could not be
// computed. Callers must treat this as "unavailable", never as a job
// failure (spec.md §4.B Failure policy).
var ErrEmbeddingUnavailable = fmt.Errorf("visual similarity unavailable")

// VisualEngine runs the visual-similarity path: cosine similarity of a
// query embedding against an advisor's embedded reference profiles.
type VisualEngine struct {
	source ProfileSource
	cfg    *config.RetrievalConfig
}

// NewVisualEngine builds an engine over source, capped at cfg.VisualTopK.
func NewVisualEngine(source ProfileSource, cfg *config.RetrievalConfig) *VisualEngine {
	return &VisualEngine{source: source, cfg: cfg}
}

// TopK returns the top-k most visually similar reference images to query,
// descending by similarity, ties broken lexicographically by image_ref for
// run-to-run stability (spec.md §4.B "Visual similarity" step 2).
func (e *VisualEngine) TopK(ctx context.Context, advisorID string, query []float64) ([]models.VisualHit, error) {
	if len(query) == 0 {
		return nil, ErrEmbeddingUnavailable
	}

	profiles, err := e.source.FindProfilesByEmbedding(ctx, advisorID)
	if err != nil {
		return nil, fmt.Errorf("load embedded profiles: %w", err)
	}

	hits := make([]models.VisualHit, 0, len(profiles))
	for _, p := range profiles {
		sim, ok := cosineSimilarity(query, p.Embedding)
		if !ok {
			continue
		}
		hits = append(hits, models.VisualHit{ImageRef: p.ImageRef, Similarity: sim})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ImageRef < hits[j].ImageRef
	})

	k := e.cfg.VisualTopK
	if k <= 0 || k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// cosineSimilarity computes the dot product of a and b. Both are expected
// pre-normalized (spec.md §3 invariant); the zero-norm guard defends
// against a stored embedding that violates that invariant rather than
// relying on it.
func cosineSimilarity(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
