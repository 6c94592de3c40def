// Package retrieval implements the two independent retrieval paths spec.md
// §4.B describes: dimensional-distribution RAG (which reference profiles
// best exemplify an advisor's strengths on a user's weak dimensions) and
// visual similarity (which reference images most resemble the query
// image). Both are pure Go over a small read interface so they are
// testable without a database.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/mondrian-project/mondrian/pkg/config"
	"github.com/mondrian-project/mondrian/pkg/models"
)

// ErrInsufficientData signals fewer than two reference profiles are on
// file for an advisor — the dimensional engine skips analysis rather than
// computing statistics over a degenerate sample (spec.md §4.B edge case).
var ErrInsufficientData = fmt.Errorf("insufficient reference profiles for distribution analysis")

// ProfileSource is the read surface both engines need. Satisfied by
// *pkg/store.Store; a fake in tests can implement it directly over a
// slice.
type ProfileSource interface {
	GetProfilesForAdvisor(ctx context.Context, advisorID string) ([]*models.DimensionalProfile, error)
	FindProfilesByEmbedding(ctx context.Context, advisorID string) ([]*models.DimensionalProfile, error)
}

// DimensionalEngine runs the dimensional-distribution RAG path.
type DimensionalEngine struct {
	source ProfileSource
	cfg    *config.RetrievalConfig
}

// NewDimensionalEngine builds an engine over source, using cfg's k/σ_min/
// N_rep tunables.
func NewDimensionalEngine(source ProfileSource, cfg *config.RetrievalConfig) *DimensionalEngine {
	return &DimensionalEngine{source: source, cfg: cfg}
}

// dimensionStats holds the per-dimension population mean/stddev computed
// from an advisor's reference set (spec.md §4.B step 1).
type dimensionStats struct {
	mean   float64
	stddev float64
}

// Representatives runs the full dimensional-distribution algorithm for a
// user vector against an advisor's reference profiles (spec.md §4.B steps
// 1-4). Returns ErrInsufficientData when fewer than two reference profiles
// exist; this is not a failure the caller should surface as a job error,
// only as an empty, explicitly-labeled retrieval result.
func (e *DimensionalEngine) Representatives(ctx context.Context, advisorID string, user models.ScoreVector) ([]models.Representative, error) {
	profiles, err := e.source.GetProfilesForAdvisor(ctx, advisorID)
	if err != nil {
		return nil, fmt.Errorf("load reference profiles: %w", err)
	}
	if len(profiles) < 2 {
		return nil, ErrInsufficientData
	}

	stats := computeStats(profiles, e.cfg.MinStdDev)

	type gapEntry struct {
		dim Dimension
		gap float64
	}
	var underperforming []gapEntry
	for d := 0; d < models.NumDimensions; d++ {
		uVal, present := user.Get(models.Dimension(d))
		if !present {
			continue
		}
		s := stats[d]
		gap := s.mean - uVal
		if uVal < s.mean-e.cfg.UnderperformanceK*s.stddev {
			underperforming = append(underperforming, gapEntry{dim: Dimension(d), gap: gap})
		}
	}

	sort.SliceStable(underperforming, func(i, j int) bool {
		if underperforming[i].gap != underperforming[j].gap {
			return underperforming[i].gap > underperforming[j].gap
		}
		return underperforming[i].dim < underperforming[j].dim
	})

	limit := e.cfg.MaxRepresentatives
	if limit <= 0 || limit > len(underperforming) {
		limit = len(underperforming)
	}

	reps := make([]models.Representative, 0, limit)
	for _, entry := range underperforming[:limit] {
		rep, ok := selectRepresentative(profiles, models.Dimension(entry.dim))
		if !ok {
			continue
		}
		uVal, _ := user.Get(models.Dimension(entry.dim))
		score, _ := rep.Scores.Get(models.Dimension(entry.dim))
		s := stats[entry.dim]
		reps = append(reps, models.Representative{
			Dimension:           models.Dimension(entry.dim),
			Gap:                 entry.gap,
			Mean:                s.mean,
			StdDev:              s.stddev,
			UserScore:           uVal,
			RepresentativeScore: score,
			ImageRef:            rep.ImageRef,
			Comment:             rep.Comments[entry.dim],
			Metadata:            rep.Metadata,
		})
	}

	return reps, nil
}

// Dimension is a local alias so the file reads naturally; it is always
// models.Dimension underneath.
type Dimension = models.Dimension

func computeStats(profiles []*models.DimensionalProfile, minStdDev float64) [models.NumDimensions]dimensionStats {
	var out [models.NumDimensions]dimensionStats
	for d := 0; d < models.NumDimensions; d++ {
		var sum float64
		var n int
		for _, p := range profiles {
			if v, ok := p.Scores.Get(models.Dimension(d)); ok {
				sum += v
				n++
			}
		}
		if n == 0 {
			continue
		}
		mean := sum / float64(n)

		var variance float64
		for _, p := range profiles {
			if v, ok := p.Scores.Get(models.Dimension(d)); ok {
				diff := v - mean
				variance += diff * diff
			}
		}
		variance /= float64(n)
		stddev := math.Sqrt(variance)
		if stddev < minStdDev {
			stddev = minStdDev
		}

		out[d] = dimensionStats{mean: mean, stddev: stddev}
	}
	return out
}

// selectRepresentative applies spec.md §4.B step 3's tie-break chain:
// highest score on the dimension, then higher overall grade, then richer
// metadata (title, then significance), then lexicographically lowest
// image_ref.
func selectRepresentative(profiles []*models.DimensionalProfile, dim models.Dimension) (*models.DimensionalProfile, bool) {
	var best *models.DimensionalProfile
	var bestScore float64

	for _, p := range profiles {
		score, ok := p.Scores.Get(dim)
		if !ok {
			continue
		}
		if best == nil || better(p, score, best, bestScore) {
			best = p
			bestScore = score
		}
	}
	return best, best != nil
}

func better(candidate *models.DimensionalProfile, candidateScore float64, current *models.DimensionalProfile, currentScore float64) bool {
	if candidateScore != currentScore {
		return candidateScore > currentScore
	}
	cGrade, curGrade := gradeOf(candidate), gradeOf(current)
	if cGrade != curGrade {
		return cGrade > curGrade
	}
	cTitle, curTitle := candidate.Metadata.HasTitle(), current.Metadata.HasTitle()
	if cTitle != curTitle {
		return cTitle
	}
	cSig, curSig := candidate.Metadata.HasSignificance(), current.Metadata.HasSignificance()
	if cSig != curSig {
		return cSig
	}
	return candidate.ImageRef < current.ImageRef
}

func gradeOf(p *models.DimensionalProfile) float64 {
	if p.OverallGrade == nil {
		return 0
	}
	return *p.OverallGrade
}

