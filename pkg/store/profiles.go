package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mondrian-project/mondrian/pkg/models"
)

// UpsertProfile inserts or replaces a dimensional profile, keyed by
// (advisor_id, image_ref). Idempotent under identical inputs (spec.md §8
// round-trip law).
func (s *Store) UpsertProfile(ctx context.Context, p *models.DimensionalProfile) error {
	var techniqueMapJSON []byte
	if p.TechniqueMap != nil {
		var err error
		techniqueMapJSON, err = json.Marshal(p.TechniqueMap)
		if err != nil {
			return fmt.Errorf("marshal technique_map: %w", err)
		}
	}

	var jobID *string
	if p.JobID != "" {
		jobID = &p.JobID
	}
	var title, dateTaken, location, significance *string
	if p.Metadata != nil {
		title = nullableString(p.Metadata.Title)
		dateTaken = nullableString(p.Metadata.DateTaken)
		location = nullableString(p.Metadata.Location)
		significance = nullableString(p.Metadata.Significance)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO dimensional_profiles (
			advisor_id, image_ref,
			score_composition, score_lighting, score_focus_sharpness, score_color_harmony,
			score_subject_isolation, score_depth_perspective, score_visual_balance, score_emotional_impact,
			comment_composition, comment_lighting, comment_focus_sharpness, comment_color_harmony,
			comment_subject_isolation, comment_depth_perspective, comment_visual_balance, comment_emotional_impact,
			overall_grade, caption, title, date_taken, location, significance, embedding, technique_map, job_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27)
		ON CONFLICT (advisor_id, image_ref) DO UPDATE SET
			score_composition = EXCLUDED.score_composition,
			score_lighting = EXCLUDED.score_lighting,
			score_focus_sharpness = EXCLUDED.score_focus_sharpness,
			score_color_harmony = EXCLUDED.score_color_harmony,
			score_subject_isolation = EXCLUDED.score_subject_isolation,
			score_depth_perspective = EXCLUDED.score_depth_perspective,
			score_visual_balance = EXCLUDED.score_visual_balance,
			score_emotional_impact = EXCLUDED.score_emotional_impact,
			comment_composition = EXCLUDED.comment_composition,
			comment_lighting = EXCLUDED.comment_lighting,
			comment_focus_sharpness = EXCLUDED.comment_focus_sharpness,
			comment_color_harmony = EXCLUDED.comment_color_harmony,
			comment_subject_isolation = EXCLUDED.comment_subject_isolation,
			comment_depth_perspective = EXCLUDED.comment_depth_perspective,
			comment_visual_balance = EXCLUDED.comment_visual_balance,
			comment_emotional_impact = EXCLUDED.comment_emotional_impact,
			overall_grade = EXCLUDED.overall_grade,
			caption = EXCLUDED.caption,
			title = EXCLUDED.title,
			date_taken = EXCLUDED.date_taken,
			location = EXCLUDED.location,
			significance = EXCLUDED.significance,
			embedding = EXCLUDED.embedding,
			technique_map = EXCLUDED.technique_map,
			job_id = EXCLUDED.job_id`,
		p.AdvisorID, p.ImageRef,
		p.Scores[models.DimensionComposition], p.Scores[models.DimensionLighting],
		p.Scores[models.DimensionFocusSharpness], p.Scores[models.DimensionColorHarmony],
		p.Scores[models.DimensionSubjectIsolation], p.Scores[models.DimensionDepthPerspective],
		p.Scores[models.DimensionVisualBalance], p.Scores[models.DimensionEmotionalImpact],
		p.Comments[models.DimensionComposition], p.Comments[models.DimensionLighting],
		p.Comments[models.DimensionFocusSharpness], p.Comments[models.DimensionColorHarmony],
		p.Comments[models.DimensionSubjectIsolation], p.Comments[models.DimensionDepthPerspective],
		p.Comments[models.DimensionVisualBalance], p.Comments[models.DimensionEmotionalImpact],
		p.OverallGrade, nullableString(p.Caption), title, dateTaken, location, significance,
		embeddingOrNil(p.Embedding), techniqueMapJSON, jobID)
	if err != nil {
		return fmt.Errorf("upsert profile %s/%s: %w", p.AdvisorID, p.ImageRef, err)
	}
	return nil
}

// GetProfilesForAdvisor returns every reference profile (job_id IS NULL)
// owned by an advisor — the portfolio the dimensional engine compares
// against.
func (s *Store) GetProfilesForAdvisor(ctx context.Context, advisorID string) ([]*models.DimensionalProfile, error) {
	rows, err := s.pool.Query(ctx, profileSelectColumns+`
		FROM dimensional_profiles WHERE advisor_id = $1 AND job_id IS NULL
		ORDER BY image_ref`, advisorID)
	if err != nil {
		return nil, fmt.Errorf("query profiles for advisor %s: %w", advisorID, err)
	}
	defer rows.Close()
	return scanProfiles(rows)
}

// FindProfilesByEmbedding returns every reference profile for the advisor
// that carries an embedding. Ranking is left to pkg/retrieval's
// VisualEngine, which is Go-side and independently testable; the store's
// job is just to hand back the candidate set (spec.md §4.A
// find_profiles_by_embedding).
func (s *Store) FindProfilesByEmbedding(ctx context.Context, advisorID string) ([]*models.DimensionalProfile, error) {
	rows, err := s.pool.Query(ctx, profileSelectColumns+`
		FROM dimensional_profiles
		WHERE advisor_id = $1 AND job_id IS NULL AND embedding IS NOT NULL
		ORDER BY image_ref`, advisorID)
	if err != nil {
		return nil, fmt.Errorf("query embedded profiles for advisor %s: %w", advisorID, err)
	}
	defer rows.Close()
	return scanProfiles(rows)
}

const profileSelectColumns = `SELECT advisor_id, image_ref,
	score_composition, score_lighting, score_focus_sharpness, score_color_harmony,
	score_subject_isolation, score_depth_perspective, score_visual_balance, score_emotional_impact,
	comment_composition, comment_lighting, comment_focus_sharpness, comment_color_harmony,
	comment_subject_isolation, comment_depth_perspective, comment_visual_balance, comment_emotional_impact,
	overall_grade, caption, title, date_taken, location, significance, embedding, technique_map, job_id`

type profileRows interface {
	rowScanner
	Next() bool
	Err() error
}

func scanProfiles(rows profileRows) ([]*models.DimensionalProfile, error) {
	var out []*models.DimensionalProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProfile(row rowScanner) (*models.DimensionalProfile, error) {
	var p models.DimensionalProfile
	var scores [models.NumDimensions]*float64
	var comments [models.NumDimensions]*string
	var caption, title, dateTaken, location, significance *string
	var techniqueMapJSON []byte
	var jobID *string

	err := row.Scan(
		&p.AdvisorID, &p.ImageRef,
		&scores[0], &scores[1], &scores[2], &scores[3], &scores[4], &scores[5], &scores[6], &scores[7],
		&comments[0], &comments[1], &comments[2], &comments[3], &comments[4], &comments[5], &comments[6], &comments[7],
		&p.OverallGrade, &caption, &title, &dateTaken, &location, &significance,
		&p.Embedding, &techniqueMapJSON, &jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	p.Scores = models.ScoreVector(scores)
	for i, c := range comments {
		if c != nil {
			p.Comments[i] = *c
		}
	}
	if caption != nil {
		p.Caption = *caption
	}
	if title != nil || dateTaken != nil || location != nil || significance != nil {
		p.Metadata = &models.ImageMetadata{}
		if title != nil {
			p.Metadata.Title = *title
		}
		if dateTaken != nil {
			p.Metadata.DateTaken = *dateTaken
		}
		if location != nil {
			p.Metadata.Location = *location
		}
		if significance != nil {
			p.Metadata.Significance = *significance
		}
	}
	if len(techniqueMapJSON) > 0 {
		if err := json.Unmarshal(techniqueMapJSON, &p.TechniqueMap); err != nil {
			return nil, fmt.Errorf("unmarshal technique_map: %w", err)
		}
	}
	if jobID != nil {
		p.JobID = *jobID
	}

	return &p, nil
}

func embeddingOrNil(e []float64) []float64 {
	if len(e) == 0 {
		return nil
	}
	return e
}
