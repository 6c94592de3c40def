package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mondrian-project/mondrian/pkg/models"
)

// CreateJobSpec is the input to CreateJob.
type CreateJobSpec struct {
	ImageRef      string
	AdvisorID     string
	RequestedMode models.Mode
	TotalAdvisors int
}

// CreateJob atomically inserts a new job row with status=queued,
// percentage=0 (spec.md §4.A create_job).
func (s *Store) CreateJob(ctx context.Context, spec CreateJobSpec) (string, error) {
	id := uuid.New().String()
	now := time.Now()

	history := []models.StatusHistoryEntry{{
		At:     now,
		Status: models.StatusQueued,
		Phase:  "",
	}}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("marshal initial status history: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO jobs (id, image_ref, advisor_id, requested_mode, status, phase,
			percentage, total_advisors, created_at, last_activity_at, advisor_outputs, status_history)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $8, '{}'::jsonb, $9)`,
		id, spec.ImageRef, spec.AdvisorID, string(spec.RequestedMode),
		string(models.StatusQueued), "", spec.TotalAdvisors, now, historyJSON)
	if err != nil {
		return "", fmt.Errorf("insert job: %w", err)
	}

	return id, nil
}

// GetJob returns the full job record, or ErrNotFound.
func (s *Store) GetJob(ctx context.Context, id string) (*models.Job, error) {
	row := s.pool.QueryRow(ctx, jobSelectColumns+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

// ListJobs returns the most-recent-first job list, capped at limit.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]*models.Job, error) {
	rows, err := s.pool.Query(ctx, jobSelectColumns+` FROM jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CountQueuedJobs returns the number of jobs currently waiting to be
// claimed, for pool health snapshots (spec.md §4.E "read-only snapshot").
func (s *Store) CountQueuedJobs(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM jobs WHERE status = $1`, string(models.StatusQueued)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count queued jobs: %w", err)
	}
	return n, nil
}

// ClaimNextJob claims the oldest queued job using SELECT ... FOR UPDATE
// SKIP LOCKED, mirroring claimNextSession, and transitions it to
// processing/image_processing. Returns ErrNoJobsAvailable when the queue
// is empty.
func (s *Store) ClaimNextJob(ctx context.Context) (*models.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, jobSelectColumns+`
		FROM jobs WHERE status = $1
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, string(models.StatusQueued))

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoJobsAvailable
		}
		return nil, err
	}

	now := time.Now()
	job.Status = models.StatusProcessing
	job.Phase = models.PhaseImageProcessing
	job.Percentage = models.Progress(job.Status, job.Phase, job.CurrentAdvisor, job.TotalAdvisors)
	job.StartedAt = &now
	job.LastActivityAt = now
	job.StatusHistory = append(job.StatusHistory, models.StatusHistoryEntry{
		At: now, Status: job.Status, Phase: job.Phase, CurrentAdvisor: job.CurrentAdvisor,
	})

	if err := execJobUpdate(ctx, tx, job); err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	return job, nil
}

// JobPatch is a read-modify-write patch for MutateJob. A nil field means
// "no change". Percentage is recomputed from (Status, Phase,
// CurrentAdvisor, TotalAdvisors) when any of those move — callers pass
// the intended status/phase/current_advisor and MutateJob derives and
// enforces the monotonic percentage itself, so callers never need to
// compute or pass percentage directly.
type JobPatch struct {
	Status         *models.Status
	Phase          *models.Phase
	EffectiveMode  *models.Mode // write-once: ignored if job.EffectiveMode already set
	LastThinking   *string
	CurrentAdvisor *int
	TotalAdvisors  *int
	CurrentStep    *string
	CompletedAt    *time.Time
	Error          *models.JobError
	RenderedOutput *string
	AdvisorOutput  *AdvisorOutputPatch // appends/overwrites one entry in AdvisorOutputs
}

// AdvisorOutputPatch sets job.AdvisorOutputs[AdvisorID] = Output.
type AdvisorOutputPatch struct {
	AdvisorID string
	Output    string
}

// MutateJob performs an atomic read-modify-write: it rejects any patch
// that would lower percentage, refreshes last_activity on every call, and
// appends a status_history entry when status, phase, or current_advisor
// changes (spec.md §4.A mutate_job).
func (s *Store) MutateJob(ctx context.Context, id string, patch JobPatch) (*models.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin mutate transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, jobSelectColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, err
	}

	if job.Status.IsTerminal() {
		// Terminal jobs accept no further mutations except housekeeping
		// (spec.md §3 invariant); MutateJob is a no-op that returns the
		// unchanged row rather than erroring, since callers (e.g. a
		// heartbeat racing a reaper) should not need special-case logic.
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit no-op mutate: %w", err)
		}
		return job, nil
	}

	historyChanged := false
	if patch.Status != nil && *patch.Status != job.Status {
		job.Status = *patch.Status
		historyChanged = true
	}
	if patch.Phase != nil && *patch.Phase != job.Phase {
		job.Phase = *patch.Phase
		historyChanged = true
	}
	if patch.CurrentAdvisor != nil && *patch.CurrentAdvisor != job.CurrentAdvisor {
		job.CurrentAdvisor = *patch.CurrentAdvisor
		historyChanged = true
	}
	if patch.TotalAdvisors != nil {
		job.TotalAdvisors = *patch.TotalAdvisors
	}
	if patch.EffectiveMode != nil && job.EffectiveMode == "" {
		job.EffectiveMode = *patch.EffectiveMode
	}
	if patch.LastThinking != nil {
		job.LastThinking = *patch.LastThinking
	}
	if patch.CurrentStep != nil {
		job.CurrentStep = *patch.CurrentStep
	}
	if patch.CompletedAt != nil {
		job.CompletedAt = patch.CompletedAt
	}
	if patch.Error != nil {
		job.Error = patch.Error
	}
	if patch.RenderedOutput != nil {
		job.RenderedOutput = *patch.RenderedOutput
	}
	if patch.AdvisorOutput != nil {
		if job.AdvisorOutputs == nil {
			job.AdvisorOutputs = make(map[string]string)
		}
		job.AdvisorOutputs[patch.AdvisorOutput.AdvisorID] = patch.AdvisorOutput.Output
	}

	newPercentage := models.Progress(job.Status, job.Phase, job.CurrentAdvisor, job.TotalAdvisors)
	if job.Status.IsTerminal() {
		if job.Status == models.StatusDone {
			newPercentage = 100
		} else {
			newPercentage = job.Percentage // error freezes at last observed value
		}
	}
	if newPercentage > job.Percentage {
		job.Percentage = newPercentage
	}

	job.LastActivityAt = time.Now()
	if historyChanged {
		job.StatusHistory = append(job.StatusHistory, models.StatusHistoryEntry{
			At: job.LastActivityAt, Status: job.Status, Phase: job.Phase, CurrentAdvisor: job.CurrentAdvisor,
		})
	}

	if err := execJobUpdate(ctx, tx, job); err != nil {
		return nil, fmt.Errorf("mutate job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit mutate: %w", err)
	}

	return job, nil
}

const jobSelectColumns = `SELECT id, image_ref, advisor_id, requested_mode, effective_mode, status, phase,
	percentage, last_thinking, current_advisor, total_advisors, current_step,
	created_at, started_at, last_activity_at, completed_at,
	error_kind, error_message, rendered_output, advisor_outputs, status_history`

func scanJob(row rowScanner) (*models.Job, error) {
	var j models.Job
	var effectiveMode, lastThinking, currentStep, errorKind, errorMessage, renderedOutput *string
	var advisorOutputsJSON, statusHistoryJSON []byte
	var requestedMode, status, phase string

	err := row.Scan(
		&j.ID, &j.ImageRef, &j.AdvisorID, &requestedMode, &effectiveMode, &status, &phase,
		&j.Percentage, &lastThinking, &j.CurrentAdvisor, &j.TotalAdvisors, &currentStep,
		&j.CreatedAt, &j.StartedAt, &j.LastActivityAt, &j.CompletedAt,
		&errorKind, &errorMessage, &renderedOutput, &advisorOutputsJSON, &statusHistoryJSON,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan job row: %w", err)
	}

	j.RequestedMode = models.Mode(requestedMode)
	j.Status = models.Status(status)
	j.Phase = models.Phase(phase)
	if effectiveMode != nil {
		j.EffectiveMode = models.Mode(*effectiveMode)
	}
	if lastThinking != nil {
		j.LastThinking = *lastThinking
	}
	if currentStep != nil {
		j.CurrentStep = *currentStep
	}
	if renderedOutput != nil {
		j.RenderedOutput = *renderedOutput
	}
	if errorKind != nil {
		msg := ""
		if errorMessage != nil {
			msg = *errorMessage
		}
		j.Error = models.NewJobError(models.ErrorKind(*errorKind), msg)
	}

	if len(advisorOutputsJSON) > 0 {
		if err := json.Unmarshal(advisorOutputsJSON, &j.AdvisorOutputs); err != nil {
			return nil, fmt.Errorf("unmarshal advisor_outputs: %w", err)
		}
	}
	if len(statusHistoryJSON) > 0 {
		if err := json.Unmarshal(statusHistoryJSON, &j.StatusHistory); err != nil {
			return nil, fmt.Errorf("unmarshal status_history: %w", err)
		}
	}

	return &j, nil
}

func execJobUpdate(ctx context.Context, tx pgx.Tx, j *models.Job) error {
	advisorOutputsJSON, err := json.Marshal(j.AdvisorOutputs)
	if err != nil {
		return fmt.Errorf("marshal advisor_outputs: %w", err)
	}
	statusHistoryJSON, err := json.Marshal(j.StatusHistory)
	if err != nil {
		return fmt.Errorf("marshal status_history: %w", err)
	}

	var effectiveMode *string
	if j.EffectiveMode != "" {
		m := string(j.EffectiveMode)
		effectiveMode = &m
	}
	var errorKind, errorMessage *string
	if j.Error != nil {
		k := string(j.Error.Kind)
		errorKind = &k
		errorMessage = &j.Error.Message
	}

	_, err = tx.Exec(ctx, `
		UPDATE jobs SET
			effective_mode = $2, status = $3, phase = $4, percentage = $5,
			last_thinking = $6, current_advisor = $7, total_advisors = $8, current_step = $9,
			started_at = $10, last_activity_at = $11, completed_at = $12,
			error_kind = $13, error_message = $14, rendered_output = $15,
			advisor_outputs = $16, status_history = $17
		WHERE id = $1`,
		j.ID, effectiveMode, string(j.Status), string(j.Phase), j.Percentage,
		nullableString(j.LastThinking), j.CurrentAdvisor, j.TotalAdvisors, nullableString(j.CurrentStep),
		j.StartedAt, j.LastActivityAt, j.CompletedAt,
		errorKind, errorMessage, nullableString(j.RenderedOutput),
		advisorOutputsJSON, statusHistoryJSON)
	return err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
