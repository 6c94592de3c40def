package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mondrian-project/mondrian/pkg/models"
)

// RecoverInterruptedJobs marks every started, non-terminal job as errored
// at startup, for jobs left `processing`/`analyzing`/`finalizing` by a
// previous process that crashed or was killed mid-job (spec.md §4.D
// "Job Engine", startup recovery case). Queued jobs are left for the
// workers to claim. Returns the number of jobs recovered.
func (s *Store) RecoverInterruptedJobs(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET
			status = $1, error_kind = $2, error_message = $3, completed_at = now(), last_activity_at = now()
		WHERE status NOT IN ($4, $1, $5)`,
		string(models.StatusError), string(models.ErrorKindInternal),
		"interrupted: process restarted while job was in progress",
		string(models.StatusDone), string(models.StatusQueued))
	if err != nil {
		return 0, fmt.Errorf("recover interrupted jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ReapTimedOutJobs marks as errored (kind timeout) any non-terminal job
// whose last_activity_at is older than olderThan (spec.md §4.E Supervisor
// "Reap jobs"). Reaping is idempotent: a job already terminal is excluded
// by the WHERE clause, so running this concurrently with a worker
// finishing the same job is safe. Returns the IDs of jobs it reaped, so
// the caller can publish the terminal SSE events the normal job-finishing
// path would have emitted (spec.md §8 Scenario 5: "SSE emits the terminal
// events" on reap-driven timeout).
func (s *Store) ReapTimedOutJobs(ctx context.Context, olderThan time.Duration) ([]string, error) {
	threshold := time.Now().Add(-olderThan)
	rows, err := s.pool.Query(ctx, `
		UPDATE jobs SET
			status = $1, error_kind = $2, error_message = $3, completed_at = now(), last_activity_at = now()
		WHERE status NOT IN ($4, $1) AND last_activity_at < $5
		RETURNING id`,
		string(models.StatusError), string(models.ErrorKindTimeout),
		"job exceeded maximum allowed duration with no activity",
		string(models.StatusDone), threshold)
	if err != nil {
		return nil, fmt.Errorf("reap timed-out jobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reaped job id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reap timed-out jobs: %w", err)
	}
	return ids, nil
}
