package supervisor

import (
	"context"
	"log/slog"
	"time"
)

// runReaper ticks every config.ReapInterval, marking as errored (kind
// timeout) any non-terminal job whose last_activity_at exceeds
// config.JobTimeout (spec.md §4.E "Reap jobs"). Reaping is idempotent —
// a job already terminal is excluded by the store's own WHERE clause, so
// overlapping a scan with a worker finishing the same job is harmless.
// Grounded on the teacher's pkg/cleanup.Service.run/runAll shape.
func (s *Supervisor) runReaper(ctx context.Context) {
	s.reapOnce(ctx)

	ticker := time.NewTicker(s.config.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reapOnce(ctx)
		}
	}
}

func (s *Supervisor) reapOnce(ctx context.Context) {
	ids, err := s.store.ReapTimedOutJobs(ctx, s.config.JobTimeout)
	if err != nil {
		slog.Error("supervisor: job reap failed", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}
	slog.Info("supervisor: reaped timed-out jobs", "count", len(ids))

	if s.bus == nil {
		return
	}
	for _, id := range ids {
		job, err := s.store.GetJob(ctx, id)
		if err != nil {
			slog.Error("supervisor: failed to load reaped job for event publish", "job_id", id, "error", err)
			continue
		}
		s.bus.PublishStatusUpdate(job)
		s.bus.PublishDone(job.ID)
	}
}
