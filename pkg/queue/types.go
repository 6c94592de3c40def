// Package queue implements the Job Engine's worker pool (spec.md §4.D):
// poll, claim with SKIP LOCKED, run the per-advisor strategy loop, publish
// terminal events. Adapted from the teacher's session worker pool, which
// polled/claimed ent.AlertSession rows and executed an agent chain — here
// the unit of work is a models.Job and the "chain" is one or more advisors
// run through the Strategy Dispatcher.
package queue

import (
	"time"

	"github.com/mondrian-project/mondrian/pkg/models"
)

// EventPublisher delivers job lifecycle events to SSE subscribers
// (implemented by pkg/events' per-job broadcaster). All methods are
// best-effort: a publish failure is logged, never treated as a job
// failure — SSE emit is a suspension point, not a correctness dependency
// (spec.md §5 "Suspension points").
type EventPublisher interface {
	// PublishStatusUpdate sends a status_update event carrying a snapshot
	// of the job (spec.md §4.D "SSE bus"). Called after the corresponding
	// store mutation has committed; no lock covers both the commit and the
	// publish.
	PublishStatusUpdate(job *models.Job)
	// PublishAnalysisComplete sends the terminal analysis_complete event.
	PublishAnalysisComplete(jobID, renderedOutput string)
	// PublishDone sends the terminal done event and closes the job's
	// subscription set.
	PublishDone(jobID string)
}

// WorkerStatus is the current state of a worker.
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// PoolHealth is a read-only snapshot of the worker pool (spec.md §4.E
// "Provide a read-only snapshot view of all children and last N jobs").
type PoolHealth struct {
	IsHealthy     bool           `json:"is_healthy"`
	DBReachable   bool           `json:"db_reachable"`
	DBError       string         `json:"db_error,omitempty"`
	ActiveWorkers int            `json:"active_workers"`
	TotalWorkers  int            `json:"total_workers"`
	MaxConcurrent int            `json:"max_concurrent"`
	QueueDepth    int            `json:"queue_depth"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}

// WorkerHealth is a read-only snapshot of a single worker.
type WorkerHealth struct {
	ID            string       `json:"id"`
	Status        WorkerStatus `json:"status"`
	CurrentJobID  string       `json:"current_job_id,omitempty"`
	JobsProcessed int          `json:"jobs_processed"`
	LastActivity  time.Time    `json:"last_activity"`
}
