package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/mondrian-project/mondrian/pkg/config"
	"github.com/mondrian-project/mondrian/pkg/models"
	"github.com/mondrian-project/mondrian/pkg/store"
	"github.com/mondrian-project/mondrian/pkg/strategy"
)

// JobRegistry is the subset of WorkerPool used by Worker for job
// cancellation registration.
type JobRegistry interface {
	RegisterJob(jobID string, cancel context.CancelFunc)
	UnregisterJob(jobID string)
}

// Worker is a single queue worker that polls for and processes jobs.
type Worker struct {
	id             string
	store          *store.Store
	config         *config.QueueConfig
	dispatcher     *strategy.Dispatcher
	advisors       *config.AdvisorRegistry
	eventPublisher EventPublisher
	pool           JobRegistry
	stopCh         chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup

	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// NewWorker creates a new queue worker. eventPublisher may be nil
// (streaming disabled).
func NewWorker(id string, st *store.Store, cfg *config.QueueConfig, dispatcher *strategy.Dispatcher, advisors *config.AdvisorRegistry, pool JobRegistry, eventPublisher EventPublisher) *Worker {
	return &Worker{
		id:             id,
		store:          st,
		config:         cfg,
		dispatcher:     dispatcher,
		advisors:       advisors,
		eventPublisher: eventPublisher,
		pool:           pool,
		stopCh:         make(chan struct{}),
		status:         WorkerStatusIdle,
		lastActivity:   time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish the job it
// is currently processing, if any.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        w.status,
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id)
	log.Info("worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, store.ErrNoJobsAvailable) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error processing job", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess claims the next queued job and runs it to a terminal state.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	job, err := w.store.ClaimNextJob(ctx)
	if err != nil {
		return err
	}

	log := slog.With("job_id", job.ID, "worker_id", w.id)
	log.Info("job claimed")

	w.publishStatusUpdate(job)
	w.setStatus(WorkerStatusWorking, job.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	jobCtx, cancelJob := context.WithCancel(ctx)
	defer cancelJob()
	w.pool.RegisterJob(job.ID, cancelJob)
	defer w.pool.UnregisterJob(job.ID)

	heartbeatCtx, cancelHeartbeat := context.WithCancel(jobCtx)
	go w.runHeartbeat(heartbeatCtx, job.ID)

	job, err = w.runJob(jobCtx, job)
	cancelHeartbeat()
	if err != nil {
		log.Error("job processing failed", "error", err)
		return err
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	log.Info("job processing complete", "status", job.Status)
	return nil
}

// runJob executes spec.md §4.D's per-job processing sequence: advisor
// preparation, the per-advisor strategy loop, finalization. The image-
// processing phase itself was already entered by ClaimNextJob; file-format
// handling for uploads is an explicit out-of-scope collaborator.
func (w *Worker) runJob(ctx context.Context, job *models.Job) (*models.Job, error) {
	advisors, err := resolveAdvisors(w.advisors, job.AdvisorID)
	if err != nil {
		return w.failJob(ctx, job, models.NewJobError(models.ErrorKindBadInput, err.Error()))
	}

	total := len(advisors)
	job, err = w.mutate(ctx, job.ID, store.JobPatch{
		Status:        statusPtr(models.StatusAnalyzing),
		Phase:         phasePtr(models.PhaseAdvisorPreparation),
		TotalAdvisors: &total,
	})
	if err != nil {
		return nil, fmt.Errorf("transition to advisor_preparation: %w", err)
	}
	w.publishStatusUpdate(job)

	outputs := make([]advisorOutput, 0, len(advisors))
	for i, advisor := range advisors {
		step := stepLabel(advisor)
		job, err = w.mutate(ctx, job.ID, store.JobPatch{
			Phase:       phasePtr(models.PhaseAdvisorAnalysis),
			CurrentStep: &step,
		})
		if err != nil {
			return nil, fmt.Errorf("transition to advisor_analysis: %w", err)
		}
		w.publishStatusUpdate(job)

		result, err := w.dispatcher.Analyze(ctx, strategy.AnalyzeRequest{
			JobID: job.ID, ImageRef: job.ImageRef, Advisor: advisor, RequestedMode: job.RequestedMode,
			Think: w.thinkSink(ctx, job.ID),
		})
		if err != nil {
			return w.failJob(ctx, job, jobErrorFrom(err))
		}

		outputs = append(outputs, advisorOutput{advisor: advisor, result: result})

		blob, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshal advisor result: %w", err)
		}
		current := i + 1
		patch := store.JobPatch{
			CurrentAdvisor: &current,
			AdvisorOutput:  &store.AdvisorOutputPatch{AdvisorID: advisor.ID, Output: string(blob)},
		}
		if job.EffectiveMode == "" {
			patch.EffectiveMode = &result.EffectiveMode
		}
		job, err = w.mutate(ctx, job.ID, patch)
		if err != nil {
			return nil, fmt.Errorf("record advisor result: %w", err)
		}
		w.publishStatusUpdate(job)
	}

	rendered := renderJobOutput(job, outputs)
	job, err = w.mutate(ctx, job.ID, store.JobPatch{
		Status:         statusPtr(models.StatusFinalizing),
		Phase:          phasePtr(models.PhaseFinalizing),
		RenderedOutput: &rendered,
	})
	if err != nil {
		return nil, fmt.Errorf("transition to finalizing: %w", err)
	}
	w.publishStatusUpdate(job)
	w.publishAnalysisComplete(job.ID, rendered)

	now := time.Now()
	job, err = w.mutate(ctx, job.ID, store.JobPatch{
		Status:      statusPtr(models.StatusDone),
		Phase:       phasePtr(models.PhaseDone),
		CompletedAt: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("transition to done: %w", err)
	}
	w.publishStatusUpdate(job)
	w.publishDone(job.ID)

	return job, nil
}

// advisorOutput pairs a processed advisor with its result, in run order,
// so renderJobOutput has the display names the stored advisor_outputs
// blob alone does not carry.
type advisorOutput struct {
	advisor *models.Advisor
	result  *models.Result
}

// failJob short-circuits the job with a terminal error (spec.md §4.D step
// 3c: "on error, persist error and short-circuit the job with status
// error").
func (w *Worker) failJob(ctx context.Context, job *models.Job, jobErr *models.JobError) (*models.Job, error) {
	now := time.Now()
	job, err := w.mutate(ctx, job.ID, store.JobPatch{
		Status:      statusPtr(models.StatusError),
		Error:       jobErr,
		CompletedAt: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("record job failure: %w", err)
	}
	w.publishStatusUpdate(job)
	w.publishDone(job.ID)
	return job, nil
}

// jobErrorFrom classifies a Strategy Dispatcher error into the job error
// taxonomy (spec.md §7). Dispatcher errors are already *models.JobError
// except for the "unknown requested mode" bad-input case.
func jobErrorFrom(err error) *models.JobError {
	var jobErr *models.JobError
	if errors.As(err, &jobErr) {
		return jobErr
	}
	return models.NewJobError(models.ErrorKindBadInput, err.Error())
}

func (w *Worker) mutate(ctx context.Context, jobID string, patch store.JobPatch) (*models.Job, error) {
	return w.store.MutateJob(ctx, jobID, patch)
}

// runHeartbeat periodically refreshes last_activity_at so the supervisor's
// timeout reaper does not mistake a genuinely in-flight job for a stalled
// one. An empty patch touches no status/phase fields, so it never appends
// to status_history or recomputes percentage (spec.md §4.D "Thinking
// stream" invariant: heartbeats must not recompute percentage).
func (w *Worker) runHeartbeat(ctx context.Context, jobID string) {
	ticker := time.NewTicker(w.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.store.MutateJob(ctx, jobID, store.JobPatch{}); err != nil {
				slog.Warn("heartbeat update failed", "job_id", jobID, "error", err)
			}
		}
	}
}

// thinkSink returns the Model Callable's thinking-stream sink for jobID:
// each call persists the incremental thinking text via MutateJob (without
// touching percentage/status, mirroring runHeartbeat's "no progress
// recompute" invariant) and publishes the resulting snapshot as a
// status_update event, so a client streaming /stream/{id} sees each
// thinking update multiplexed onto the same SSE channel (spec.md §4.D
// "Thinking stream", §9 "second channel multiplexed onto the bus").
func (w *Worker) thinkSink(ctx context.Context, jobID string) func(string) {
	return func(text string) {
		updated, err := w.mutate(ctx, jobID, store.JobPatch{LastThinking: &text})
		if err != nil {
			slog.Warn("thinking update failed", "job_id", jobID, "error", err)
			return
		}
		w.publishStatusUpdate(updated)
	}
}

func (w *Worker) publishStatusUpdate(job *models.Job) {
	if w.eventPublisher == nil {
		return
	}
	w.eventPublisher.PublishStatusUpdate(job)
}

func (w *Worker) publishAnalysisComplete(jobID, rendered string) {
	if w.eventPublisher == nil {
		return
	}
	w.eventPublisher.PublishAnalysisComplete(jobID, rendered)
}

func (w *Worker) publishDone(jobID string) {
	if w.eventPublisher == nil {
		return
	}
	w.eventPublisher.PublishDone(jobID)
}

// pollInterval returns the poll duration with jitter.
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

func (w *Worker) setStatus(status WorkerStatus, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}

func statusPtr(s models.Status) *models.Status { return &s }
func phasePtr(p models.Phase) *models.Phase    { return &p }

// renderJobOutput composes the combined human-readable critique from each
// advisor's result (spec.md §4.D step 4: "compose the combined rendered
// output"). HTML rendering proper is an explicit out-of-scope collaborator
// (spec.md §2 "HTML rendering of the final critique"); this produces the
// plain-text content such a renderer would wrap.
func renderJobOutput(job *models.Job, outputs []advisorOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis of %s\n\n", job.ImageRef)
	for _, o := range outputs {
		fmt.Fprintf(&b, "== %s (%s) ==\n", o.advisor.DisplayName, o.result.EffectiveMode)
		fmt.Fprintf(&b, "Overall grade: %.1f\n", o.result.OverallGrade)
		for d := 0; d < models.NumDimensions; d++ {
			score, _ := o.result.Scores.Get(models.Dimension(d))
			fmt.Fprintf(&b, "- %s: %.1f — %s\n", models.DimensionNames[d], score, o.result.Comments[d])
		}
		b.WriteString("\n")
	}
	return b.String()
}
