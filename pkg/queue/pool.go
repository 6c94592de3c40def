package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mondrian-project/mondrian/pkg/config"
	"github.com/mondrian-project/mondrian/pkg/store"
	"github.com/mondrian-project/mondrian/pkg/strategy"
)

// WorkerPool manages a pool of queue workers (spec.md §4.D "Worker pool").
type WorkerPool struct {
	store          *store.Store
	config         *config.QueueConfig
	dispatcher     *strategy.Dispatcher
	advisors       *config.AdvisorRegistry
	eventPublisher EventPublisher
	workers        []*Worker
	stopCh         chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup

	// Job cancel registry: job_id → cancel function, for API-triggered
	// cancellation.
	activeJobs map[string]context.CancelFunc
	mu         sync.RWMutex
	started    bool
}

// NewWorkerPool creates a new worker pool. eventPublisher may be nil
// (streaming disabled).
func NewWorkerPool(st *store.Store, cfg *config.QueueConfig, dispatcher *strategy.Dispatcher, advisors *config.AdvisorRegistry, eventPublisher EventPublisher) *WorkerPool {
	return &WorkerPool{
		store:          st,
		config:         cfg,
		dispatcher:     dispatcher,
		advisors:       advisors,
		eventPublisher: eventPublisher,
		workers:        make([]*Worker, 0, cfg.WorkerCount),
		stopCh:         make(chan struct{}),
		activeJobs:     make(map[string]context.CancelFunc),
	}
}

// Start spawns worker goroutines. Safe to call multiple times; subsequent
// calls are no-ops. Callers should run store.RecoverInterruptedJobs before
// Start so that jobs left in-flight by a previous crashed process are
// marked errored before new claims begin.
func (p *WorkerPool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("worker pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true

	slog.Info("starting worker pool", "worker_count", p.config.WorkerCount)

	for i := 0; i < p.config.WorkerCount; i++ {
		workerID := fmt.Sprintf("worker-%d", i)
		worker := NewWorker(workerID, p.store, p.config, p.dispatcher, p.advisors, p, p.eventPublisher)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}

	slog.Info("worker pool started")
}

// Stop signals all workers to stop and waits for them to finish their
// current jobs (graceful shutdown, spec.md §4.E "Shutdown": in-flight jobs
// reach a terminal state within a drain window — bounded by the caller's
// ctx/time budget, not by WorkerPool itself).
func (p *WorkerPool) Stop() {
	slog.Info("stopping worker pool gracefully")

	active := p.getActiveJobIDs()
	if len(active) > 0 {
		slog.Info("waiting for active jobs to complete", "count", len(active), "job_ids", active)
	}

	for _, worker := range p.workers {
		worker.Stop()
	}

	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()

	slog.Info("worker pool stopped gracefully")
}

// RegisterJob stores a cancel function for manual cancellation.
func (p *WorkerPool) RegisterJob(jobID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeJobs[jobID] = cancel
}

// UnregisterJob removes the cancel function when processing ends.
func (p *WorkerPool) UnregisterJob(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activeJobs, jobID)
}

// CancelJob triggers context cancellation for a job on this process.
// Returns true if the job was found and cancelled.
func (p *WorkerPool) CancelJob(jobID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activeJobs[jobID]; ok {
		cancel()
		return true
	}
	return false
}

// Health returns the current health status of the pool (spec.md §4.E
// "Provide a read-only snapshot view").
func (p *WorkerPool) Health() *PoolHealth {
	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		stats := worker.Health()
		workerStats[i] = stats
		if stats.Status == WorkerStatusWorking {
			activeWorkers++
		}
	}

	ctx := context.Background()
	var dbError string
	reachable := true
	if err := p.store.Pool().Ping(ctx); err != nil {
		reachable = false
		dbError = err.Error()
	}

	queueDepth := 0
	if reachable {
		if n, err := p.store.CountQueuedJobs(ctx); err == nil {
			queueDepth = n
		}
	}

	return &PoolHealth{
		IsHealthy:     len(p.workers) > 0 && reachable,
		DBReachable:   reachable,
		DBError:       dbError,
		ActiveWorkers: activeWorkers,
		TotalWorkers:  len(p.workers),
		MaxConcurrent: p.config.WorkerCount,
		QueueDepth:    queueDepth,
		WorkerStats:   workerStats,
	}
}

func (p *WorkerPool) getActiveJobIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.activeJobs))
	for id := range p.activeJobs {
		ids = append(ids, id)
	}
	return ids
}
