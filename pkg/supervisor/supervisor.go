// Package supervisor implements the process lifecycle manager and job
// reaper described in spec.md §4.E: start a configured dependency DAG of
// child processes, health-poll them, restart failed ones with backoff,
// and reap jobs that exceed their wall-clock budget. Grounded on the
// teacher's pkg/cleanup.Service ticking-background-service shape
// (Start/Stop via context.CancelFunc + done channel, idempotent runAll)
// for both the health-poll loop and the reaper loop.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mondrian-project/mondrian/pkg/config"
	"github.com/mondrian-project/mondrian/pkg/events"
	"github.com/mondrian-project/mondrian/pkg/models"
	"github.com/mondrian-project/mondrian/pkg/store"
)

// Supervisor owns the managed-process DAG, its health-poll loop, restart
// backoff, and the job-timeout reaper.
type Supervisor struct {
	config     *config.SupervisorConfig
	store      *store.Store
	bus        *events.Bus // nil disables reap-driven SSE publishing
	httpClient *http.Client

	ordered   []*managedProcess
	byName    map[string]*managedProcess
	lastAlert map[string]bool // child name -> operator alert already emitted

	mu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Supervisor from its configured process DAG. bus may be
// nil, in which case reap-driven terminal events are simply not
// published (the store's own reaping still runs). Returns an error if
// the DAG has an unknown dependency or a cycle.
func New(cfg *config.SupervisorConfig, st *store.Store, bus *events.Bus) (*Supervisor, error) {
	ordered, err := topologicalOrder(cfg.Processes)
	if err != nil {
		return nil, err
	}

	s := &Supervisor{
		config:     cfg,
		store:      st,
		bus:        bus,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		byName:     make(map[string]*managedProcess, len(ordered)),
		lastAlert:  make(map[string]bool, len(ordered)),
	}
	for _, pc := range ordered {
		mp := newManagedProcess(pc)
		s.ordered = append(s.ordered, mp)
		s.byName[pc.Name] = mp
	}
	return s, nil
}

// Start launches every managed child in dependency order, waiting up to
// config.HealthPollInterval after each launch for it to report healthy,
// then starts the health-poll and reaper loops. A child whose
// dependencies are not healthy by then is started anyway, with a warning
// logged.
func (s *Supervisor) Start(ctx context.Context) error {
	if s.cancel != nil {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	for _, mp := range s.ordered {
		if !s.dependenciesHealthy(mp) {
			slog.Warn("supervisor: dependency not healthy yet, starting anyway and relying on health poll to recover",
				"process", mp.config.Name, "depends_on", mp.config.DependsOn)
		}
		if err := mp.start(ctx); err != nil {
			slog.Error("supervisor: failed to start managed process", "process", mp.config.Name, "error", err)
			continue
		}
		s.waitForHealthy(ctx, mp)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.runHealthPoll(ctx) }()
	go func() { defer wg.Done(); s.runReaper(ctx) }()

	go func() {
		wg.Wait()
		close(s.done)
	}()

	slog.Info("supervisor started", "managed_processes", len(s.ordered))
	return nil
}

// Stop cancels the poll/reaper loops and, after waiting up to
// config.DrainTimeout for those loops to exit, force-terminates children
// in reverse dependency order (spec.md §4.E "Shutdown"). It does not wait
// for in-flight jobs.
func (s *Supervisor) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()

	select {
	case <-s.done:
	case <-time.After(s.config.DrainTimeout):
		slog.Warn("supervisor: drain timeout exceeded, forcing shutdown")
	}

	for i := len(s.ordered) - 1; i >= 0; i-- {
		s.ordered[i].stop()
	}
	slog.Info("supervisor stopped")
}

// Snapshot returns a read-only view of every managed child and the most
// recent jobs (spec.md §4.E "Provide a read-only snapshot view of all
// children and last N jobs").
func (s *Supervisor) Snapshot(ctx context.Context, recentJobLimit int) (*SupervisorSnapshot, error) {
	children := make([]ProcessSnapshot, len(s.ordered))
	for i, mp := range s.ordered {
		children[i] = mp.snapshot()
	}

	jobs, err := s.store.ListJobs(ctx, recentJobLimit)
	if err != nil {
		return nil, err
	}

	return &SupervisorSnapshot{Children: children, RecentJobs: jobs}, nil
}

// SupervisorSnapshot is the payload behind a supervisor status endpoint.
type SupervisorSnapshot struct {
	Children   []ProcessSnapshot `json:"children"`
	RecentJobs []*models.Job     `json:"recent_jobs"`
}

// ResetChild clears a processFailed child's restart-exhaustion state,
// letting the health-poll loop resume restarting it on its next unhealthy
// reading (spec.md: "stop restarting that child until manual reset" —
// this is that reset). Returns an error if name isn't a managed process.
func (s *Supervisor) ResetChild(name string) error {
	mp, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("supervisor: unknown managed process %q", name)
	}

	mp.mu.Lock()
	mp.state = processPending
	mp.consecutiveFails = 0
	mp.restartAttempts = 0
	mp.windowStart = time.Time{}
	mp.mu.Unlock()

	s.mu.Lock()
	delete(s.lastAlert, name)
	s.mu.Unlock()

	slog.Info("supervisor: child manually reset", "process", name)
	return nil
}

func (s *Supervisor) dependenciesHealthy(mp *managedProcess) bool {
	for _, dep := range mp.config.DependsOn {
		d, ok := s.byName[dep]
		if !ok {
			return false
		}
		d.mu.Lock()
		healthy := d.state == processHealthy
		d.mu.Unlock()
		if !healthy {
			return false
		}
	}
	return true
}

// waitForHealthy blocks briefly for a just-started child to report
// healthy once, so dependents started next see an accurate picture. It
// does not block indefinitely: the health-poll loop takes over afterward.
func (s *Supervisor) waitForHealthy(ctx context.Context, mp *managedProcess) {
	deadline := time.Now().Add(s.config.HealthPollInterval)
	for time.Now().Before(deadline) {
		if mp.checkHealth(ctx, s.httpClient) {
			mp.mu.Lock()
			mp.state = processHealthy
			mp.mu.Unlock()
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
	}
}
