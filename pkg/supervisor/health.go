package supervisor

import (
	"context"
	"log/slog"
	"time"
)

// runHealthPoll ticks every config.HealthPollInterval, checking every
// managed child and restarting those that cross the unhealthy threshold.
// Grounded on the teacher's pkg/cleanup.Service.run (initial pass,
// ticker, select on ctx.Done/ticker.C).
func (s *Supervisor) runHealthPoll(ctx context.Context) {
	s.pollAll(ctx)

	ticker := time.NewTicker(s.config.HealthPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollAll(ctx)
		}
	}
}

func (s *Supervisor) pollAll(ctx context.Context) {
	for _, mp := range s.ordered {
		s.pollOne(ctx, mp)
	}
}

func (s *Supervisor) pollOne(ctx context.Context, mp *managedProcess) {
	healthy := mp.checkHealth(ctx, s.httpClient)

	mp.mu.Lock()
	if healthy {
		mp.consecutiveFails = 0
		mp.state = processHealthy
		mp.mu.Unlock()
		return
	}
	mp.consecutiveFails++
	crossedThreshold := mp.consecutiveFails >= s.config.UnhealthyThreshold
	if crossedThreshold {
		mp.state = processUnhealthy
	}
	mp.mu.Unlock()

	if !crossedThreshold {
		return
	}

	slog.Warn("supervisor: child crossed unhealthy threshold", "process", mp.config.Name, "consecutive_fails", mp.consecutiveFails)
	s.restart(ctx, mp)
}

// restart applies exponential backoff before relaunching an unhealthy
// child, capped at config.MaxRestartAttempts within config.RestartWindow.
// Once a child is marked processFailed, restart is a no-op regardless of
// how much wall-clock time has passed — only ResetChild clears that state
// (spec.md: "stop restarting that child until manual reset"). Hand-rolled
// doubling backoff matching the teacher's own pollInterval jitter idiom —
// see DESIGN.md for why cenkalti/backoff/v4 is not used here despite
// being present in go.sum.
func (s *Supervisor) restart(ctx context.Context, mp *managedProcess) {
	mp.mu.Lock()
	if mp.state == processFailed {
		mp.mu.Unlock()
		return
	}

	now := time.Now()
	if mp.windowStart.IsZero() || now.Sub(mp.windowStart) > s.config.RestartWindow {
		mp.windowStart = now
		mp.restartAttempts = 0
	}
	if mp.restartAttempts >= s.config.MaxRestartAttempts {
		mp.state = processFailed
		mp.mu.Unlock()

		s.mu.Lock()
		alreadyAlerted := s.lastAlert[mp.config.Name]
		if !alreadyAlerted {
			s.lastAlert[mp.config.Name] = true
		}
		s.mu.Unlock()
		if !alreadyAlerted {
			slog.Error("supervisor: child exhausted restart attempts, alerting operator and giving up",
				"process", mp.config.Name, "max_attempts", s.config.MaxRestartAttempts)
		}
		return
	}
	attempt := mp.restartAttempts
	mp.restartAttempts++
	mp.mu.Unlock()

	delay := backoffDelay(s.config.RestartBaseDelay, s.config.RestartMaxDelay, attempt)
	slog.Info("supervisor: restarting child after backoff", "process", mp.config.Name, "attempt", attempt+1, "delay", delay)

	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	mp.stop()
	if err := mp.start(ctx); err != nil {
		slog.Error("supervisor: restart failed", "process", mp.config.Name, "error", err)
		return
	}
	s.waitForHealthy(ctx, mp)
}

// backoffDelay doubles baseDelay per attempt, capped at maxDelay.
func backoffDelay(baseDelay, maxDelay time.Duration, attempt int) time.Duration {
	delay := baseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return delay
}
