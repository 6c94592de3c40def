package config

import "time"

// QueueConfig contains job worker pool configuration. These values
// control how jobs are polled, claimed, and processed (spec.md §4.D,
// §5 "Scheduling model").
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines. Default 1, since the
	// model callable is expected to be a singleton resource; raising this
	// only helps once a handle-scoped mutex serializes concurrent calls to
	// the same model handle.
	WorkerCount int `yaml:"worker_count"`

	// PollInterval is the base interval a worker waits between polls when
	// no job is available.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter is random jitter added to PollInterval so workers
	// don't poll in lockstep.
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// HeartbeatInterval is how often the per-job heartbeat goroutine
	// refreshes last_activity. SSE heartbeat events come from the event
	// bus on its own fixed 15s interval, independent of this setting.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// GracefulShutdownTimeout bounds how long workers wait for an
	// in-flight job to reach a terminal state during shutdown.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             1,
		PollInterval:            1 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		HeartbeatInterval:       15 * time.Second,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}
