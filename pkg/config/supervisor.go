package config

import "time"

// ManagedProcessConfig describes one child process the Supervisor owns
// (spec.md §4.E).
type ManagedProcessConfig struct {
	Name      string   `yaml:"name" validate:"required"`
	Command   string   `yaml:"command" validate:"required"`
	Args      []string `yaml:"args,omitempty"`
	Port      int      `yaml:"port,omitempty"`
	HealthURL string   `yaml:"health_url,omitempty"`
	DependsOn []string `yaml:"depends_on,omitempty"`
}

// SupervisorConfig holds process-DAG, health-poll, restart-backoff, and
// job-reaper tunables.
type SupervisorConfig struct {
	Processes []ManagedProcessConfig `yaml:"processes,omitempty"`

	// HealthPollInterval is how often each child's health URL is polled.
	HealthPollInterval time.Duration `yaml:"health_poll_interval"`

	// UnhealthyThreshold is the number of consecutive failed health
	// polls before a child is marked unhealthy.
	UnhealthyThreshold int `yaml:"unhealthy_threshold"`

	// MaxRestartAttempts bounds exponential-backoff restarts within
	// RestartWindow before the supervisor gives up on a child.
	MaxRestartAttempts int `yaml:"max_restart_attempts"`

	// RestartWindow is the rolling window the attempt count resets over.
	RestartWindow time.Duration `yaml:"restart_window"`

	// RestartBaseDelay is the initial backoff delay; each attempt doubles
	// it up to RestartMaxDelay.
	RestartBaseDelay time.Duration `yaml:"restart_base_delay"`
	RestartMaxDelay  time.Duration `yaml:"restart_max_delay"`

	// JobTimeout is the wall-clock budget after which a non-terminal job
	// with no activity is reaped with kind=timeout.
	JobTimeout time.Duration `yaml:"job_timeout"`

	// ReapInterval is how often the reaper scans for timed-out jobs.
	ReapInterval time.Duration `yaml:"reap_interval"`

	// DrainTimeout is how long shutdown waits for in-flight jobs to reach
	// a terminal state before force-terminating children.
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// DefaultSupervisorConfig returns the built-in supervisor defaults from
// spec.md §4.E.
func DefaultSupervisorConfig() *SupervisorConfig {
	return &SupervisorConfig{
		HealthPollInterval: 30 * time.Second,
		UnhealthyThreshold: 3,
		MaxRestartAttempts: 5,
		RestartWindow:      10 * time.Minute,
		RestartBaseDelay:   1 * time.Second,
		RestartMaxDelay:    1 * time.Minute,
		JobTimeout:         900 * time.Second,
		ReapInterval:       60 * time.Second,
		DrainTimeout:       30 * time.Second,
	}
}
