package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mondrian-project/mondrian/pkg/config"
)

func TestBackoffDelay_DoublesUpToCap(t *testing.T) {
	base := time.Second
	max := 10 * time.Second

	assert.Equal(t, time.Second, backoffDelay(base, max, 0))
	assert.Equal(t, 2*time.Second, backoffDelay(base, max, 1))
	assert.Equal(t, 4*time.Second, backoffDelay(base, max, 2))
	assert.Equal(t, max, backoffDelay(base, max, 10))
}

func supervisorForRestartTest() (*Supervisor, *managedProcess) {
	cfg := &config.SupervisorConfig{
		MaxRestartAttempts: 2,
		RestartWindow:      time.Minute,
		RestartBaseDelay:   time.Millisecond,
		RestartMaxDelay:    time.Millisecond,
	}
	mp := newManagedProcess(config.ManagedProcessConfig{Name: "embeddings"})
	s := &Supervisor{
		config:    cfg,
		byName:    map[string]*managedProcess{"embeddings": mp},
		lastAlert: map[string]bool{},
	}
	s.ordered = []*managedProcess{mp}
	return s, mp
}

// exhaust drives mp straight to processFailed by setting its attempt
// count at the cap and calling restart() once, without spawning any real
// child process (restart()'s exhaustion branch returns before touching
// os/exec).
func exhaust(t *testing.T, s *Supervisor, mp *managedProcess) {
	t.Helper()
	mp.mu.Lock()
	mp.windowStart = time.Now()
	mp.restartAttempts = s.config.MaxRestartAttempts
	mp.mu.Unlock()

	s.restart(context.Background(), mp)

	mp.mu.Lock()
	defer mp.mu.Unlock()
	require.Equal(t, processFailed, mp.state)
}

func TestRestart_StopsAfterExhaustingAttemptsRegardlessOfWindowElapsing(t *testing.T) {
	s, mp := supervisorForRestartTest()
	exhaust(t, s, mp)

	// Simulate the rolling window having long since elapsed.
	mp.mu.Lock()
	mp.windowStart = time.Now().Add(-time.Hour)
	mp.mu.Unlock()

	s.restart(context.Background(), mp)

	mp.mu.Lock()
	assert.Equal(t, processFailed, mp.state, "a failed child must not auto-resume restarts once its window elapses")
	assert.Equal(t, s.config.MaxRestartAttempts, mp.restartAttempts, "exhausted attempt count must not silently reset")
	mp.mu.Unlock()
}

func TestResetChild_ClearsFailedStateAndAllowsRestartsAgain(t *testing.T) {
	s, mp := supervisorForRestartTest()
	exhaust(t, s, mp)

	require.NoError(t, s.ResetChild("embeddings"))

	mp.mu.Lock()
	assert.Equal(t, processPending, mp.state)
	assert.Equal(t, 0, mp.restartAttempts)
	assert.True(t, mp.windowStart.IsZero())
	mp.mu.Unlock()

	assert.False(t, s.lastAlert["embeddings"])
}

func TestResetChild_UnknownProcessReturnsError(t *testing.T) {
	s, _ := supervisorForRestartTest()
	assert.Error(t, s.ResetChild("ghost"))
}
