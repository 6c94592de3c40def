package adaptercache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_LoadsOnce(t *testing.T) {
	var calls int32
	c := New(func(key string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "handle-" + key, nil
	})

	h1, err := c.Get("ansel")
	require.NoError(t, err)
	h2, err := c.Get("ansel")
	require.NoError(t, err)

	assert.Equal(t, "handle-ansel", h1)
	assert.Equal(t, h1, h2)
	assert.Equal(t, int32(1), calls)
}

func TestCache_ConcurrentGetLoadsOnce(t *testing.T) {
	var calls int32
	c := New(func(key string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "handle", nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get("ansel")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls)
}

func TestCache_InvalidateForcesReload(t *testing.T) {
	var calls int32
	c := New(func(key string) (string, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return "", errors.New("not ready")
		}
		return "handle-v2", nil
	})

	_, err := c.Get("ansel")
	require.Error(t, err)

	c.Invalidate("ansel")

	h, err := c.Get("ansel")
	require.NoError(t, err)
	assert.Equal(t, "handle-v2", h)
	assert.Equal(t, int32(2), calls)
}
