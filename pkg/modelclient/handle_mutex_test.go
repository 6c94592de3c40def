package modelclient

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHandleMutex_SerializesSameHandle(t *testing.T) {
	var hm HandleMutex
	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := hm.Lock("base")
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive, "same handle must never run concurrently")
}

func TestHandleMutex_IndependentHandlesDoNotBlock(t *testing.T) {
	var hm HandleMutex
	unlockA := hm.Lock("adapter-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := hm.Lock("adapter-b")
		defer unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different handle should not block")
	}
}
