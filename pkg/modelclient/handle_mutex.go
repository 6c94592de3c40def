package modelclient

import "sync"

// HandleMutex serializes concurrent calls against the same model handle
// (spec.md §5: the model callable is a singleton resource, two jobs must
// not call the same handle concurrently). Keyed by handle string so
// independent handles — base model vs. an advisor's LoRA adapter — never
// block each other.
type HandleMutex struct {
	locks sync.Map // handle string -> *sync.Mutex
}

// Lock blocks until the named handle is free, then returns an unlock
// func. Callers should `defer unlock()` immediately.
func (h *HandleMutex) Lock(handle string) (unlock func()) {
	actual, _ := h.locks.LoadOrStore(handle, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
