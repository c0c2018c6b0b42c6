package export

import "sync"

// CancelToken is the cooperative cancellation handle threaded through
// the pipeline. It is polled at batch boundaries and inside the worker
// loop; it never aborts an in-flight fetch mid-byte.
type CancelToken struct {
	mu        sync.Mutex
	cancelled bool
}

func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

func (t *CancelToken) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

func (t *CancelToken) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}
