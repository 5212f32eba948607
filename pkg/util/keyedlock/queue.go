package keyedlock

import "sync"

// Queue runs functions submitted under the same key one at a time, in the order Go was
// called. Different keys run in parallel. A key's worker goroutine exits once its backlog
// is empty.
type Queue[K comparable] struct {
	mu      sync.Mutex
	pending map[K][]func()
	wg      sync.WaitGroup
}

// NewQueue returns an empty queue.
func NewQueue[K comparable]() *Queue[K] {
	return &Queue[K]{pending: make(map[K][]func())}
}

// Go appends fn to key's backlog. It never blocks on fn.
func (q *Queue[K]) Go(key K, fn func()) {
	q.wg.Add(1)
	q.mu.Lock()
	backlog, running := q.pending[key]
	q.pending[key] = append(backlog, fn)
	q.mu.Unlock()
	if !running {
		go q.drain(key)
	}
}

// drain runs key's backlog. The running function stays at the head of the backlog
// so Go sees a live worker until it has been removed.
func (q *Queue[K]) drain(key K) {
	for {
		q.mu.Lock()
		fn := q.pending[key][0]
		q.mu.Unlock()

		fn()

		q.mu.Lock()
		backlog := q.pending[key]
		backlog[0] = nil
		backlog = backlog[1:]
		idle := len(backlog) == 0
		if idle {
			delete(q.pending, key)
		} else {
			q.pending[key] = backlog
		}
		q.mu.Unlock()
		q.wg.Done()

		if idle {
			return
		}
	}
}

// Wait blocks until every submitted function has returned.
func (q *Queue[K]) Wait() {
	q.wg.Wait()
}

// Len returns the number of keys with a live worker.
func (q *Queue[K]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
