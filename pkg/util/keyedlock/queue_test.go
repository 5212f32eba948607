package keyedlock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueKeepsSubmissionOrderPerKey(t *testing.T) {
	q := NewQueue[int64]()
	var (
		mu  sync.Mutex
		got = map[int64][]int{}
	)
	for i := 0; i < 200; i++ {
		key := int64(i % 3)
		i := i
		q.Go(key, func() {
			if i%7 == 0 {
				time.Sleep(time.Millisecond)
			}
			mu.Lock()
			got[key] = append(got[key], i)
			mu.Unlock()
		})
	}
	q.Wait()

	total := 0
	for key, seq := range got {
		total += len(seq)
		for n := 1; n < len(seq); n++ {
			assert.Less(t, seq[n-1], seq[n], "key %d out of order", key)
		}
	}
	assert.Equal(t, 200, total)
	assert.Equal(t, 0, q.Len())
}

func TestQueueRunsDifferentKeysInParallel(t *testing.T) {
	q := NewQueue[string]()
	release := make(chan struct{})
	done := make(chan struct{})

	q.Go("slow", func() { <-release })
	q.Go("fast", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fast key blocked behind slow key")
	}
	close(release)
	q.Wait()
}

func TestQueueRestartsWorkerAfterDrain(t *testing.T) {
	q := NewQueue[int]()
	var ran []int
	q.Go(1, func() { ran = append(ran, 1) })
	q.Wait()
	require.Equal(t, 0, q.Len())

	q.Go(1, func() { ran = append(ran, 2) })
	q.Wait()
	assert.Equal(t, []int{1, 2}, ran)
}
