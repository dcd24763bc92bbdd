package futexsync

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func TestMutexNewIsUnlocked(t *testing.T) {
	m := NewMutex()
	assert.True(t, m.TryLock(), "a fresh Mutex should be immediately lockable")
	m.Unlock()
}

func TestMutexTryLockFailsWhileHeld(t *testing.T) {
	m := NewMutex()
	m.Lock()
	assert.False(t, m.TryLock(), "TryLock must fail while the Mutex is already held")
	m.Unlock()
	assert.True(t, m.TryLock(), "TryLock must succeed once released")
}

// S5: two threads each acquire/increment/release K times; final counter is
// 2K and is never observed to go non-monotonic under the race detector.
func TestMutexPingPong(t *testing.T) {
	const k = 2000
	m := NewMutex()
	var counter int
	var observed []int

	var g errgroup.Group
	var mu sync.Mutex // guards observed, not under test
	worker := func() error {
		for i := 0; i < k; i++ {
			m.Lock()
			counter++
			mu.Lock()
			observed = append(observed, counter)
			mu.Unlock()
			m.Unlock()
		}
		return nil
	}
	g.Go(worker)
	g.Go(worker)
	assert.NoError(t, g.Wait())

	assert.Equal(t, 2*k, counter)
	for i := 1; i < len(observed); i++ {
		assert.LessOrEqual(t, observed[i-1], observed[i], "counter observed non-monotonic")
	}
}

// P1: at most one goroutine is ever between Lock and its matching Unlock.
func TestMutexMutualExclusion(t *testing.T) {
	const workers = 16
	const iterations = 500
	m := NewMutex()
	var inside int32

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for j := 0; j < iterations; j++ {
				m.Lock()
				n := atomic.AddInt32(&inside, 1)
				if n != 1 {
					m.Unlock()
					t.Errorf("mutual exclusion violated: %d goroutines inside", n)
					return nil
				}
				atomic.AddInt32(&inside, -1)
				m.Unlock()
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())
}

func TestMutexContendedReleaseWakesWaiter(t *testing.T) {
	m := NewMutex()
	m.Lock()

	done := make(chan struct{})
	go func() {
		m.Lock()
		close(done)
		m.Unlock()
	}()

	// give the second goroutine a chance to park in the kernel.
	time.Sleep(20 * time.Millisecond)
	m.Unlock()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was never woken after contended release")
	}
}

func TestMutexString(t *testing.T) {
	m := NewMutex()
	s := m.String()
	assert.Contains(t, s, "Mutex@")
	assert.Contains(t, s, "=1")
}
