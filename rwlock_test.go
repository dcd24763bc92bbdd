package futexsync

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

// S1: single-thread reader stacking. Final word must be 0.
func TestRwLockReaderStacking(t *testing.T) {
	l := NewRwLock()
	l.AcquireRead()
	l.AcquireRead()
	l.AcquireRead()
	l.ReleaseRead()
	l.ReleaseRead()
	l.ReleaseRead()
	assert.Equal(t, uint32(0), atomic.LoadUint32(&l.word))
}

func TestRwLockWriterExclusive(t *testing.T) {
	l := NewRwLock()
	l.AcquireWrite()
	l.ReleaseWrite()
	assert.Equal(t, uint32(0), atomic.LoadUint32(&l.word))
}

// S2: three readers + one writer swap. No deadlock; B's writer phase is
// ordered after A's readers drain; all counters return to zero.
func TestRwLockThreeReadersWriterSwap(t *testing.T) {
	l := NewRwLock()
	var aReleased int32

	var g errgroup.Group
	g.Go(func() error {
		l.AcquireRead()
		l.AcquireRead()
		l.AcquireRead()
		time.Sleep(100 * time.Millisecond)
		l.ReleaseRead()
		l.ReleaseRead()
		l.ReleaseRead()
		atomic.StoreInt32(&aReleased, 1)
		return nil
	})

	// give A a chance to take its three reads first.
	time.Sleep(10 * time.Millisecond)

	g.Go(func() error {
		l.AcquireRead() // writers==0 at this point, succeeds immediately
		l.ReleaseRead()

		l.AcquireWrite() // must block until A's three readers drain
		if atomic.LoadInt32(&aReleased) == 0 {
			return errAssertError{"writer acquired before reader A released"}
		}
		time.Sleep(5 * time.Millisecond)
		l.ReleaseWrite()

		l.AcquireRead()
		l.ReleaseRead()
		return nil
	})

	assert.NoError(t, g.Wait())
	assert.Equal(t, uint32(0), atomic.LoadUint32(&l.word))
}

type errAssertError struct{ msg string }

func (e errAssertError) Error() string { return e.msg }

// S3: N writer-contention threads each increment a protected counter M
// times; the counter must end at N*M with no overlapping critical sections.
func TestRwLockWriterContention(t *testing.T) {
	const n = 8
	const m = 1500
	l := NewRwLock()
	var counter int
	var inside int32

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			for j := 0; j < m; j++ {
				l.AcquireWrite()
				c := atomic.AddInt32(&inside, 1)
				if c != 1 {
					l.ReleaseWrite()
					return errAssertError{"writer overlap detected"}
				}
				counter++
				atomic.AddInt32(&inside, -1)
				l.ReleaseWrite()
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())
	assert.Equal(t, n*m, counter)
}

// S4: writer preference. A reader holds the lock; N writers queue up; M new
// readers attempt to acquire concurrently. When the holder releases, every
// queued writer must run once before any of the new readers gets in.
func TestRwLockWriterPreference(t *testing.T) {
	const numWriters = 6
	const numNewReaders = 6
	l := NewRwLock()

	l.AcquireRead() // the initial holder

	var writersStarted sync.WaitGroup
	writersStarted.Add(numWriters)

	var order []string
	var orderMu sync.Mutex
	record := func(s string) {
		orderMu.Lock()
		order = append(order, s)
		orderMu.Unlock()
	}

	var g errgroup.Group
	writerDone := make(chan struct{}, numWriters)
	for i := 0; i < numWriters; i++ {
		g.Go(func() error {
			writersStarted.Done()
			// ensure we've had a chance to observe the holder and queue.
			time.Sleep(5 * time.Millisecond)
			l.AcquireWrite()
			record("writer")
			time.Sleep(time.Millisecond)
			l.ReleaseWrite()
			writerDone <- struct{}{}
			return nil
		})
	}

	writersStarted.Wait()
	time.Sleep(30 * time.Millisecond) // let writers queue behind the held read lock

	for i := 0; i < numNewReaders; i++ {
		g.Go(func() error {
			l.AcquireRead()
			record("reader")
			l.ReleaseRead()
			return nil
		})
	}

	time.Sleep(10 * time.Millisecond)
	l.ReleaseRead() // release the original holder; writers should drain first

	assert.NoError(t, g.Wait())

	orderMu.Lock()
	defer orderMu.Unlock()
	assert.Len(t, order, numWriters+numNewReaders)
	firstReaderIdx := len(order)
	for i, v := range order {
		if v == "reader" {
			firstReaderIdx = i
			break
		}
	}
	assert.GreaterOrEqual(t, firstReaderIdx, numWriters,
		"a new reader ran before all queued writers: %v", order)
}

// S6: inducing 512 concurrent acquire_read (without releasing) must
// eventually panic with an overflow, and no subsequent operation succeeds.
func TestRwLockOverflowPoisons(t *testing.T) {
	l := NewRwLock()

	var wg sync.WaitGroup
	var overflowed int32
	const n = 520

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					if _, ok := r.(*OverflowError); ok {
						atomic.StoreInt32(&overflowed, 1)
						return
					}
					panic(r)
				}
			}()
			l.AcquireRead()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), overflowed, "expected at least one overflow panic")
	assert.Equal(t, mDeath, atomic.LoadUint32(&l.word))

	assert.Panics(t, func() {
		l.AcquireRead()
	}, "operations after poisoning must keep panicking")
}

func TestRwLockString(t *testing.T) {
	l := NewRwLock()
	assert.Contains(t, l.String(), "RwLock@")
	assert.Contains(t, l.String(), "0x00000000")
}
