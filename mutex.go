// Copyright 2020 Nathan Taylor (nbtaylor@gmail.com)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package futexsync

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Mutex is a non-reentrant, unfair mutual exclusion lock built directly on
// the futex wait/wake facility. Its word has three states:
//
//	 1  free
//	 0  held, no waiter known to be parked
//	<=-1  held, at least one waiter parked (the exact magnitude carries no
//	      meaning beyond "not zero, not one")
//
// The zero value is not ready for use; construct one with NewMutex.
type Mutex struct {
	word int32
}

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{word: 1}
}

// Lock blocks until the Mutex is held by the caller. Not reentrant: calling
// Lock again from a goroutine that already holds the lock deadlocks.
func (m *Mutex) Lock() {
	for {
		// AddInt32 returns the new (post-add) value, not the old one, so
		// recover the old value before testing it.
		old := atomic.AddInt32(&m.word, -1) + 1
		if old == 1 {
			// word went 1 -> 0: we got it uncontended.
			return
		}
		// word is now <= 0. Mark that a waiter exists and park. The known
		// race here - release storing 1 between our AddInt32 and this
		// store of -1 - is documented and accepted, not fixed: futexWait
		// returns waitWouldBlock if the word changed before we parked, and
		// the outer loop simply retries.
		atomic.StoreInt32(&m.word, -1)
		futexWait(&m.word, -1)
	}
}

// TryLock attempts to acquire the Mutex without blocking, reporting whether
// it succeeded.
func (m *Mutex) TryLock() bool {
	return atomic.CompareAndSwapInt32(&m.word, 1, 0)
}

// Unlock releases the Mutex. The caller must hold it; Unlock on an unheld
// Mutex produces undefined logical state, since no ownership tracking
// exists to detect the misuse.
func (m *Mutex) Unlock() {
	// AddInt32 returns the new (post-add) value, not the old one, so
	// recover the old value before testing it.
	old := atomic.AddInt32(&m.word, 1) - 1
	if old == 0 {
		// word went 0 -> 1: nobody was recorded as waiting.
		return
	}
	// word was negative; a waiter might be parked. Force the word to the
	// free state so the next acquirer's fast path sees it, then wake
	// everyone: unfair, but avoids tracking exactly one waiter to hand off
	// to.
	atomic.StoreInt32(&m.word, 1)
	futexWake(&m.word, math.MaxInt32)
}

// String renders the Mutex's address and current word value, for debugging.
func (m *Mutex) String() string {
	return fmt.Sprintf("Mutex@%p (=%d)", m, atomic.LoadInt32(&m.word))
}
