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

// Bit layout of the packed word. See doc.go for the prose version. Every
// field is 9 usable bits (0-511); the bit immediately above each field is a
// poison canary sitting at that field's overflow-carry position, so any
// unsigned wrap of any counter lights up mDeath immediately. The layout is
// part of the public contract of this package in the sense that it must
// never change shape (a single fetch_add has to move a caller between
// populations atomically) even though the constants themselves are
// unexported.
const (
	mDeath         uint32 = 0xA0080200 // bits 9, 19, 29, 31
	fWriteShove    uint32 = 0x40000000 // bit 30
	mWriters       uint32 = 0x1FF00000 // bits 20..28
	mReadersQueued uint32 = 0x0007FC00 // bits 10..18
	mReaders       uint32 = 0x000001FF // bits 0..8

	oneWriter       uint32 = 1 << 20
	oneReaderQueued uint32 = 1 << 10
	oneReader       uint32 = 1
)

// OverflowError is the panic value raised when any RwLock counter field
// would wrap: more than 511 simultaneous active readers, queued readers, or
// writers. It is terminal: the lock is poisoned (mDeath is latched into its
// word with sequentially-consistent ordering) and every later operation on
// it panics with an *OverflowError too, forever.
type OverflowError struct {
	// Word is the poisoned word's value at the moment this goroutine
	// observed the overflow (not necessarily the value it stored).
	Word uint32
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("futexsync: rwlock overflow, lock poisoned (word=0x%08x)", e.Word)
}

// RwLock is a non-reentrant, writer-preferring reader/writer lock whose
// entire state - active readers, queued readers, active+queued writers, and
// a writer-handoff flag - is packed into a single unsigned 32-bit atomic
// word. See doc.go and the comment on the constants above for the bit
// layout, and the methods below for the state machine.
//
// The zero value is a valid, unlocked RwLock; NewRwLock exists for symmetry
// with NewMutex and for use from generic code (guard.go).
type RwLock struct {
	word uint32
}

// NewRwLock returns an unlocked RwLock.
func NewRwLock() *RwLock {
	return &RwLock{}
}

// safeAdd performs an atomic fetch-add of delta into dst, checking both the
// pre- and post-values for the poison bits. If either is poisoned, it
// latches mDeath and panics. safeSub is safeAdd of the two's-complement of
// delta.
func safeAdd(dst *uint32, delta uint32) uint32 {
	prev := atomic.AddUint32(dst, delta) - delta
	if prev&mDeath != 0 {
		die(dst, prev)
	}
	cur := prev + delta
	if cur&mDeath != 0 {
		die(dst, cur)
	}
	return cur
}

func safeSub(dst *uint32, delta uint32) uint32 {
	return safeAdd(dst, -delta)
}

func die(dst *uint32, observed uint32) {
	atomic.StoreUint32(dst, mDeath)
	panic(&OverflowError{Word: observed})
}

// AcquireRead blocks until the caller holds the lock for shared (read)
// access.
func (l *RwLock) AcquireRead() {
	v := safeAdd(&l.word, oneReader)
	if v&mWriters == 0 {
		// fast path: no writer present, we're in.
		return
	}
	l.acquireReadSlow(v)
}

func (l *RwLock) acquireReadSlow(v uint32) {
	for {
		if v&mWriters == 0 {
			// a writer finished between our speculative increment and here.
			return
		}

		// Move ourselves from "active reader" to "queued reader" in one
		// atomic step - no observer ever sees both decremented and
		// incremented separately.
		v = safeAdd(&l.word, oneReaderQueued-oneReader)

		if v&mWriters == 0 {
			// writer unlocked in the meantime; leave the queue and retry.
		} else {
			if v&mReaders == 0 && v&mWriters != 0 {
				// Our own brief stint as an active reader may have raced a
				// release_read's "last reader, wake a writer" check and
				// swallowed it. Repair by nudging a writer ourselves.
				futexWakeBitset(&l.word, 1, idWriter)
			}
			futexWaitBitset(&l.word, v, idReader)
		}

		// Leave the queue - restore our place among active readers if the
		// writer is now gone, and loop to re-check.
		v = safeAdd(&l.word, oneReader-oneReaderQueued)
	}
}

// ReleaseRead releases a previously-acquired read lock.
func (l *RwLock) ReleaseRead() {
	v := safeSub(&l.word, oneReader)
	if v&mReaders == 0 && v&mWriters != 0 {
		// We were the last active reader and at least one writer is
		// waiting: hand the lock to it.
		futexWakeBitset(&l.word, 1, idWriter)
	}
}

// AcquireWrite blocks until the caller holds the lock for exclusive (write)
// access.
func (l *RwLock) AcquireWrite() {
	v := safeAdd(&l.word, oneWriter)
	if v&fWriteShove == 0 && v&mWriters == oneWriter && v&mReaders == 0 {
		// fast path: we're the only writer and no readers are active.
		return
	}
	l.acquireWriteSlow(v)
}

func (l *RwLock) acquireWriteSlow(v uint32) {
	haveLock := false
	for {
		switch {
		case haveLock:
			if v&mReaders == 0 {
				// the last active reader has drained; it's ours.
				return
			}
		case v&fWriteShove != 0:
			// Arbitration: exactly one contender eats the shove flag per
			// release. Whoever wins the compare-and-swap is the next
			// active writer; everyone else refreshes v and re-parks.
			if atomic.CompareAndSwapUint32(&l.word, v, v&^fWriteShove) {
				return
			}
			v = atomic.LoadUint32(&l.word)
			continue
		case v&mWriters == oneWriter:
			// we're the sole writer in the count; just waiting on readers.
			haveLock = true
			if v&mReaders == 0 {
				return
			}
		}
		// else: a different writer is active right now.

		futexWaitBitset(&l.word, v, idWriter)
		v = atomic.LoadUint32(&l.word)
	}
}

// ReleaseWrite releases a previously-acquired write lock.
func (l *RwLock) ReleaseWrite() {
	v := safeSub(&l.word, oneWriter)
	if v&mWriters == 0 && v&mReadersQueued == 0 {
		// fast path: nobody left to wake.
		return
	}
	l.releaseWriteSlow(v)
}

func (l *RwLock) releaseWriteSlow(v uint32) {
	if v&mWriters != 0 {
		// Other writers are queued: set the handoff flag and wake exactly
		// one; whichever contender wins the compare-and-swap in
		// acquireWriteSlow becomes the next active writer.
		atomicFetchOr(&l.word, fWriteShove)
		futexWakeBitset(&l.word, 1, idWriter)
		return
	}
	if v&mReadersQueued != 0 {
		// No writers left: release every queued reader, since they can all
		// run in parallel once a writer is no longer present.
		futexWakeBitset(&l.word, math.MaxInt32, idReader)
	}
}

// atomicFetchOr performs an atomic fetch-or, in terms of a CAS loop -
// sync/atomic gained atomic.Or only in Go 1.23's typed atomics, and this
// package targets go 1.21.
func atomicFetchOr(dst *uint32, mask uint32) uint32 {
	for {
		old := atomic.LoadUint32(dst)
		if atomic.CompareAndSwapUint32(dst, old, old|mask) {
			return old
		}
	}
}

// String renders the RwLock's address and current word value in hex, for
// debugging.
func (l *RwLock) String() string {
	return fmt.Sprintf("RwLock@%p (=0x%08x)", l, atomic.LoadUint32(&l.word))
}
