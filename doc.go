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

// Package futexsync implements a mutex and a reader/writer lock directly on
// top of the kernel's futex wait/wake facility, along the same lines as
// glibc's low-level locks or Rust's `parking_lot`: the fast, uncontended path
// is a single atomic instruction, and the kernel is only involved once a
// caller actually has to block.
//
// ## Mutex
//
// The Mutex is a single signed 32-bit word with three states: free (1),
// held with no known waiters (0), and held with at least one waiter parked
// (<= -1, the exact magnitude isn't meaningful). Acquire is a
// fetch-and-subtract; release is a fetch-and-add. Contended paths fall
// through to futex_wait/futex_wake. See mutex.go.
//
// ## RwLock
//
// The RwLock is the interesting part of this package. Rather than a pair of
// counters and a queue, all of its state - active readers, queued (blocked)
// readers, active-and-queued writers, and a one-bit writer handoff flag - is
// packed into a single unsigned 32-bit word, so that a caller can move
// itself between populations (e.g. "active reader" -> "queued reader") with
// one atomic fetch-add. The layout is:
//
//	bit 31            overflow guard (poison canary, see below)
//	bit 30            F_WRITE_SHOVE: writer handoff flag
//	bits 29..20       M_WRITERS count (bits 28..20) + its poison canary (bit 29)
//	bits 19..10       M_READERS_QUEUED count (bits 18..10) + its poison canary (bit 19)
//	bit 9             poison canary for M_READERS
//	bits 8..0         M_READERS: active reader count
//
// Each counter field is 9 usable bits (0-511); the bit directly above each
// field is a "poison canary" sitting exactly where that field's overflow
// would carry into it. Any wrap of any counter therefore lights up one of
// the canary bits immediately, and once any canary bit is set the lock is
// permanently poisoned - every subsequent operation panics, rather than
// silently running with corrupted state. See rwlock.go for the acquire and
// release state machines that this layout makes possible.
//
// ## Typed wrappers
//
// TypedMutex[T] and TypedRwLock[T] pair a raw lock with the T it protects, the same
// way sync.Mutex is usually embedded next to the data it guards, except the
// data lives inside the wrapper and access happens exclusively through a
// guard returned by Lock/RLock/TryLock, which must be released (normally via
// defer) when the caller is done. See guard.go.
//
// None of these primitives are reentrant, none are fair, and none track
// per-waiter ownership - a release is trusted to come from whoever holds
// the lock. That is a deliberate trade for an uncontended path that costs
// exactly one atomic RMW and zero syscalls.
package futexsync
