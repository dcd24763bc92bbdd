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

//go:build !linux

package futexsync

import (
	"sync"
	"sync/atomic"
)

// Non-Linux hosts have no futex(2). This file emulates the same two
// primitives - wait-while-equal and wake-n - with a condvar broadcast, so
// the package still builds and behaves correctly off Linux. The uncontended
// fast paths in mutex.go and rwlock.go are the same atomic operations on
// every platform; only the parking path takes the condvar. A wake
// broadcasts to every parked waiter, whatever its word or mask, and reports
// n as the number woken.
var emulatedWaitSet struct {
	mu sync.Mutex
	c  *sync.Cond
}

func init() {
	emulatedWaitSet.c = sync.NewCond(&emulatedWaitSet.mu)
}

func platformFutexWait(word *int32, expected int32) waitResult {
	emulatedWaitSet.mu.Lock()
	defer emulatedWaitSet.mu.Unlock()
	if atomic.LoadInt32(word) != expected {
		return waitWouldBlock
	}
	emulatedWaitSet.c.Wait()
	return waitOK
}

func platformFutexWake(word *int32, n int) int {
	emulatedWaitSet.mu.Lock()
	defer emulatedWaitSet.mu.Unlock()
	emulatedWaitSet.c.Broadcast()
	return n
}

func platformFutexWaitBitset(word *uint32, expected uint32, mask int32) waitResult {
	emulatedWaitSet.mu.Lock()
	defer emulatedWaitSet.mu.Unlock()
	if atomic.LoadUint32(word) != expected {
		return waitWouldBlock
	}
	emulatedWaitSet.c.Wait()
	return waitOK
}

func platformFutexWakeBitset(word *uint32, n int, mask int32) int {
	emulatedWaitSet.mu.Lock()
	defer emulatedWaitSet.mu.Unlock()
	emulatedWaitSet.c.Broadcast()
	return n
}
