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

// Arm masks used by the RwLock to maintain two logical waiter populations
// (readers, writers) on the single word, without needing a second address.
const (
	idReader int32 = 1
	idWriter int32 = 2
)

// waitResult is the outcome of a futexWait/futexWaitBitset call. All three
// values are handled identically by every caller in this package: return
// and retry the protocol from the top. Any other outcome is unreachable and
// indicates the host kernel is misbehaving.
type waitResult int

const (
	waitOK waitResult = iota
	waitWouldBlock
	waitInterrupted
)

// futexWait suspends the caller on word's address iff *word == expected at
// the moment it arms. A plain (unmasked) wait/wake pair, used by Mutex.
func futexWait(word *int32, expected int32) waitResult {
	return platformFutexWait(word, expected)
}

// futexWake wakes up to n waiters parked on word via futexWait, returning
// the number woken as the platform reports it (see futex_other.go for the
// non-Linux emulation, which wakes all waiters and returns n).
func futexWake(word *int32, n int) int {
	return platformFutexWake(word, n)
}

// futexWaitBitset is futexWait's masked counterpart, used by RwLock: the
// caller is tagged with mask and will only be woken by a futexWakeBitset
// whose mask intersects it.
func futexWaitBitset(word *uint32, expected uint32, mask int32) waitResult {
	return platformFutexWaitBitset(word, expected, mask)
}

// futexWakeBitset wakes up to n waiters on word whose arm-mask intersects
// mask, returning the number woken as the platform reports it (the non-Linux
// emulation wakes all waiters and returns n).
func futexWakeBitset(word *uint32, n int, mask int32) int {
	return platformFutexWakeBitset(word, n, mask)
}
