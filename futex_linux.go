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

//go:build linux

package futexsync

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// futex(2) operation codes. Defined locally and used with the syscall
// number unix.SYS_FUTEX, the same way the original
// implementation's sys.rs does with the libc-provided syscall number: this
// package calls the raw syscall directly via unix.Syscall6 rather than
// trusting a higher-level wrapper to exist across every x/sys/unix version.
const (
	futexOpWait       = 0
	futexOpWake       = 1
	futexOpWaitBitset = 9
	futexOpWakeBitset = 10
)

func doFutex(addr unsafe.Pointer, op int, val uint32, addr2 unsafe.Pointer, val3 uint32) (uintptr, unix.Errno) {
	r1, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(addr),
		uintptr(op),
		uintptr(val),
		0, // timeout: always wait forever, no bounded-wait variant exists
		uintptr(addr2),
		uintptr(val3),
	)
	return r1, errno
}

func platformFutexWait(word *int32, expected int32) waitResult {
	_, errno := doFutex(unsafe.Pointer(word), futexOpWait, uint32(expected), nil, 0)
	return classifyFutexErrno(errno)
}

func platformFutexWake(word *int32, n int) int {
	woken, errno := doFutex(unsafe.Pointer(word), futexOpWake, uint32(n), nil, 0)
	if errno != 0 {
		// A wake against a live address we own never legitimately fails;
		// treat it as "woke nobody" rather than propagating an error type
		// nothing in this package's API surfaces.
		return 0
	}
	return int(woken)
}

func platformFutexWaitBitset(word *uint32, expected uint32, mask int32) waitResult {
	_, errno := doFutex(unsafe.Pointer(word), futexOpWaitBitset, expected, nil, uint32(mask))
	return classifyFutexErrno(errno)
}

func platformFutexWakeBitset(word *uint32, n int, mask int32) int {
	woken, errno := doFutex(unsafe.Pointer(word), futexOpWakeBitset, uint32(n), nil, uint32(mask))
	if errno != 0 {
		return 0
	}
	return int(woken)
}

func classifyFutexErrno(errno unix.Errno) waitResult {
	switch errno {
	case 0:
		return waitOK
	case unix.EAGAIN:
		return waitWouldBlock
	case unix.EINTR:
		return waitInterrupted
	default:
		panic("futexsync: unreachable futex(2) failure: " + errno.Error())
	}
}
