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

import "fmt"

// TypedMutex pairs a raw Mutex with the value it protects. Go has no
// destructors, so unlike a drop-released guard, the one returned by
// Lock/TryLock must be released explicitly - conventionally via defer - by
// calling its Unlock method.
type TypedMutex[T any] struct {
	raw  Mutex
	data T
}

// NewTypedMutex returns a TypedMutex holding v, initially unlocked.
func NewTypedMutex[T any](v T) *TypedMutex[T] {
	return &TypedMutex[T]{raw: *NewMutex(), data: v}
}

// Lock blocks until the lock is held, and returns a guard mediating access
// to the protected value. The caller must call the guard's Unlock when
// done, typically via defer.
func (m *TypedMutex[T]) Lock() *MutexGuard[T] {
	m.raw.Lock()
	return &MutexGuard[T]{m: m}
}

// TryLock attempts to acquire the lock without blocking. On success it
// returns a guard and true; on failure, a nil guard and false.
func (m *TypedMutex[T]) TryLock() (*MutexGuard[T], bool) {
	if !m.raw.TryLock() {
		return nil, false
	}
	return &MutexGuard[T]{m: m}, true
}

func (m *TypedMutex[T]) String() string {
	return m.raw.String()
}

// MutexGuard mediates exclusive access to a TypedMutex's protected value,
// for the lifetime between Lock/TryLock and Unlock.
type MutexGuard[T any] struct {
	m *TypedMutex[T]
}

// Value returns a pointer to the protected value. The pointer is only
// valid to dereference while this guard has not been unlocked.
func (g *MutexGuard[T]) Value() *T {
	return &g.m.data
}

// Unlock releases the lock. Calling Unlock more than once has the same
// undefined-state consequences as calling Mutex.Unlock without holding the
// lock. A failed TryLock returns a nil guard, and calling Unlock on it
// panics with a nil pointer dereference.
func (g *MutexGuard[T]) Unlock() {
	g.m.raw.Unlock()
}

// TypedRwLock pairs a raw RwLock with the value it protects.
//
// Data shared under a read lock must additionally be safe to access by
// reference from multiple readers concurrently; Go has no compile-time
// equivalent of Rust's Sync bound to enforce that, so it is documented here
// instead: callers must not mutate *T through an RLockGuard (even though Ref
// returns a non-const pointer - Go cannot express "pointer to const").
type TypedRwLock[T any] struct {
	raw  RwLock
	data T
}

// NewTypedRwLock returns a TypedRwLock holding v, initially unlocked.
func NewTypedRwLock[T any](v T) *TypedRwLock[T] {
	return &TypedRwLock[T]{raw: *NewRwLock(), data: v}
}

// RLock blocks until the lock is held for shared (read) access.
func (l *TypedRwLock[T]) RLock() *RLockGuard[T] {
	l.raw.AcquireRead()
	return &RLockGuard[T]{l: l}
}

// Lock blocks until the lock is held for exclusive (write) access.
func (l *TypedRwLock[T]) Lock() *WLockGuard[T] {
	l.raw.AcquireWrite()
	return &WLockGuard[T]{l: l}
}

func (l *TypedRwLock[T]) String() string {
	return l.raw.String()
}

// RLockGuard mediates shared access to a TypedRwLock's protected value.
type RLockGuard[T any] struct {
	l *TypedRwLock[T]
}

// Value returns a copy of the protected value. Safe regardless of T's
// internal mutability, at the cost of the copy.
func (g *RLockGuard[T]) Value() T {
	return g.l.data
}

// Ref returns a pointer to the protected value, read-only by convention:
// writing through it while other readers may be concurrently reading
// violates the caller's own contract with them, not anything this package
// can enforce.
func (g *RLockGuard[T]) Ref() *T {
	return &g.l.data
}

// Unlock releases the read lock.
func (g *RLockGuard[T]) Unlock() {
	g.l.raw.ReleaseRead()
}

// WLockGuard mediates exclusive access to a TypedRwLock's protected value.
type WLockGuard[T any] struct {
	l *TypedRwLock[T]
}

// Value returns a pointer to the protected value, valid to read and write
// until Unlock.
func (g *WLockGuard[T]) Value() *T {
	return &g.l.data
}

// Unlock releases the write lock.
func (g *WLockGuard[T]) Unlock() {
	g.l.raw.ReleaseWrite()
}

var (
	_ fmt.Stringer = (*TypedMutex[int])(nil)
	_ fmt.Stringer = (*TypedRwLock[int])(nil)
)
