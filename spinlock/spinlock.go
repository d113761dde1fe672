/*
 * MIT License
 *
 * Copyright (c) 2022-2025 Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package spinlock implements a non-reentrant, unfair spinlock with a
// FIFO condition queue, for callers whose critical sections are short
// enough that parking a goroutine costs more than a few spins — the
// rate limiter's jitter PRNG guard is one such caller.
package spinlock

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/atomic"
)

// IllegalMonitorStateError is raised (by panic) when Await, Signal, or
// SignalAll is called without the Condition's lock held.
type IllegalMonitorStateError struct {
	Op string
}

func (e *IllegalMonitorStateError) Error() string {
	return fmt.Sprintf("spinlock: %s called without holding the lock", e.Op)
}

// SpinLock is a non-reentrant, unfair lock. Lock/TryLock CAS a locked
// bit, yielding the processor between spins rather than blocking in the
// scheduler. There is no ownership tracking: nothing stops a goroutine
// other than the holder from calling Unlock, which is a programming
// error the type does not attempt to catch.
type SpinLock struct {
	locked atomic.Bool
	cond   *Condition
}

// New returns an unlocked SpinLock.
func New() *SpinLock {
	l := &SpinLock{}
	l.cond = &Condition{lock: l}
	return l
}

// Lock spins until it acquires the lock.
func (l *SpinLock) Lock() {
	for !l.TryLock() {
		runtime.Gosched()
	}
}

// LockInterruptibly spins until it acquires the lock or ctx is done.
func (l *SpinLock) LockInterruptibly(ctx context.Context) error {
	for !l.TryLock() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			runtime.Gosched()
		}
	}
	return nil
}

// TryLock attempts to acquire the lock without spinning, returning
// whether it succeeded.
func (l *SpinLock) TryLock() bool {
	return l.locked.CompareAndSwap(false, true)
}

// TryLockUntil spins until it acquires the lock or deadline passes,
// returning whether it succeeded.
func (l *SpinLock) TryLockUntil(deadline time.Time) bool {
	for {
		if l.TryLock() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		runtime.Gosched()
	}
}

// Unlock releases the lock. Calling it while not held is a programming
// error; SpinLock does not detect it.
func (l *SpinLock) Unlock() {
	l.locked.Store(false)
}

// NewCondition returns the FIFO wait queue bound to this lock. L must be
// held when calling Await/Signal/SignalAll.
func (l *SpinLock) NewCondition() *Condition {
	return l.cond
}

// Condition is a FIFO queue of parked waiters bound to a SpinLock. Its
// zero value is not usable; obtain one from SpinLock.NewCondition.
type Condition struct {
	lock  *SpinLock
	queue []chan struct{}
}

// Await releases the lock, blocks until Signal/SignalAll wakes this
// waiter, then reacquires the lock before returning. The caller must
// hold the lock when calling Await; calling it otherwise panics with
// *IllegalMonitorStateError.
func (c *Condition) Await() {
	if !c.lock.locked.Load() {
		panic(&IllegalMonitorStateError{Op: "Await"})
	}
	wake := make(chan struct{})
	c.queue = append(c.queue, wake)
	c.lock.Unlock()
	<-wake
	c.lock.Lock()
}

// Signal wakes the longest-waiting goroutine parked in Await, if any.
// The caller must hold the lock; calling it otherwise panics with
// *IllegalMonitorStateError.
func (c *Condition) Signal() {
	if !c.lock.locked.Load() {
		panic(&IllegalMonitorStateError{Op: "Signal"})
	}
	if len(c.queue) == 0 {
		return
	}
	wake := c.queue[0]
	c.queue = c.queue[1:]
	close(wake)
}

// SignalAll wakes every goroutine parked in Await. The caller must hold
// the lock; calling it otherwise panics with *IllegalMonitorStateError.
func (c *Condition) SignalAll() {
	if !c.lock.locked.Load() {
		panic(&IllegalMonitorStateError{Op: "SignalAll"})
	}
	for _, wake := range c.queue {
		close(wake)
	}
	c.queue = nil
}
