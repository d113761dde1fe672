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

// Package clock supplies the monotonic time source consumed by the rate
// limiter. Tests substitute a Manual clock so
// that token-bucket accrual and jittered sleeps can be exercised without
// real wall-clock delay.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock is a monotonic-nanosecond time source with a sleep-until-time
// operation that can be interruptible (context-bound) or not.
type Clock interface {
	// NowNanos returns the current monotonic time in nanoseconds. It is
	// only meaningful relative to other calls on the same Clock.
	NowNanos() int64

	// SleepUntilNanos blocks until the monotonic clock reaches t or ctx is
	// done, whichever comes first. It returns ctx.Err() in the latter case.
	SleepUntilNanos(ctx context.Context, t int64) error

	// UninterruptedSleepUntilNanos blocks until the monotonic clock
	// reaches t, ignoring context cancellation.
	UninterruptedSleepUntilNanos(t int64)
}

// real is a Clock backed by the runtime's monotonic clock.
type real struct {
	start time.Time
}

// New returns a Clock backed by time.Now's monotonic reading.
func New() Clock {
	return &real{start: time.Now()}
}

func (r *real) NowNanos() int64 {
	return time.Since(r.start).Nanoseconds()
}

func (r *real) SleepUntilNanos(ctx context.Context, t int64) error {
	d := r.durationUntil(t)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *real) UninterruptedSleepUntilNanos(t int64) {
	d := r.durationUntil(t)
	if d <= 0 {
		return
	}
	time.Sleep(d)
}

func (r *real) durationUntil(t int64) time.Duration {
	return time.Duration(t-r.NowNanos()) * time.Nanosecond
}

// Manual is a deterministic Clock for tests: NowNanos only advances when
// Advance is called, and sleeps return as soon as the target time has been
// reached by an Advance call (or immediately, if it already has).
type Manual struct {
	mu  sync.Mutex
	now int64
	cnd *sync.Cond
}

// NewManual returns a Manual clock starting at nanosecond 0.
func NewManual() *Manual {
	m := &Manual{}
	m.cnd = sync.NewCond(&m.mu)
	return m
}

// NowNanos implements Clock.
func (m *Manual) NowNanos() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d and wakes any pending sleepers.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += int64(d)
	m.mu.Unlock()
	m.cnd.Broadcast()
}

// SleepUntilNanos implements Clock.
func (m *Manual) SleepUntilNanos(ctx context.Context, t int64) error {
	done := make(chan struct{})
	go func() {
		m.UninterruptedSleepUntilNanos(t)
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UninterruptedSleepUntilNanos implements Clock.
func (m *Manual) UninterruptedSleepUntilNanos(t int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.now < t {
		m.cnd.Wait()
	}
}
