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

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/joliv/concur/internal/clock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestAcquireSpacingMatchesRate is scenario S5: RateLimiter(10/s,
// maxStored=1, initial=0), five back-to-back reservations for 1 permit
// each land deadlines 100ms apart (the nominal inter-permit interval).
func TestAcquireSpacingMatchesRate(t *testing.T) {
	mc := clock.NewManual()
	l := New(10, WithMaxStoredPermits(1), WithInitialPermits(0), WithClock(mc))

	var deadlines []int64
	for i := 0; i < 5; i++ {
		deadlines = append(deadlines, l.reserve(1))
	}

	for i := 1; i < len(deadlines); i++ {
		gap := time.Duration(deadlines[i] - deadlines[i-1])
		assert.GreaterOrEqual(t, gap, 99*time.Millisecond)
		assert.LessOrEqual(t, gap, 101*time.Millisecond)
	}
}

func TestAcquireImmediateWhenPermitsStored(t *testing.T) {
	mc := clock.NewManual()
	l := New(10, WithMaxStoredPermits(5), WithInitialPermits(5), WithClock(mc))

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background(), 1))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestMonotonicDeadlines(t *testing.T) {
	mc := clock.NewManual()
	l := New(5, WithMaxStoredPermits(1), WithInitialPermits(0), WithClock(mc))

	var completions []int64
	for i := 0; i < 4; i++ {
		completeAt := l.reserve(1)
		completions = append(completions, completeAt)
		mc.Advance(10 * time.Millisecond)
	}

	for i := 1; i < len(completions); i++ {
		assert.GreaterOrEqual(t, completions[i], completions[i-1])
	}
}

func TestStoredPermitsNeverExceedMax(t *testing.T) {
	mc := clock.NewManual()
	l := New(100, WithMaxStoredPermits(3), WithInitialPermits(0), WithClock(mc))

	mc.Advance(time.Second) // far more accrual than the cap allows
	_ = l.reserve(0)

	b := l.state.Load()
	assert.LessOrEqual(t, b.storedPermits, int64(3))
	assert.GreaterOrEqual(t, b.storedPermits, int64(0))
}

func TestTryAcquireRespectsBudget(t *testing.T) {
	mc := clock.NewManual()
	l := New(1, WithMaxStoredPermits(1), WithInitialPermits(0), WithClock(mc))

	ok := l.TryAcquire(context.Background(), 1, int64(time.Millisecond))
	assert.False(t, ok, "a near-zero budget should not be granted when no permits are stored")

	l2 := New(1, WithMaxStoredPermits(1), WithInitialPermits(1), WithClock(mc))
	ok2 := l2.TryAcquire(context.Background(), 1, int64(time.Millisecond))
	assert.True(t, ok2, "a stored permit should be granted immediately regardless of budget")
}

// TestAcquireWithJitterStaysWithinBand is property 8: the average
// inter-permit deadline spacing over many reservations must stay within
// permitsPerSecond's nominal rate scaled by 1±jitter, even though
// individual spacings wobble with jitter enabled.
func TestAcquireWithJitterStaysWithinBand(t *testing.T) {
	mc := clock.NewManual()
	const rate = 1000.0
	const jitter = 0.2
	l := New(rate, WithMaxStoredPermits(1), WithInitialPermits(0), WithJitter(jitter), WithClock(mc))

	const n = 200
	first := l.reserve(1)
	var last int64
	for i := 0; i < n-1; i++ {
		last = l.reserve(1)
	}

	windowSeconds := float64(last-first) / 1e9
	observedRate := float64(n-1) / windowSeconds

	assert.LessOrEqual(t, observedRate, rate*(1+jitter)*1.05)
	assert.GreaterOrEqual(t, observedRate, rate*(1-jitter)/1.05)
}
