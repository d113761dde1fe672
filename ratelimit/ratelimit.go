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

// Package ratelimit implements a token-bucket RateLimiter with optional
// per-iteration jitter, in the spirit of the interceptor-oriented rate
// limiter the reference grpc package wraps around golang.org/x/time/rate
// — but implementing the token-bucket accounting itself rather than
// delegating to it, since the jittered accrual and CAS-exposed bucket
// state have no seam in that library's Limiter type.
package ratelimit

import (
	"context"
	"math"
	"math/rand"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"

	"github.com/joliv/concur/internal/clock"
	"github.com/joliv/concur/spinlock"
)

// permitsGranted counts permits handed out across every Limiter in the
// process. It is a no-op until a caller installs a real MeterProvider
// (see metric.Provider), so instrumentation costs nothing when telemetry
// isn't configured.
var permitsGranted, _ = otel.Meter("github.com/joliv/concur/ratelimit").
	Int64Counter("concur.ratelimit.permits_granted", metric.WithDescription("permits handed out by Acquire/AcquireUninterruptibly/TryAcquire"))

// bucket is the CAS-guarded state described by §3 "RateLimiter bucket":
// a monotonic pair (asOfNanos, storedPermits) packed so both fields move
// together under one compare-and-swap.
type bucket struct {
	asOfNanos     int64
	storedPermits int64
}

// Limiter is a token-bucket rate limiter.
type Limiter struct {
	permitsPerSecond float64
	nanosPerPermit   float64
	maxStoredPermits int64
	jitter           float64
	clock            clock.Clock

	state atomic.Pointer[bucket]
	rng   *rand.Rand
	rngMu *spinlock.SpinLock // guards rng.Float64; not safe for concurrent use
}

// Option configures a Limiter.
type Option func(*limiterOpts)

type limiterOpts struct {
	maxStoredPermits int64
	initialPermits   int64
	jitter           float64
	clock            clock.Clock
	seed             int64
}

// WithMaxStoredPermits caps the token bucket; the default is 1.
func WithMaxStoredPermits(n int64) Option {
	return func(o *limiterOpts) { o.maxStoredPermits = n }
}

// WithInitialPermits seeds the bucket with n permits already stored; the
// default is 0.
func WithInitialPermits(n int64) Option {
	return func(o *limiterOpts) { o.initialPermits = n }
}

// WithJitter enables per-iteration accrual jitter in [0,1]; the default
// is 0 (disabled).
func WithJitter(jitter float64) Option {
	return func(o *limiterOpts) { o.jitter = jitter }
}

// WithClock overrides the monotonic clock; tests use this to inject
// clock.Manual for deterministic accrual.
func WithClock(c clock.Clock) Option {
	return func(o *limiterOpts) { o.clock = c }
}

// WithRandSeed fixes the jitter PRNG's seed, for reproducible tests.
func WithRandSeed(seed int64) Option {
	return func(o *limiterOpts) { o.seed = seed }
}

// New constructs a Limiter admitting permitsPerSecond on average.
func New(permitsPerSecond float64, opts ...Option) *Limiter {
	o := &limiterOpts{maxStoredPermits: 1, clock: clock.New(), seed: 1}
	for _, opt := range opts {
		opt(o)
	}

	l := &Limiter{
		permitsPerSecond: permitsPerSecond,
		nanosPerPermit:   1e9 / permitsPerSecond,
		maxStoredPermits: o.maxStoredPermits,
		jitter:           o.jitter,
		clock:            o.clock,
		rng:              rand.New(rand.NewSource(o.seed)), //nolint:gosec // jitter is not a security boundary
		rngMu:            spinlock.New(),
	}
	l.state.Store(&bucket{
		asOfNanos:     l.clock.NowNanos(),
		storedPermits: o.initialPermits,
	})
	return l
}

// schedulingSlackNanos smooths over the gap between when acquire reads
// the clock and when the caller actually asked for a permit, per §4.4
// step 1.
const schedulingSlackNanos = int64(1e6)

// jitteredNanosPerPermit applies §4.4's jitter function: multiply the
// nominal per-permit interval (nanosPerPermit) by 1+σ where
// σ = ±jitter*U^Δ, U uniform in [0,1) and Δ the number of seconds the
// decision spans, clamped to at least 1. Larger Δ damps σ toward 0, so
// long-horizon averages still converge on the nominal rate.
func (l *Limiter) jitteredNanosPerPermit(spanNanos int64) float64 {
	if l.jitter == 0 {
		return l.nanosPerPermit
	}
	deltaSeconds := math.Abs(float64(spanNanos)) / 1e9
	if deltaSeconds < 1 {
		deltaSeconds = 1
	}

	l.rngMu.Lock()
	u := l.rng.Float64()
	sign := 1.0
	if l.rng.Float64() < 0.5 {
		sign = -1.0
	}
	l.rngMu.Unlock()

	sigma := sign * l.jitter * math.Pow(u, deltaSeconds)
	return l.nanosPerPermit * (1 + sigma)
}

// decide computes, from a snapshot of the bucket and the current time,
// the next bucket state and the time at which n permits become
// available, without mutating anything — the caller CASes the result in.
func (l *Limiter) decide(b bucket, now int64, n int64) (next bucket, completeAt int64) {
	next = b
	if next.asOfNanos <= now {
		perPermit := l.jitteredNanosPerPermit(now - next.asOfNanos)
		newPermits := int64(float64(now-next.asOfNanos) / perPermit)
		if newPermits > 0 {
			next.storedPermits += newPermits
			if next.storedPermits > l.maxStoredPermits {
				next.storedPermits = l.maxStoredPermits
			}
			next.asOfNanos += int64(float64(newPermits) * perPermit)
		}
	}

	if next.storedPermits >= n {
		next.storedPermits -= n
		return next, now
	}

	shortage := n - next.storedPermits
	perPermit := l.jitteredNanosPerPermit(next.asOfNanos - now)
	next.asOfNanos += int64(float64(shortage) * perPermit)
	completeAt = next.asOfNanos
	next.storedPermits = 0
	return next, completeAt
}

func (l *Limiter) reserve(n int64) int64 {
	for {
		old := l.state.Load()
		now := l.clock.NowNanos() - schedulingSlackNanos
		next, completeAt := l.decide(*old, now, n)
		if l.state.CompareAndSwap(old, &next) {
			return completeAt
		}
	}
}

// Acquire blocks (interruptibly, via ctx) until n permits are available,
// consuming them, and returns once the computed deadline has elapsed.
func (l *Limiter) Acquire(ctx context.Context, n int64) error {
	completeAt := l.reserve(n)
	if err := l.clock.SleepUntilNanos(ctx, completeAt); err != nil {
		return err
	}
	permitsGranted.Add(ctx, n)
	return nil
}

// AcquireUninterruptibly is Acquire ignoring context cancellation.
func (l *Limiter) AcquireUninterruptibly(n int64) {
	completeAt := l.reserve(n)
	l.clock.UninterruptedSleepUntilNanos(completeAt)
	permitsGranted.Add(context.Background(), n)
}

// TryAcquire attempts to acquire n permits without waiting past budget:
// if the computed wait would not fit within the deadline, it returns
// false and the bucket is left untouched; otherwise it mutates the
// bucket, sleeps until the deadline, and returns true. The decision and
// the mutation are atomic with each other via the same CAS loop as
// reserve/decide.
func (l *Limiter) TryAcquire(ctx context.Context, n int64, budgetNanos int64) bool {
	for {
		old := l.state.Load()
		now := l.clock.NowNanos() - schedulingSlackNanos
		next, completeAt := l.decide(*old, now, n)
		if completeAt-now > budgetNanos {
			return false
		}
		if l.state.CompareAndSwap(old, &next) {
			_ = l.clock.SleepUntilNanos(ctx, completeAt)
			permitsGranted.Add(ctx, n)
			return true
		}
	}
}
