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

package pipeline

import (
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/joliv/concur/internal/executor"
	"github.com/joliv/concur/logger"
)

// Option configures a Service.
type Option func(*options)

type options struct {
	executor    executor.Executor
	log         logger.Logger
	backoffInit time.Duration
	backoffMax  time.Duration
	retries     uint
}

// WithExecutor selects the shared executor pipelines dispatch work onto.
// The default is executor.Goroutine (unbounded, one goroutine per
// dispatched task); supply a pool-backed Executor to bound concurrency.
func WithExecutor(exec executor.Executor) Option {
	return func(o *options) { o.executor = exec }
}

// WithLogger attaches a structured logger. The default is a no-op logger.
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithCreateRetryBackoff tunes the bounded exponential backoff used to
// retry the create-or-join race (see Service.getOrCreatePipeline) when a
// pipeline terminates concurrently with a new submission landing on it.
func WithCreateRetryBackoff(initial, max time.Duration, maxRetries uint) Option {
	return func(o *options) {
		o.backoffInit = initial
		o.backoffMax = max
		o.retries = maxRetries
	}
}

func buildOptions(opts []Option) *options {
	o := &options{
		executor:    executor.Goroutine,
		log:         logger.NewLogger(logger.WithNop()),
		backoffInit: time.Millisecond,
		backoffMax:  50 * time.Millisecond,
		retries:     20,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.backoffInit
	b.MaxInterval = o.backoffMax
	return b
}
