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

package future

import "github.com/joliv/concur/internal/executor"

// Executor runs a work item: a listener callback, or the task passed to
// New. It is re-exported from the internal executor package so that
// external callers of this module can name the type; construct one with
// Direct, Goroutine, or executor.Func-style adapters of your own pool.
type Executor = executor.Executor

// Direct runs work synchronously on the calling goroutine.
var Direct Executor = executor.Direct

// Goroutine runs work on a freshly spawned goroutine. It is the default
// dispatch executor for New.
var Goroutine Executor = executor.Goroutine

// ErrRejected is returned by an Executor that declines to run a work item.
var ErrRejected = executor.ErrRejected

// Option configures New.
type Option func(*options)

type options struct {
	executor Executor
}

// WithExecutor selects the executor that runs New's task. The default is
// Goroutine.
func WithExecutor(exec Executor) Option {
	return func(o *options) { o.executor = exec }
}

func buildOptions(opts []Option) *options {
	o := &options{executor: Goroutine}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
