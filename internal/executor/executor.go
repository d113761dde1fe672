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

// Package executor defines the minimal "run this work item" abstraction
// consumed by the future and pipeline packages. It deliberately does not
// provide a thread-limiting or pool-backed implementation: callers supply
// their own (an *ants.Pool, a bounded goroutine pool, goroutine-per-task),
// and this package supplies only the interface, the Func adapter, and two
// unbounded implementations: the same-thread Direct and the
// goroutine-per-task Goroutine.
package executor

import "github.com/pkg/errors"

// ErrRejected is returned (or passed to a listener) when an Executor
// declines to run a work item, e.g. because it has been shut down.
var ErrRejected = errors.New("executor: task rejected")

// Executor runs a work item. Implementations may run it synchronously,
// on a goroutine, or on a shared worker pool. Execute may return
// ErrRejected instead of running fn; it must never run fn and also
// return an error.
type Executor interface {
	Execute(fn func()) error
}

// direct is an Executor that runs every work item synchronously on the
// calling goroutine. It never rejects.
type direct struct{}

// Direct is the process-wide same-thread Executor singleton. It is used
// by addListener when no executor is supplied, and anywhere a combinator
// needs to observe an upstream future without incurring a goroutine hop.
var Direct Executor = direct{}

// Execute runs fn synchronously and always returns nil.
func (direct) Execute(fn func()) error {
	fn()
	return nil
}

// Func adapts a plain function into an Executor that always accepts the
// work item and hands it to that function, which decides where it runs.
type Func func(fn func())

// Execute implements Executor.
func (f Func) Execute(fn func()) error {
	f(fn)
	return nil
}

// Goroutine is an Executor that runs every work item on a freshly spawned
// goroutine. It never rejects; it exists for callers who want "run this
// asynchronously" semantics without standing up a worker pool.
var Goroutine Executor = Func(func(fn func()) {
	go fn()
})
