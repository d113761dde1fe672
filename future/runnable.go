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

import (
	"context"
	"sync"
)

// Runnable is a Settable future paired with the thunk that produces its
// result: the package's counterpart to a RunnableFuture. Run executes the
// thunk and completes the future with whatever it returns; Go has no
// Thread to interrupt, so the identity a RunnableFuture would record is,
// here, the context.CancelFunc derived for the thunk's run — Cancel(true)
// invokes it, so a thunk that watches ctx.Done() can stop early.
type Runnable[T any] interface {
	Settable[T]

	// Run executes the associated thunk and completes the future with its
	// result. Only the first call has any effect; later calls are no-ops.
	// Run is meant to be invoked once, typically by an Executor.
	Run()
}

type runnableFuture[T any] struct {
	*future[T]
	task    func(ctx context.Context) (T, error)
	ctx     context.Context
	runOnce sync.Once
}

var _ Runnable[any] = (*runnableFuture[any])(nil)

// NewRunnable returns a pending Runnable future wrapping task, plus the
// CancelFunc for the context task receives when Run executes it. Cancel
// the returned future with mayInterrupt=true (directly, or via
// Abort/AbortAll on whatever owns it) and the same CancelFunc fires
// through the future's interrupt hook, whether that happens before Run is
// called or while task is running.
//
// A caller that discards a Runnable without ever calling Run — a queued
// task dropped by a rejection or an abort — should still invoke the
// returned CancelFunc, to release the context promptly rather than
// leaving it for the garbage collector.
func NewRunnable[T any](ctx context.Context, task func(ctx context.Context) (T, error)) (Runnable[T], context.CancelFunc) {
	taskCtx, cancel := context.WithCancel(ctx)
	rf := &runnableFuture[T]{task: task, ctx: taskCtx}
	rf.future = newPending[T](func(mayInterrupt bool) {
		if mayInterrupt {
			cancel()
		}
	})
	return rf, cancel
}

// Run implements Runnable.
func (r *runnableFuture[T]) Run() {
	r.runOnce.Do(func() {
		v, err := r.task(r.ctx)
		if err != nil {
			r.future.completeInternal(stateFailure, v, err, false)
			return
		}
		r.future.completeInternal(stateSuccess, v, nil, false)
	})
}
