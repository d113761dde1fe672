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
	"context"
	"sync"

	"github.com/joliv/concur/future"
)

// SinglePipelineExecutorService adapts one pipeline key of a shared
// Service into its own executor-service-shaped handle: submissions made
// through it are tagged, so its ShutdownNow drains exactly the tasks it
// itself submitted, without disturbing other callers submitting to the
// same key.
type SinglePipelineExecutorService struct {
	svc *Service
	key string
	tag *submissionTag

	closeOnce sync.Once
	done      chan struct{}
}

// SubmitToPipeline runs fn through sp, serialized with every other task
// on sp's key (including ones submitted directly through the parent
// Service, or through other SinglePipelineExecutorService handles for
// the same key).
func SubmitToPipeline[T any](sp *SinglePipelineExecutorService, ctx context.Context, fn func(ctx context.Context) (T, error)) future.Future[T] {
	select {
	case <-sp.done:
		return future.Failed[T](ErrShutdown)
	default:
	}
	return submit[T](sp.svc, sp.key, sp.tag, ctx, fn)
}

// Execute is SubmitToPipeline's fire-and-forget form.
func (sp *SinglePipelineExecutorService) Execute(ctx context.Context, fn func(ctx context.Context) error) {
	SubmitToPipeline[struct{}](sp, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}

// Shutdown posts a no-op sentinel behind every task already queued
// through sp and waits for it to run: by the pipeline's FIFO ordering,
// every task sp previously submitted has finished by the time the
// sentinel does. No new submissions are accepted once Shutdown is called.
func (sp *SinglePipelineExecutorService) Shutdown(ctx context.Context) bool {
	sp.closeOnce.Do(func() { close(sp.done) })
	f := submit[struct{}](sp.svc, sp.key, sp.tag, context.Background(), func(context.Context) (struct{}, error) {
		return struct{}{}, nil
	})
	return f.Await(ctx)
}

// ShutdownNow cancels every queued task sp itself submitted (mayInterrupt
// = false) and interrupts sp's currently running task if it owns the
// pipeline's current slot (mayInterrupt = true), without touching tasks
// submitted through the same key by other callers.
func (sp *SinglePipelineExecutorService) ShutdownNow() []AbortedTask {
	sp.closeOnce.Do(func() { close(sp.done) })
	return sp.svc.abortTagged(sp.key, sp.tag)
}
