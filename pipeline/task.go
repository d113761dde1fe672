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

// Package pipeline implements a per-key FIFO executor: submissions
// sharing a key run strictly one at a time, in submission order, while
// distinct keys run concurrently against a shared Executor. It is the
// Go-native cousin of a pipelining executor service: no thread is
// dedicated per key, a pipeline exists only while it has work, and the
// whole thing is driven off a concurrent map plus a per-key queue.
package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/joliv/concur/future"
	"github.com/joliv/concur/requestid"
)

var tracer = otel.Tracer("github.com/joliv/concur/pipeline")

// submissionTag marks which SinglePipelineExecutorService (if any) a task
// was submitted through, so that adapter's ShutdownNow can abort exactly
// its own tasks without disturbing other submitters sharing the key.
type submissionTag struct{}

// task is the type-erased unit of work a pipeline queues and dispatches.
// The generic Submit/SubmitToPipeline functions close over the
// caller's typed future.Settable[T] to build run and abortable without
// the pipeline itself ever needing to know T.
type task struct {
	key       string
	requestID string
	tag       *submissionTag
	cancel    context.CancelFunc
	abortable future.Abortable
	span      oteltrace.Span
	run       func()
}

// Submit runs fn on the pipeline identified by key, serialized with
// respect to every other task submitted to that key, and returns a
// future for its result. fn receives a context that is cancelled if this
// task's future is cancelled with mayInterrupt=true (by AbortPipeline/
// AbortAll or by the caller cancelling the returned future directly).
func Submit[T any](s *Service, ctx context.Context, key string, fn func(ctx context.Context) (T, error)) future.Future[T] {
	return submit[T](s, key, nil, ctx, fn)
}

// Execute is the fire-and-forget form of Submit: the result is discarded,
// but a rejection from the underlying executor is still recorded (as a
// failed, immediately-discarded future) rather than silently dropped.
func Execute(s *Service, ctx context.Context, key string, fn func(ctx context.Context) error) {
	Submit[struct{}](s, ctx, key, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}

func submit[T any](s *Service, key string, tag *submissionTag, ctx context.Context, fn func(ctx context.Context) (T, error)) future.Future[T] {
	spanCtx, span := tracer.Start(ctx, "pipeline.task", oteltrace.WithAttributes(
		attribute.String("pipeline.key", key),
		attribute.String("pipeline.request_id", requestid.FromContext(ctx)),
	))

	rf, cancel := future.NewRunnable[T](spanCtx, fn)

	t := &task{
		key:       key,
		requestID: requestid.FromContext(ctx),
		tag:       tag,
		cancel:    cancel,
		abortable: rf.(future.Abortable),
		span:      span,
		run: func() {
			defer cancel()
			defer span.End()
			rf.Run()
			if rf.IsFailed() {
				err := rf.GetFailure()
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		},
	}

	s.enqueueAndRun(t)
	return rf
}
