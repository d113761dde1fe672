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
	"sync"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// AbortedTask describes a task that Abort/AbortAll cancelled or
// interrupted, for callers that want to know what was discarded.
type AbortedTask struct {
	Key       string
	RequestID string
}

// pipeline is the per-key FIFO: one task runs at a time (current), and
// later submissions for the same key queue behind it. It is created on
// first enqueue for a key and destroyed once it drains to empty; a
// fresh pipeline is created if the key is submitted to again afterward.
type pipeline struct {
	key string
	svc *Service

	mu         sync.Mutex
	current    *task
	queue      *taskQueue
	terminated bool

	// alive mirrors, readable without taking mu, whether this pipeline has
	// a current task or queued work. It is kept up to date on every
	// transition; no code in this package reads it.
	alive atomic.Bool

	done chan struct{} // closed when the pipeline terminates
}

func newPipeline(key string, svc *Service) *pipeline {
	return &pipeline{
		key:   key,
		svc:   svc,
		queue: newTaskQueue(),
		done:  make(chan struct{}),
	}
}

// enqueue implements the per-pipeline half of §4.3's enqueue protocol.
// started reports that t became current and the caller must dispatch it;
// terminated reports that this pipeline instance has already drained and
// the caller must retry against a freshly created one.
func (p *pipeline) enqueue(t *task) (started, terminated bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.terminated {
		return false, true
	}
	if p.current == nil {
		p.current = t
		p.alive.Store(true)
		return true, false
	}
	p.queue.push(t)
	return false, false
}

// dispatch submits t to the shared executor. A dispatch rejection drains
// the entire pipeline (t plus whatever is still queued behind it) and
// fails every outstanding task, per §4.3's Rejection paragraph and §7's
// Rejected taxonomy entry.
func (p *pipeline) dispatch(t *task) {
	err := p.svc.opts.executor.Execute(func() {
		t.run()
		p.onTaskDone(t)
	})
	if err == nil {
		return
	}
	p.drainOnRejection(t, err)
}

func (p *pipeline) drainOnRejection(rejected *task, execErr error) {
	p.mu.Lock()
	queued := p.queue.drain()
	p.current = nil
	p.terminated = true
	p.alive.Store(false)
	p.mu.Unlock()

	p.svc.pipelines.CompareAndDelete(p.key, p)
	close(p.done)
	p.svc.decrAlive()

	cause := errors.Wrapf(ErrRejected, "key=%s: %v", p.key, execErr)
	failures := make([]error, 0, len(queued)+1)

	rejected.cancel()
	rejected.abortable.SetFailure(cause)
	rejected.span.SetStatus(codes.Error, cause.Error())
	rejected.span.End()
	failures = append(failures, cause)

	for _, qt := range queued {
		qt.cancel()
		qt.abortable.SetFailure(cause)
		qt.span.SetStatus(codes.Error, cause.Error())
		qt.span.End()
		failures = append(failures, cause)
	}

	p.svc.opts.log.Errorw(multierr.Combine(failures...), "pipeline", p.key, "drained", len(queued)+1)
}

// onTaskDone advances the pipeline after t finishes (successfully,
// with a failure, or by cancellation): the next queued task, if any,
// becomes current and is dispatched; otherwise the pipeline terminates
// and removes itself from the service's map.
func (p *pipeline) onTaskDone(t *task) {
	p.mu.Lock()
	next, ok := p.queue.popFront()
	if !ok {
		p.current = nil
		p.terminated = true
		p.alive.Store(false)
		p.mu.Unlock()

		p.svc.pipelines.CompareAndDelete(p.key, p)
		close(p.done)
		p.svc.decrAlive()
		return
	}

	p.current = next
	p.mu.Unlock()

	p.dispatch(next)
}

// abort cancels every queued task (mayInterrupt=false) and interrupts
// the currently running one (mayInterrupt=true). Unless matchAll is set,
// only tasks whose tag equals filterTag are affected.
func (p *pipeline) abort(filterTag *submissionTag, matchAll bool) []AbortedTask {
	matches := func(t *task) bool { return matchAll || t.tag == filterTag }

	p.mu.Lock()
	removed := p.queue.removeMatching(matches)
	current := p.current
	p.mu.Unlock()

	var aborted []AbortedTask
	for _, t := range removed {
		t.abortable.Cancel(false)
		t.span.SetStatus(codes.Error, "aborted while queued")
		t.span.End()
		aborted = append(aborted, AbortedTask{Key: t.key, RequestID: t.requestID})
	}
	if current != nil && matches(current) {
		current.abortable.Cancel(true)
		aborted = append(aborted, AbortedTask{Key: current.key, RequestID: current.requestID})
	}
	return aborted
}
