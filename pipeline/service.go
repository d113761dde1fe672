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
	"time"

	"golang.org/x/sync/singleflight"

	"go.uber.org/atomic"
)

// Service is a PipeliningExecutorService: it owns a concurrent map from
// key to pipeline and the shared executor every pipeline dispatches onto.
type Service struct {
	opts *options

	pipelines sync.Map // string -> *pipeline
	group     singleflight.Group

	aliveCount atomic.Int64
	phase      atomic.Uint64

	genMu sync.Mutex
	gen   chan struct{} // closed once the current busy period quiesces
}

// NewService constructs a Service. With no options it dispatches every
// task onto a freshly spawned goroutine (unbounded concurrency across
// keys); supply WithExecutor to bound it with a worker pool.
func NewService(opts ...Option) *Service {
	closed := make(chan struct{})
	close(closed)
	return &Service{
		opts: buildOptions(opts),
		gen:  closed,
	}
}

// enqueueAndRun implements §4.3's enqueue protocol: look up or create the
// key's pipeline (collapsing concurrent creation races through a
// singleflight.Group keyed by pipeline key), enqueue t, and dispatch it
// if it became current. A pipeline that has terminated between lookup
// and enqueue is retried against a freshly created one, backing off
// (cenkalti/backoff) between attempts so a hot key that is rapidly
// draining doesn't spin a core.
func (s *Service) enqueueAndRun(t *task) {
	b := s.opts.newBackoff()
	for attempt := uint(0); ; attempt++ {
		p := s.getOrCreatePipeline(t.key)
		started, terminated := p.enqueue(t)
		if terminated {
			s.pipelines.CompareAndDelete(t.key, p)
			if attempt >= s.opts.retries {
				s.opts.log.Warnw("pipeline creation retried past the configured limit; still retrying", "key", t.key, "attempt", attempt)
			}
			time.Sleep(b.NextBackOff())
			continue
		}
		if started {
			s.incrAlive()
			p.dispatch(t)
		}
		return
	}
}

func (s *Service) getOrCreatePipeline(key string) *pipeline {
	if v, ok := s.pipelines.Load(key); ok {
		return v.(*pipeline)
	}
	v, _, _ := s.group.Do(key, func() (any, error) {
		p := newPipeline(key, s)
		actual, _ := s.pipelines.LoadOrStore(key, p)
		return actual, nil
	})
	return v.(*pipeline)
}

// incrAlive and decrAlive hold genMu across both the aliveCount
// transition and the gen swap/close it triggers. AwaitQuiescence reads
// gen under the same mutex, so it can never observe a gen left over from
// the previous generation after aliveCount has already moved off the
// value that gen describes — the race that made quiescence unsound when
// the increment and the swap were two separate critical sections.
func (s *Service) incrAlive() {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.aliveCount.Add(1) == 1 {
		s.gen = make(chan struct{})
	}
}

func (s *Service) decrAlive() {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.aliveCount.Add(-1) == 0 {
		close(s.gen)
		s.phase.Add(1)
	}
}

// IsQuiescent reports whether no pipeline currently has a running or
// queued task.
func (s *Service) IsQuiescent() bool {
	return s.aliveCount.Load() == 0
}

// AwaitQuiescence blocks until IsQuiescent becomes true or ctx is done.
func (s *Service) AwaitQuiescence(ctx context.Context) bool {
	s.genMu.Lock()
	g := s.gen
	s.genMu.Unlock()
	select {
	case <-g:
		return true
	case <-ctx.Done():
		return false
	}
}

// IsPipelineQuiescent reports whether key currently has no pipeline.
//
// The reference this package is modeled on returns true iff the key IS
// present in its pipeline map — the inverse of what "quiescent" ought to
// mean, and flagged as likely a bug rather than intended behavior. This
// implementation uses the corrected sense: quiescent means no pipeline
// (and therefore no running or queued task) exists for key.
func (s *Service) IsPipelineQuiescent(key string) bool {
	_, ok := s.pipelines.Load(key)
	return !ok
}

// AwaitPipelineQuiescence blocks until key's pipeline (if any existed at
// call time) terminates, or ctx is done. A key with no pipeline at call
// time is already quiescent.
func (s *Service) AwaitPipelineQuiescence(ctx context.Context, key string) bool {
	v, ok := s.pipelines.Load(key)
	if !ok {
		return true
	}
	p := v.(*pipeline)
	select {
	case <-p.done:
		return true
	case <-ctx.Done():
		return false
	}
}

// AbortAll drains every pipeline's queue (cancelling queued tasks) and
// interrupts every currently running task, returning what was aborted
// per key.
func (s *Service) AbortAll() map[string][]AbortedTask {
	result := make(map[string][]AbortedTask)
	s.pipelines.Range(func(k, v any) bool {
		key := k.(string)
		p := v.(*pipeline)
		if aborted := p.abort(nil, true); len(aborted) > 0 {
			result[key] = aborted
		}
		return true
	})
	return result
}

// AbortPipeline scopes AbortAll to a single key.
func (s *Service) AbortPipeline(key string) []AbortedTask {
	v, ok := s.pipelines.Load(key)
	if !ok {
		return nil
	}
	return v.(*pipeline).abort(nil, true)
}

// abortTagged aborts only the tasks on key's pipeline that carry tag,
// leaving tasks submitted by other callers sharing the key untouched.
// Used by SinglePipelineExecutorService.ShutdownNow.
func (s *Service) abortTagged(key string, tag *submissionTag) []AbortedTask {
	v, ok := s.pipelines.Load(key)
	if !ok {
		return nil
	}
	return v.(*pipeline).abort(tag, false)
}

// NewExecutorServiceForPipeline returns an adapter exposing a single
// pipeline's key as its own executor service, per §4.3.
func (s *Service) NewExecutorServiceForPipeline(key string) *SinglePipelineExecutorService {
	sp := &SinglePipelineExecutorService{
		svc:  s,
		key:  key,
		tag:  &submissionTag{},
		done: make(chan struct{}),
	}
	return sp
}
