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

// Package future is a listenable-future primitive: a completion
// primitive that lets producers asynchronously deliver a result, a
// failure, or a cancellation exactly once, and lets consumers register
// continuations that fire upon completion. The combinators built on top
// (Transform, Chain, Dereference, Join, Combine2, Combine3) compose
// futures the way the original java.util.concurrent-flavored ancestor of
// this package does, but in idiomatic, generic Go.
//
// Example usage:
//
//	task := func() (int, error) {
//	    return longRunningComputation()
//	}
//
//	f := future.New(task)
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//
//	result, err := f.Result(ctx)
//	if err != nil {
//	    log.Fatalf("failed to get result: %v", err)
//	}
package future

import (
	"context"

	"go.uber.org/atomic"
)

// state is the discriminator of a future's completion state. Completing
// is transient: it exists only while a producer is arbitrating a race and
// is never observable through IsDone/IsCancelled/IsSuccessful/IsFailed.
type state uint32

const (
	statePending state = iota
	stateCompleting
	stateSuccess
	stateFailure
	stateCancelled
)

func isTerminal(s state) bool {
	return s == stateSuccess || s == stateFailure || s == stateCancelled
}

// InterruptHook is invoked on every cancellation (Cancel with either flag,
// or SetCancelled) by the call that wins the Pending->Completing
// transition, before the future becomes observably terminal. mayInterrupt
// mirrors the flag passed to Cancel (false for SetCancelled) so a hook can
// distinguish "please interrupt" from "just mark cancelled".
type InterruptHook func(mayInterrupt bool)

// Visitor receives a synchronous callback from Visit, matching the
// terminal state of the future that was visited.
type Visitor[T any] interface {
	Success(T)
	Failure(error)
	Cancelled()
}

// VisitorFuncs is a Visitor built from three plain functions, for callers
// who would rather not declare a named type. A nil field is a no-op.
type VisitorFuncs[T any] struct {
	OnSuccess   func(T)
	OnFailure   func(error)
	OnCancelled func()
}

func (v VisitorFuncs[T]) Success(val T) {
	if v.OnSuccess != nil {
		v.OnSuccess(val)
	}
}

func (v VisitorFuncs[T]) Failure(err error) {
	if v.OnFailure != nil {
		v.OnFailure(err)
	}
}

func (v VisitorFuncs[T]) Cancelled() {
	if v.OnCancelled != nil {
		v.OnCancelled()
	}
}

// Future represents a value which may or may not currently be available
// but will be, exactly once, at some point: as a success, a failure, or a
// cancellation.
type Future[T any] interface {
	// AddListener registers a continuation. If the future is already
	// terminal, cb is submitted to exec immediately; otherwise it is
	// queued and delivered, via exec, by whichever goroutine seals the
	// future. Errors raised by exec when submitting are swallowed.
	AddListener(cb func(), exec Executor)

	// Cancel attempts to move the future from pending to cancelled. It
	// returns true if this call effected the transition. If mayInterrupt
	// is true and the future has an interrupt hook, the hook runs before
	// the future becomes observably terminal.
	Cancel(mayInterrupt bool) bool

	// IsDone reports whether the future has reached a terminal state.
	IsDone() bool
	// IsCancelled reports whether the terminal state is Cancelled.
	IsCancelled() bool
	// IsSuccessful reports whether the terminal state is Success.
	IsSuccessful() bool
	// IsFailed reports whether the terminal state is Failure.
	IsFailed() bool

	// GetResult returns the success value. Precondition: IsSuccessful();
	// violating it panics with *IllegalStateError.
	GetResult() T
	// GetFailure returns the failure cause. Precondition: IsFailed();
	// violating it panics with *IllegalStateError.
	GetFailure() error

	// Await blocks until the future is terminal or ctx is done, and
	// reports which happened first.
	Await(ctx context.Context) bool

	// Result blocks like Await and then resolves to the value on
	// success, the cause on failure, ErrCancelled on cancellation, or
	// ctx.Err() if the deadline elapsed first.
	Result(ctx context.Context) (T, error)

	// Visit invokes exactly one of visitor's methods synchronously on
	// the calling goroutine. Precondition: IsDone().
	Visit(visitor Visitor[T])
}

// Abortable is implemented by every Settable/Runnable future regardless
// of its value type T; it is the type-erased surface the pipelining
// executor uses to cancel or fail tasks whose result type it doesn't
// otherwise know.
type Abortable interface {
	Cancel(mayInterrupt bool) bool
	SetFailure(err error) bool
}

// Settable is a writable, single-assignment future: the completable half
// of the pair described in the package docs. At most one of
// SetValue/SetFailure/SetCancelled ever returns true.
type Settable[T any] interface {
	Future[T]
	SetValue(v T) bool
	SetFailure(err error) bool
	SetCancelled() bool
}

// future is the concrete Settable[T] implementation; runnableFuture[T]
// (runnable.go) embeds it and adds Run.
type future[T any] struct {
	st        atomic.Uint32
	value     T
	cause     error
	listeners listenerList
	done      chan struct{}
	interrupt InterruptHook
}

var (
	_ Future[any]   = (*future[any])(nil)
	_ Settable[any] = (*future[any])(nil)
	_ Abortable     = (*future[any])(nil)
)

// newPending returns a fresh Pending future. hook may be nil.
func newPending[T any](hook InterruptHook) *future[T] {
	return &future[T]{
		done:      make(chan struct{}),
		interrupt: hook,
	}
}

// newTerminal returns a future that is already terminal at construction,
// as used by Completed/Failed/CancelledFuture.
func newTerminal[T any](s state, value T, cause error) *future[T] {
	f := &future[T]{done: make(chan struct{})}
	f.value = value
	f.cause = cause
	f.st.Store(uint32(s))
	close(f.done)
	f.listeners.preseal()
	return f
}

// NewSettable returns a new pending Settable future with no interrupt
// hook: Cancel(true) behaves exactly like Cancel(false) for it.
func NewSettable[T any]() Settable[T] {
	return newPending[T](nil)
}

// NewSettableWithInterrupt returns a new pending Settable future whose
// cancellation (Cancel with either flag, or SetCancelled) invokes hook
// before the future becomes observably cancelled.
func NewSettableWithInterrupt[T any](hook InterruptHook) Settable[T] {
	return newPending[T](hook)
}

// Completed returns a future that is already successfully terminal.
func Completed[T any](v T) Future[T] { return newTerminal[T](stateSuccess, v, nil) }

// Failed returns a future that is already terminally failed with cause.
func Failed[T any](cause error) Future[T] {
	var zero T
	return newTerminal[T](stateFailure, zero, cause)
}

// CancelledFuture returns a future that is already terminally cancelled.
func CancelledFuture[T any]() Future[T] {
	var zero T
	return newTerminal[T](stateCancelled, zero, nil)
}

// New runs task asynchronously (on opts' executor, the goroutine executor
// by default) and returns a Future that completes with its result.
func New[T any](task func() (T, error), opts ...Option) Future[T] {
	o := buildOptions(opts)
	f := newPending[T](nil)
	err := o.executor.Execute(func() {
		v, taskErr := task()
		if taskErr != nil {
			f.completeInternal(stateFailure, v, taskErr, false)
			return
		}
		f.completeInternal(stateSuccess, v, nil, false)
	})
	if err != nil {
		f.completeInternal(stateFailure, *new(T), err, false)
	}
	return f
}

func (f *future[T]) state() state { return state(f.st.Load()) }

// completeInternal performs the CAS-guarded Pending->Completing->target
// transition. If another producer already won the race, a losing
// SetValue/SetFailure (or Run) blocks until that producer (including any
// interrupt hook it ran) has finished, then returns false. A losing
// cancellation returns false at once: a combinator's interrupt hook
// cancels its upstream, whose listener calls SetCancelled back on this
// same future while it is still Completing.
func (f *future[T]) completeInternal(target state, value T, cause error, mayInterrupt bool) bool {
	if !f.st.CompareAndSwap(uint32(statePending), uint32(stateCompleting)) {
		if target != stateCancelled {
			<-f.done
		}
		return false
	}

	switch target {
	case stateSuccess:
		f.value = value
	case stateFailure:
		f.cause = cause
	case stateCancelled:
		if f.interrupt != nil {
			f.interrupt(mayInterrupt)
		}
	}

	f.st.Store(uint32(target))
	close(f.done)

	for _, fn := range f.listeners.seal() {
		fn()
	}
	return true
}

// SetValue implements Settable.
func (f *future[T]) SetValue(v T) bool {
	return f.completeInternal(stateSuccess, v, nil, false)
}

// SetFailure implements Settable.
func (f *future[T]) SetFailure(err error) bool {
	var zero T
	return f.completeInternal(stateFailure, zero, err, false)
}

// SetCancelled implements Settable.
func (f *future[T]) SetCancelled() bool {
	var zero T
	return f.completeInternal(stateCancelled, zero, nil, false)
}

// Cancel implements Future.
func (f *future[T]) Cancel(mayInterrupt bool) bool {
	var zero T
	return f.completeInternal(stateCancelled, zero, nil, mayInterrupt)
}

// IsDone implements Future.
func (f *future[T]) IsDone() bool { return isTerminal(f.state()) }

// IsCancelled implements Future.
func (f *future[T]) IsCancelled() bool { return f.state() == stateCancelled }

// IsSuccessful implements Future.
func (f *future[T]) IsSuccessful() bool { return f.state() == stateSuccess }

// IsFailed implements Future.
func (f *future[T]) IsFailed() bool { return f.state() == stateFailure }

// GetResult implements Future.
func (f *future[T]) GetResult() T {
	if f.state() != stateSuccess {
		panic(&IllegalStateError{Op: "GetResult", Reason: "future has not completed successfully"})
	}
	return f.value
}

// GetFailure implements Future.
func (f *future[T]) GetFailure() error {
	if f.state() != stateFailure {
		panic(&IllegalStateError{Op: "GetFailure", Reason: "future has not failed"})
	}
	return f.cause
}

// Await implements Future.
func (f *future[T]) Await(ctx context.Context) bool {
	select {
	case <-f.done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Result implements Future.
func (f *future[T]) Result(ctx context.Context) (T, error) {
	if !f.Await(ctx) {
		var zero T
		return zero, ctx.Err()
	}
	switch f.state() {
	case stateSuccess:
		return f.value, nil
	case stateFailure:
		var zero T
		return zero, f.cause
	default: // stateCancelled
		var zero T
		return zero, ErrCancelled
	}
}

// Visit implements Future.
func (f *future[T]) Visit(v Visitor[T]) {
	switch f.state() {
	case stateSuccess:
		v.Success(f.value)
	case stateFailure:
		v.Failure(f.cause)
	case stateCancelled:
		v.Cancelled()
	default:
		panic(&IllegalStateError{Op: "Visit", Reason: "future is not done"})
	}
}

// AddListener implements Future.
func (f *future[T]) AddListener(cb func(), exec Executor) {
	if exec == nil {
		exec = Direct
	}
	dispatch := func() {
		defer func() { _ = recover() }()
		_ = exec.Execute(cb)
	}
	if f.listeners.add(dispatch) {
		return
	}
	dispatch()
}
