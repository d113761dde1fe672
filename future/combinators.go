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

import "go.uber.org/atomic"

// Transform derives a new future from in by applying fn to its success
// value on exec. A failure or cancellation of in propagates untouched; a
// panic from fn is recovered and surfaces as a failure. Cancelling the
// returned future cancels in.
func Transform[T, R any](in Future[T], fn func(T) (R, error), exec Executor) Future[R] {
	out := NewSettableWithInterrupt[R](func(mayInterrupt bool) {
		in.Cancel(mayInterrupt)
	})

	in.AddListener(func() {
		in.Visit(VisitorFuncs[T]{
			OnSuccess: func(v T) {
				result, err := safeApply(fn, v)
				if err != nil {
					out.SetFailure(err)
					return
				}
				out.SetValue(result)
			},
			OnFailure:   func(err error) { out.SetFailure(err) },
			OnCancelled: func() { out.SetCancelled() },
		})
	}, exec)

	return out
}

func safeApply[T, R any](fn func(T) (R, error), v T) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return fn(v)
}

// Chain derives a new future from in by, upon in's success, starting a
// fresh asynchronous computation (via fn) on exec and adopting its
// outcome. It differs from Transform in that fn itself returns a Future
// rather than a plain value: use Chain when the continuation is itself
// asynchronous. Cancelling the returned future cancels in and, once it
// has started, the inner future too.
func Chain[T, R any](in Future[T], fn func(T) Future[R], exec Executor) Future[R] {
	var inner atomic.Pointer[Future[R]]

	out := NewSettableWithInterrupt[R](func(mayInterrupt bool) {
		if in.Cancel(mayInterrupt) {
			return
		}
		if innerFuture := inner.Load(); innerFuture != nil {
			(*innerFuture).Cancel(mayInterrupt)
		}
	})

	in.AddListener(func() {
		in.Visit(VisitorFuncs[T]{
			OnSuccess: func(v T) {
				next, err := safeChain(fn, v)
				if err != nil {
					out.SetFailure(err)
					return
				}
				inner.Store(&next)
				if out.IsDone() {
					// out was already cancelled while fn ran; propagate now.
					next.Cancel(true)
					return
				}
				next.AddListener(func() {
					next.Visit(VisitorFuncs[R]{
						OnSuccess:   func(v R) { out.SetValue(v) },
						OnFailure:   func(err error) { out.SetFailure(err) },
						OnCancelled: func() { out.SetCancelled() },
					})
				}, Direct)
			},
			OnFailure:   func(err error) { out.SetFailure(err) },
			OnCancelled: func() { out.SetCancelled() },
		})
	}, exec)

	return out
}

func safeChain[T, R any](fn func(T) Future[R], v T) (result Future[R], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return fn(v), nil
}

// Dereference flattens a future of a future into a single future of the
// inner value: the returned future completes with the outcome of in's
// value, once in itself has succeeded. Cancellation propagates through
// both levels: cancelling the result cancels in before it has resolved,
// and cancels the inner future once it has.
func Dereference[T any](in Future[Future[T]]) Future[T] {
	var inner atomic.Pointer[Future[T]]

	out := NewSettableWithInterrupt[T](func(mayInterrupt bool) {
		if in.Cancel(mayInterrupt) {
			return
		}
		if innerFuture := inner.Load(); innerFuture != nil {
			(*innerFuture).Cancel(mayInterrupt)
		}
	})

	in.AddListener(func() {
		in.Visit(VisitorFuncs[Future[T]]{
			OnSuccess: func(innerFuture Future[T]) {
				inner.Store(&innerFuture)
				if out.IsDone() {
					innerFuture.Cancel(true)
					return
				}
				innerFuture.AddListener(func() {
					innerFuture.Visit(VisitorFuncs[T]{
						OnSuccess:   func(v T) { out.SetValue(v) },
						OnFailure:   func(err error) { out.SetFailure(err) },
						OnCancelled: func() { out.SetCancelled() },
					})
				}, Direct)
			},
			OnFailure:   func(err error) { out.SetFailure(err) },
			OnCancelled: func() { out.SetCancelled() },
		})
	}, Direct)

	return out
}

// Join fans in a slice of futures of the same type into a future of the
// slice of results. It resolves to success, in input order, only once
// every input has succeeded; the first input to fail or be cancelled
// settles the result immediately with that outcome, and every other input
// is cancelled (mayInterrupt=false). Cancelling the returned future
// cancels every input.
func Join[T any](ins []Future[T]) Future[[]T] {
	n := len(ins)
	out := NewSettableWithInterrupt[[]T](func(mayInterrupt bool) {
		for _, f := range ins {
			f.Cancel(mayInterrupt)
		}
	})

	if n == 0 {
		out.SetValue(nil)
		return out
	}

	results := make([]T, n)
	var remaining atomic.Int64
	remaining.Store(int64(n))
	var resolved atomic.Bool

	for i, f := range ins {
		idx, input := i, f
		input.AddListener(func() {
			input.Visit(VisitorFuncs[T]{
				OnSuccess: func(v T) {
					results[idx] = v
					if remaining.Dec() == 0 && resolved.CompareAndSwap(false, true) {
						out.SetValue(results)
					}
				},
				OnFailure: func(err error) {
					if resolved.CompareAndSwap(false, true) {
						out.SetFailure(err)
						cancelAllExcept(ins, idx)
					}
				},
				OnCancelled: func() {
					if resolved.CompareAndSwap(false, true) {
						out.SetCancelled()
						cancelAllExcept(ins, idx)
					}
				},
			})
		}, Direct)
	}

	return out
}

func cancelAllExcept[T any](ins []Future[T], except int) {
	for i, f := range ins {
		if i != except {
			f.Cancel(false)
		}
	}
}

// Combine2 fans in two futures of (possibly different) types into one
// future produced by applying combine to both success values. It follows
// Join's first-failure/first-cancellation-wins semantics.
func Combine2[A, B, R any](a Future[A], b Future[B], combine func(A, B) (R, error)) Future[R] {
	out := NewSettableWithInterrupt[R](func(mayInterrupt bool) {
		a.Cancel(mayInterrupt)
		b.Cancel(mayInterrupt)
	})

	var aVal A
	var bVal B
	var remaining atomic.Int64
	remaining.Store(2)
	var resolved atomic.Bool

	finish := func() {
		if remaining.Dec() == 0 && resolved.CompareAndSwap(false, true) {
			result, err := safeCombine2(combine, aVal, bVal)
			if err != nil {
				out.SetFailure(err)
				return
			}
			out.SetValue(result)
		}
	}

	a.AddListener(func() {
		a.Visit(VisitorFuncs[A]{
			OnSuccess: func(v A) { aVal = v; finish() },
			OnFailure: func(err error) {
				if resolved.CompareAndSwap(false, true) {
					out.SetFailure(err)
					b.Cancel(false)
				}
			},
			OnCancelled: func() {
				if resolved.CompareAndSwap(false, true) {
					out.SetCancelled()
					b.Cancel(false)
				}
			},
		})
	}, Direct)

	b.AddListener(func() {
		b.Visit(VisitorFuncs[B]{
			OnSuccess: func(v B) { bVal = v; finish() },
			OnFailure: func(err error) {
				if resolved.CompareAndSwap(false, true) {
					out.SetFailure(err)
					a.Cancel(false)
				}
			},
			OnCancelled: func() {
				if resolved.CompareAndSwap(false, true) {
					out.SetCancelled()
					a.Cancel(false)
				}
			},
		})
	}, Direct)

	return out
}

func safeCombine2[A, B, R any](combine func(A, B) (R, error), a A, b B) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return combine(a, b)
}

// Combine3 is Combine2 for three inputs.
func Combine3[A, B, C, R any](a Future[A], b Future[B], c Future[C], combine func(A, B, C) (R, error)) Future[R] {
	out := NewSettableWithInterrupt[R](func(mayInterrupt bool) {
		a.Cancel(mayInterrupt)
		b.Cancel(mayInterrupt)
		c.Cancel(mayInterrupt)
	})

	var aVal A
	var bVal B
	var cVal C
	var remaining atomic.Int64
	remaining.Store(3)
	var resolved atomic.Bool

	cancelOthers := func(except int) {
		all := []Abortable{anyAbortable(a), anyAbortable(b), anyAbortable(c)}
		for i, f := range all {
			if i != except && f != nil {
				f.Cancel(false)
			}
		}
	}

	finish := func() {
		if remaining.Dec() == 0 && resolved.CompareAndSwap(false, true) {
			result, err := safeCombine3(combine, aVal, bVal, cVal)
			if err != nil {
				out.SetFailure(err)
				return
			}
			out.SetValue(result)
		}
	}

	a.AddListener(func() {
		a.Visit(VisitorFuncs[A]{
			OnSuccess: func(v A) { aVal = v; finish() },
			OnFailure: func(err error) {
				if resolved.CompareAndSwap(false, true) {
					out.SetFailure(err)
					cancelOthers(0)
				}
			},
			OnCancelled: func() {
				if resolved.CompareAndSwap(false, true) {
					out.SetCancelled()
					cancelOthers(0)
				}
			},
		})
	}, Direct)

	b.AddListener(func() {
		b.Visit(VisitorFuncs[B]{
			OnSuccess: func(v B) { bVal = v; finish() },
			OnFailure: func(err error) {
				if resolved.CompareAndSwap(false, true) {
					out.SetFailure(err)
					cancelOthers(1)
				}
			},
			OnCancelled: func() {
				if resolved.CompareAndSwap(false, true) {
					out.SetCancelled()
					cancelOthers(1)
				}
			},
		})
	}, Direct)

	c.AddListener(func() {
		c.Visit(VisitorFuncs[C]{
			OnSuccess: func(v C) { cVal = v; finish() },
			OnFailure: func(err error) {
				if resolved.CompareAndSwap(false, true) {
					out.SetFailure(err)
					cancelOthers(2)
				}
			},
			OnCancelled: func() {
				if resolved.CompareAndSwap(false, true) {
					out.SetCancelled()
					cancelOthers(2)
				}
			},
		})
	}, Direct)

	return out
}

func safeCombine3[A, B, C, R any](combine func(A, B, C) (R, error), a A, b B, c C) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return combine(a, b, c)
}

// anyAbortable adapts a Future to the type-erased Abortable surface used
// to cancel a heterogeneous list of combine inputs. Every *future[T]
// produced by this package satisfies Abortable already; this helper
// exists only to smuggle that fact through Combine3's type parameters.
func anyAbortable[T any](f Future[T]) Abortable {
	if a, ok := f.(Abortable); ok {
		return a
	}
	return nil
}
