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

import "fmt"

// IllegalStateError is raised (by panic) when an operation with a
// terminal-state precondition is called while that precondition does not
// hold, e.g. GetResult on a future that has not succeeded. These are
// programming errors: the caller is expected to have checked IsDone /
// IsSuccessful / IsFailed first, so the primitive fails fast instead of
// returning a zero value that would silently mask the bug.
type IllegalStateError struct {
	Op     string
	Reason string
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("future: illegal state for %s: %s", e.Op, e.Reason)
}

// CancellationError is the error Result returns when a future completed
// by cancellation rather than by success or an ordinary failure.
// GetFailure does not return it: on a cancelled future GetFailure panics
// with *IllegalStateError.
type CancellationError struct{}

func (CancellationError) Error() string { return "future: cancelled" }

// ErrCancelled is the sentinel CancellationError value; compare with
// errors.Is.
var ErrCancelled error = CancellationError{}

// PanicError wraps a value recovered from a panicking combinator
// callback (Transform's fn, Chain's fn, a combine function) so it
// surfaces as an ordinary failure instead of crashing the goroutine that
// happened to be completing the future.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("future: panic in callback: %v", e.Value)
}

func panicError(v any) error {
	return &PanicError{Value: v}
}
