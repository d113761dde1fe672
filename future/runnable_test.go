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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnableRunCompletesWithResult(t *testing.T) {
	rf, cancel := NewRunnable(context.Background(), func(ctx context.Context) (int, error) {
		return 7, nil
	})
	defer cancel()

	assert.False(t, rf.IsDone())
	rf.Run()
	assert.True(t, rf.IsSuccessful())
	assert.Equal(t, 7, rf.GetResult())
}

func TestRunnableRunPropagatesFailure(t *testing.T) {
	cause := errors.New("boom")
	rf, cancel := NewRunnable(context.Background(), func(ctx context.Context) (int, error) {
		return 0, cause
	})
	defer cancel()

	rf.Run()
	assert.True(t, rf.IsFailed())
	assert.Equal(t, cause, rf.GetFailure())
}

func TestRunnableRunOnlyExecutesOnce(t *testing.T) {
	var calls int
	rf, cancel := NewRunnable(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	})
	defer cancel()

	rf.Run()
	rf.Run()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, rf.GetResult())
}

// TestRunnableCancelInterruptsBeforeRun covers cancel(true) recording
// enough state ("Thread identity") to interrupt the thunk: cancelling
// before Run ever executes still leaves the thunk observing a done
// context.
func TestRunnableCancelInterruptsBeforeRun(t *testing.T) {
	rf, _ := NewRunnable(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	assert.True(t, rf.Cancel(true))
	assert.True(t, rf.IsCancelled())

	done := make(chan struct{})
	go func() {
		rf.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after its context was cancelled before Run started")
	}
	// The future already committed to Cancelled; Run's own completion
	// attempt loses the CAS race and is a no-op.
	assert.True(t, rf.IsCancelled())
}

// TestRunnableCancelInterruptsDuringRun covers cancel(true) interrupting
// a thunk that is already running.
func TestRunnableCancelInterruptsDuringRun(t *testing.T) {
	started := make(chan struct{})
	rf, _ := NewRunnable(context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})

	done := make(chan struct{})
	go func() {
		rf.Run()
		close(done)
	}()

	<-started
	assert.True(t, rf.Cancel(true))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not observe interruption")
	}
	require.True(t, rf.IsDone())
}
