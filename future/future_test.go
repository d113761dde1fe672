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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewSettableSuccess(t *testing.T) {
	f := NewSettable[int]()
	assert.False(t, f.IsDone())
	assert.True(t, f.SetValue(42))
	assert.True(t, f.IsDone())
	assert.True(t, f.IsSuccessful())
	assert.Equal(t, 42, f.GetResult())
}

func TestSetValueExactlyOnce(t *testing.T) {
	f := NewSettable[int]()
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		v := i
		go func() {
			defer wg.Done()
			if f.SetValue(v) {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins)
	assert.True(t, f.IsSuccessful())
}

func TestSetFailure(t *testing.T) {
	f := NewSettable[int]()
	cause := errors.New("boom")
	assert.True(t, f.SetFailure(cause))
	assert.True(t, f.IsFailed())
	assert.Equal(t, cause, f.GetFailure())
	assert.False(t, f.SetValue(1))
}

func TestCancelInterruptAtomicity(t *testing.T) {
	var interrupted atomic.Bool
	var observedDoneDuringInterrupt atomic.Bool
	started := make(chan struct{})
	proceed := make(chan struct{})

	f := NewSettableWithInterrupt[int](func(mayInterrupt bool) {
		interrupted.Store(true)
		close(started)
		<-proceed
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-started
		if f.IsDone() {
			observedDoneDuringInterrupt.Store(true)
		}
		close(proceed)
	}()

	assert.True(t, f.Cancel(true))
	wg.Wait()

	assert.True(t, interrupted.Load())
	assert.False(t, observedDoneDuringInterrupt.Load())
	assert.True(t, f.IsCancelled())
}

func TestCancelLoserBlocksUntilWinnerDone(t *testing.T) {
	release := make(chan struct{})
	winnerDone := make(chan struct{})
	f := NewSettableWithInterrupt[int](func(bool) {
		<-release
		close(winnerDone)
	})

	var setterReturned atomic.Bool
	go f.Cancel(true)
	time.Sleep(20 * time.Millisecond)

	go func() {
		// Cancel(true) already owns the transition, so this call loses the
		// race; SetValue must not return until Cancel's interrupt hook
		// (which blocks on release) has completed.
		f.SetValue(7)
		setterReturned.Store(true)
	}()
	time.Sleep(20 * time.Millisecond)

	assert.False(t, setterReturned.Load())
	close(release)
	<-winnerDone

	require.Eventually(t, setterReturned.Load, time.Second, time.Millisecond)
}

func TestAddListenerAfterCompletion(t *testing.T) {
	f := NewSettable[int]()
	f.SetValue(5)

	called := make(chan struct{})
	f.AddListener(func() { close(called) }, Direct)

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("listener was not invoked")
	}
}

func TestAddListenerExactlyOnceDelivery(t *testing.T) {
	f := NewSettable[int]()
	var count int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.AddListener(func() { atomic.AddInt32(&count, 1) }, Goroutine)
		}()
	}
	f.SetValue(1)
	wg.Wait()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&count) == 20 }, time.Second, time.Millisecond)
}

func TestCompletedConstructors(t *testing.T) {
	s := Completed(10)
	assert.True(t, s.IsSuccessful())
	assert.Equal(t, 10, s.GetResult())

	cause := errors.New("bad")
	f := Failed[int](cause)
	assert.True(t, f.IsFailed())
	assert.Equal(t, cause, f.GetFailure())

	c := CancelledFuture[int]()
	assert.True(t, c.IsCancelled())
}

func TestResultAndAwait(t *testing.T) {
	f := NewSettable[string]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		f.SetValue("hi")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := f.Result(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hi", v)
}

func TestResultContextDeadline(t *testing.T) {
	f := NewSettable[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Result(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResultCancelled(t *testing.T) {
	f := NewSettable[int]()
	f.SetCancelled()
	_, err := f.Result(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestGetResultPanicsWhenNotSuccessful(t *testing.T) {
	f := NewSettable[int]()
	f.SetFailure(errors.New("x"))
	assert.Panics(t, func() { f.GetResult() })
}

func TestNewAsync(t *testing.T) {
	f := New(func() (int, error) { return 3, nil })
	v, err := f.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestNewAsyncDirectExecutor(t *testing.T) {
	ran := false
	f := New(func() (int, error) {
		ran = true
		return 1, nil
	}, WithExecutor(Direct))
	assert.True(t, ran)
	v, err := f.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}
