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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"github.com/joliv/concur/internal/executor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestPipelineSerializesPerKey is scenario S4: 1000 increments to key "A"
// against a non-atomic counter, submitted from many goroutines and
// dispatched by the default goroutine-per-task executor, must still
// serialize to exactly 1000.
func TestPipelineSerializesPerKey(t *testing.T) {
	svc := NewService()
	counter := 0

	const n = 1000
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Submit(svc, context.Background(), "A", func(ctx context.Context) (int, error) {
				counter++
				return counter, nil
			})
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return svc.IsPipelineQuiescent("A") }, 5*time.Second, time.Millisecond)
	assert.Equal(t, n, counter)
}

func TestPipelineReturnsResults(t *testing.T) {
	svc := NewService()
	f := Submit(svc, context.Background(), "k", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	v, err := f.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestPipelinePropagatesTaskFailure(t *testing.T) {
	svc := NewService()
	cause := errors.New("task failed")
	f := Submit(svc, context.Background(), "k", func(ctx context.Context) (int, error) {
		return 0, cause
	})
	_, err := f.Result(context.Background())
	assert.Equal(t, cause, err)
}

func TestDistinctKeysRunConcurrently(t *testing.T) {
	svc := NewService()
	release := make(chan struct{})
	started := make(chan struct{}, 2)

	Submit(svc, context.Background(), "A", func(ctx context.Context) (int, error) {
		started <- struct{}{}
		<-release
		return 0, nil
	})
	Submit(svc, context.Background(), "B", func(ctx context.Context) (int, error) {
		started <- struct{}{}
		<-release
		return 0, nil
	})

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("tasks on distinct keys did not run concurrently")
		}
	}
	close(release)
}

func TestAwaitQuiescence(t *testing.T) {
	svc := NewService()
	release := make(chan struct{})
	Submit(svc, context.Background(), "k", func(ctx context.Context) (int, error) {
		<-release
		return 0, nil
	})

	assert.False(t, svc.IsQuiescent())
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.True(t, svc.AwaitQuiescence(ctx))
	assert.True(t, svc.IsQuiescent())
}

func TestAbortPipelineCancelsQueuedAndInterruptsCurrent(t *testing.T) {
	svc := NewService()
	started := make(chan struct{})
	blocked := make(chan struct{})

	current := Submit(svc, context.Background(), "k", func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		close(blocked)
		return 0, ctx.Err()
	})
	<-started

	queued := Submit(svc, context.Background(), "k", func(ctx context.Context) (int, error) {
		return 1, nil
	})

	aborted := svc.AbortPipeline("k")
	assert.Len(t, aborted, 2)

	<-blocked
	assert.True(t, current.Await(context.Background()))
	assert.True(t, current.IsCancelled())

	assert.True(t, queued.Await(context.Background()))
	assert.True(t, queued.IsCancelled())
}

func TestSinglePipelineExecutorServiceShutdownNowOnlyOwnTasks(t *testing.T) {
	svc := NewService()
	sp := svc.NewExecutorServiceForPipeline("k")

	release := make(chan struct{})
	Submit(svc, context.Background(), "k", func(ctx context.Context) (int, error) {
		<-release
		return 0, nil
	})

	ownQueued := SubmitToPipeline[int](sp, context.Background(), func(ctx context.Context) (int, error) {
		return 2, nil
	})
	otherQueued := Submit(svc, context.Background(), "k", func(ctx context.Context) (int, error) {
		return 3, nil
	})

	aborted := sp.ShutdownNow()
	assert.Len(t, aborted, 1)

	close(release)
	assert.True(t, ownQueued.Await(context.Background()))
	assert.True(t, ownQueued.IsCancelled())

	v, err := otherQueued.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

type rejectingExecutor struct{}

func (rejectingExecutor) Execute(fn func()) error { return executor.ErrRejected }

func TestRejectionFailsTask(t *testing.T) {
	svc := NewService(WithExecutor(rejectingExecutor{}))
	f := Submit(svc, context.Background(), "k", func(ctx context.Context) (int, error) {
		return 1, nil
	})
	_, err := f.Result(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
}

type pipelineSuite struct {
	suite.Suite
	svc *Service
}

func (s *pipelineSuite) SetupTest() {
	s.svc = NewService()
}

func (s *pipelineSuite) TestExecuteFireAndForget() {
	done := make(chan struct{})
	Execute(s.svc, context.Background(), "fire", func(ctx context.Context) error {
		close(done)
		return nil
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("Execute never ran the task")
	}
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(pipelineSuite))
}
