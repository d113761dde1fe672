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

import "sync"

// taskQueue is the FIFO of tasks waiting behind a pipeline's current
// task. It exposes exactly the operations onTaskDone, drainOnRejection,
// and abort need against *task — dequeue the head, drain everything, or
// pull out whatever matches a filter — rather than a general-purpose
// indexed slice.
type taskQueue struct {
	mu    sync.RWMutex
	tasks []*task
}

func newTaskQueue() *taskQueue {
	return &taskQueue{}
}

// push appends t to the tail of the queue.
func (q *taskQueue) push(t *task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
}

// popFront removes and returns the head task, reporting whether the
// queue was non-empty.
func (q *taskQueue) popFront() (*task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t, true
}

// drain empties the queue and returns everything that was in it, head
// first.
func (q *taskQueue) drain() []*task {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.tasks
	q.tasks = nil
	return items
}

// removeMatching drops every queued task for which match returns true,
// leaving the rest in place, and returns the removed tasks in their
// original order.
func (q *taskQueue) removeMatching(match func(*task) bool) []*task {
	q.mu.Lock()
	defer q.mu.Unlock()
	var removed, kept []*task
	for _, t := range q.tasks {
		if match(t) {
			removed = append(removed, t)
		} else {
			kept = append(kept, t)
		}
	}
	q.tasks = kept
	return removed
}
