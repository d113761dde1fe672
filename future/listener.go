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

// listenerNode is a single entry in the lock-free listener list. fn has
// already been wrapped to dispatch on its executor and swallow whatever
// that dispatch rejects.
type listenerNode struct {
	next *listenerNode
	fn   func()
}

// sealedMarker is a unique sentinel stored as the list head once a future
// has become terminal. Identity (pointer equality), not nil-ness, is what
// marks the list sealed, so a genuinely empty-but-open list (head == nil)
// is never confused with a sealed one.
var sealedMarker = &listenerNode{}

// listenerList is the lock-free singly linked listener set described in
// the package's state-machine design: a CAS-able head reference that is
// pushed onto (in reverse registration order) while open, and swapped for
// sealedMarker exactly once, atomically, when the owning future commits to
// a terminal state.
type listenerList struct {
	head atomic.Pointer[listenerNode]
}

// add pushes fn onto the list and reports whether it was queued. It
// returns false when the list is already sealed; the caller is then
// responsible for invoking fn itself (immediate delivery).
func (l *listenerList) add(fn func()) bool {
	node := &listenerNode{fn: fn}
	for {
		head := l.head.Load()
		if head == sealedMarker {
			return false
		}
		node.next = head
		if l.head.CompareAndSwap(head, node) {
			return true
		}
	}
}

// seal marks the list closed and returns every previously registered
// listener in original registration order. It is safe to call at most
// once per future; the terminal-state transition guarantees that.
func (l *listenerList) seal() []func() {
	var head *listenerNode
	for {
		head = l.head.Load()
		if head == sealedMarker {
			return nil
		}
		if l.head.CompareAndSwap(head, sealedMarker) {
			break
		}
	}

	// head was built by pushing onto the front, so it holds registrations
	// in reverse order; walk it once to collect, then reverse the slice.
	var fns []func()
	for n := head; n != nil; n = n.next {
		fns = append(fns, n.fn)
	}
	for i, j := 0, len(fns)-1; i < j; i, j = i+1, j-1 {
		fns[i], fns[j] = fns[j], fns[i]
	}
	return fns
}

// preseal marks a freshly constructed list as already sealed, with no
// listeners to deliver. Used by the immediate-value constructors, whose
// futures are terminal from birth.
func (l *listenerList) preseal() {
	l.head.Store(sealedMarker)
}
