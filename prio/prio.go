// Package prio implements a fixed-capacity priority queue over an arena of
// slots. Lower priority values are served first, equal priorities in
// insertion order.
//
// Entries are referred to by the Handle of their slot, never by address, so
// the queue can store references to objects it doesn't own in a parallel
// array indexed by Handle.
package prio

import (
	"container/heap"
	"errors"

	"golang.org/x/exp/constraints"
)

var ErrFull = errors.New("queue full")

// Handle identifies a slot of the arena. Handles range from 0 to Cap()-1 and
// are reused after the entry left the queue.
type Handle int32

type node[P constraints.Integer] struct {
	priority P
	seq      uint64
	pos      int
	used     bool
}

type Queue[P constraints.Integer] struct {
	nodes []node[P]
	heap  []Handle
	free  []Handle
	seq   uint64
}

// New returns an empty queue with room for capacity entries. No allocation
// happens after New.
func New[P constraints.Integer](capacity int) *Queue[P] {
	q := &Queue[P]{
		nodes: make([]node[P], capacity),
		heap:  make([]Handle, 0, capacity),
		free:  make([]Handle, capacity),
	}
	for i := range q.free {
		q.free[i] = Handle(capacity - 1 - i)
	}
	return q
}

func (q *Queue[P]) Len() int { return len(q.heap) }
func (q *Queue[P]) Cap() int { return len(q.nodes) }

// Push inserts an entry with priority p behind all entries of the same
// priority and returns its handle.
func (q *Queue[P]) Push(p P) (Handle, error) {
	if len(q.free) == 0 {
		return -1, ErrFull
	}
	h := q.free[len(q.free)-1]
	q.free = q.free[:len(q.free)-1]

	q.seq++
	q.nodes[h] = node[P]{priority: p, seq: q.seq, used: true}
	heap.Push(order[P]{q}, h)
	return h, nil
}

// Peek returns the handle of the entry Pop would remove.
func (q *Queue[P]) Peek() (Handle, bool) {
	if len(q.heap) == 0 {
		return -1, false
	}
	return q.heap[0], true
}

// Pop removes the entry with the lowest priority value, the earliest pushed
// among equals.
func (q *Queue[P]) Pop() (Handle, bool) {
	if len(q.heap) == 0 {
		return -1, false
	}
	h := heap.Pop(order[P]{q}).(Handle)
	q.release(h)
	return h, true
}

// Remove takes the entry h out of the queue. It reports false if h isn't
// queued.
func (q *Queue[P]) Remove(h Handle) bool {
	if !q.Queued(h) {
		return false
	}
	heap.Remove(order[P]{q}, q.nodes[h].pos)
	q.release(h)
	return true
}

func (q *Queue[P]) Queued(h Handle) bool {
	return h >= 0 && int(h) < len(q.nodes) && q.nodes[h].used
}

// Priority returns the priority h was pushed with.
func (q *Queue[P]) Priority(h Handle) P {
	return q.nodes[h].priority
}

func (q *Queue[P]) release(h Handle) {
	q.nodes[h] = node[P]{}
	q.free = append(q.free, h)
}

// order implements heap.Interface on the queue's heap array.
type order[P constraints.Integer] struct{ q *Queue[P] }

func (o order[P]) Len() int { return len(o.q.heap) }

func (o order[P]) Less(i, j int) bool {
	a, b := &o.q.nodes[o.q.heap[i]], &o.q.nodes[o.q.heap[j]]
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}

func (o order[P]) Swap(i, j int) {
	h := o.q.heap
	h[i], h[j] = h[j], h[i]
	o.q.nodes[h[i]].pos = i
	o.q.nodes[h[j]].pos = j
}

func (o order[P]) Push(x any) {
	h := x.(Handle)
	o.q.nodes[h].pos = len(o.q.heap)
	o.q.heap = append(o.q.heap, h)
}

func (o order[P]) Pop() any {
	n := len(o.q.heap) - 1
	h := o.q.heap[n]
	o.q.heap = o.q.heap[:n]
	return h
}
