package dsa

import (
	"sync"
	"time"
)

// ─── Deadline Queue (Min-Heap) ──────────────────────────────────────────────
// Binary min-heap ordered by due time, used to fire one-shot delayed work.
//
// Operations:
//   Push:    O(log n) — sift up
//   Pop:     O(log n) — sift down (extract-min)
//   PopDue:  O(k log n) for k due items
//   Peek:    O(1)
//   Len:     O(1)
//
// Items with equal due times leave in insertion order.

// HeapItem is an element in the deadline queue.
type HeapItem struct {
	Key   string    // Unique identifier (e.g. action ID)
	DueAt time.Time // When the item becomes ready
	Value any       // Payload (caller stores whatever they need)

	seq uint64 // insertion order, for FIFO tie-break
}

// DeadlineQueue is a thread-safe min-heap keyed by due time.
type DeadlineQueue struct {
	mu   sync.Mutex
	heap []HeapItem
	seq  uint64
}

// NewDeadlineQueue creates an empty queue.
func NewDeadlineQueue() *DeadlineQueue {
	return &DeadlineQueue{}
}

// Push adds an item to the queue. O(log n).
func (q *DeadlineQueue) Push(item HeapItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	item.seq = q.seq
	q.heap = append(q.heap, item)
	q.siftUp(len(q.heap) - 1)
}

// Pop removes and returns the earliest item. O(log n).
// Returns the item and true, or zero-value and false if empty.
func (q *DeadlineQueue) Pop() (HeapItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pop()
}

// PopDue removes and returns every item with DueAt <= now, earliest first.
func (q *DeadlineQueue) PopDue(now time.Time) []HeapItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []HeapItem
	for len(q.heap) > 0 && !q.heap[0].DueAt.After(now) {
		item, _ := q.pop()
		out = append(out, item)
	}
	return out
}

// Peek returns the earliest item without removing it. O(1).
func (q *DeadlineQueue) Peek() (HeapItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return HeapItem{}, false
	}
	return q.heap[0], true
}

// Len returns the number of items in the queue.
func (q *DeadlineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Drain removes and returns all remaining items, earliest first.
func (q *DeadlineQueue) Drain() []HeapItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]HeapItem, 0, len(q.heap))
	for len(q.heap) > 0 {
		item, _ := q.pop()
		out = append(out, item)
	}
	return out
}

// pop requires q.mu held.
func (q *DeadlineQueue) pop() (HeapItem, bool) {
	if len(q.heap) == 0 {
		return HeapItem{}, false
	}

	top := q.heap[0]
	last := len(q.heap) - 1
	q.heap[0] = q.heap[last]
	q.heap = q.heap[:last]
	if len(q.heap) > 0 {
		q.siftDown(0)
	}
	return top, true
}

// less returns true if item i should be dequeued before item j.
func (q *DeadlineQueue) less(i, j int) bool {
	a, b := q.heap[i], q.heap[j]
	if !a.DueAt.Equal(b.DueAt) {
		return a.DueAt.Before(b.DueAt)
	}
	return a.seq < b.seq
}

// siftUp restores heap property after insertion.
func (q *DeadlineQueue) siftUp(idx int) {
	for idx > 0 {
		parent := (idx - 1) / 2
		if q.less(idx, parent) {
			q.heap[idx], q.heap[parent] = q.heap[parent], q.heap[idx]
			idx = parent
		} else {
			break
		}
	}
}

// siftDown restores heap property after extraction.
func (q *DeadlineQueue) siftDown(idx int) {
	n := len(q.heap)
	for {
		smallest := idx
		left := 2*idx + 1
		right := 2*idx + 2

		if left < n && q.less(left, smallest) {
			smallest = left
		}
		if right < n && q.less(right, smallest) {
			smallest = right
		}
		if smallest == idx {
			break
		}
		q.heap[idx], q.heap[smallest] = q.heap[smallest], q.heap[idx]
		idx = smallest
	}
}
