package batchpool

// node is an element of queue.
type node[T any] struct {
	val  T
	next *node[T]
}

// queue is a singly linked FIFO with a sentinel head. It is not safe for
// concurrent use; the owning Pool guards it with its mutex.
type queue[T any] struct {
	head *node[T] // sentinel
	tail *node[T]
	size int
}

func newQueue[T any]() *queue[T] {
	s := &node[T]{}
	return &queue[T]{head: s, tail: s}
}

func (q *queue[T]) push(v T) {
	n := &node[T]{val: v}
	q.tail.next = n
	q.tail = n
	q.size++
}

// popN removes up to n values from the head, preserving order.
func (q *queue[T]) popN(n int) []T {
	if n > q.size {
		n = q.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, 0, n)
	for range n {
		first := q.head.next
		q.head.next = first.next
		out = append(out, first.val)
	}
	if q.head.next == nil {
		q.tail = q.head
	}
	q.size -= n
	return out
}

func (q *queue[T]) peek() (T, bool) {
	if q.head.next == nil {
		var zero T
		return zero, false
	}
	return q.head.next.val, true
}

func (q *queue[T]) len() int {
	return q.size
}
