package kernel

// threadQueue is an intrusive doubly linked list of threads. Unless fifo is
// set it is kept in non-increasing priority order, FIFO among equals.
type threadQueue struct {
	first, last *Thread
	fifo        bool
}

func (q *threadQueue) empty() bool { return q.first == nil }

func (q *threadQueue) len() int {
	n := 0
	for t := q.first; t != nil; t = t.next {
		n++
	}
	return n
}

// insert places t behind every thread of equal or higher priority.
func (q *threadQueue) insert(t *Thread) {
	if q.fifo {
		q.insertBefore(t, nil)
		return
	}
	cur := q.first
	for cur != nil && cur.prio >= t.prio {
		cur = cur.next
	}
	q.insertBefore(t, cur)
}

// insertAhead places t in front of every thread of equal or lower priority.
func (q *threadQueue) insertAhead(t *Thread) {
	cur := q.first
	for cur != nil && cur.prio > t.prio {
		cur = cur.next
	}
	q.insertBefore(t, cur)
}

// insertBefore links t in front of cur, or at the tail when cur is nil.
func (q *threadQueue) insertBefore(t, cur *Thread) {
	t.queue = q
	t.next = cur
	if cur == nil {
		t.prev = q.last
		if q.last != nil {
			q.last.next = t
		} else {
			q.first = t
		}
		q.last = t
		return
	}
	t.prev = cur.prev
	if cur.prev != nil {
		cur.prev.next = t
	} else {
		q.first = t
	}
	cur.prev = t
}

func (q *threadQueue) remove(t *Thread) {
	if t.prev != nil {
		t.prev.next = t.next
	} else {
		q.first = t.next
	}
	if t.next != nil {
		t.next.prev = t.prev
	} else {
		q.last = t.prev
	}
	t.next, t.prev, t.queue = nil, nil, nil
}

func (q *threadQueue) popFront() *Thread {
	t := q.first
	if t != nil {
		q.remove(t)
	}
	return t
}

// headPrio is the priority of the first thread, PrioNone when empty.
func (q *threadQueue) headPrio() Priority {
	if q.first == nil {
		return PrioNone
	}
	return q.first.prio
}
