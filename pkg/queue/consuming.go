package queue

import (
	"sync"
)

// Token identifies one element added to a Consuming queue.
// Tokens are never reused within a queue, so a stale token can not match a later element.
type Token uint64

func New[E any]() *Consuming[E] {
	return &Consuming[E]{
		locker: sync.Mutex{},
		nds: sync.Pool{
			New: func() interface{} {
				return &node[E]{}
			},
		},
	}
}

type node[E any] struct {
	entry E
	token Token
	next  *node[E]
}

// Consuming
// FIFO queue that hands out at most one element at a time.
//
// Consume marks the head as consuming; the holder must settle it with Consumed
// (retire) or Replay (put back at the head, state untouched) before the next
// Consume succeeds.
type Consuming[E any] struct {
	locker    sync.Mutex
	head      *node[E]
	tail      *node[E]
	len       int
	ver       Token
	consuming *node[E]
	nds       sync.Pool
}

func (q *Consuming[E]) acquireNode() *node[E] {
	return q.nds.Get().(*node[E])
}

func (q *Consuming[E]) releaseNode(n *node[E]) {
	var zero E
	n.entry = zero
	n.token = 0
	n.next = nil
	q.nds.Put(n)
}

// Add appends entry to the tail and returns its token.
func (q *Consuming[E]) Add(entry E) (token Token) {
	n := q.acquireNode()
	q.locker.Lock()
	q.ver++
	token = q.ver
	n.entry = entry
	n.token = token
	if q.tail == nil {
		q.head = n
	} else {
		q.tail.next = n
	}
	q.tail = n
	q.len++
	q.locker.Unlock()
	return
}

// Consume returns the head when nothing is consuming, ok is false when the queue is
// empty or busy.
func (q *Consuming[E]) Consume() (entry E, token Token, ok bool) {
	q.locker.Lock()
	if q.consuming != nil || q.head == nil {
		q.locker.Unlock()
		return
	}
	n := q.head
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	n.next = nil
	q.len--
	q.consuming = n
	entry, token, ok = n.entry, n.token, true
	q.locker.Unlock()
	return
}

// Consumed retires the consuming element when token matches it.
func (q *Consuming[E]) Consumed(token Token) (ok bool) {
	q.locker.Lock()
	n := q.consuming
	if n != nil && n.token == token {
		q.consuming = nil
		ok = true
	}
	q.locker.Unlock()
	if ok {
		q.releaseNode(n)
	}
	return
}

// Replay puts the consuming element back at the head when token matches it.
func (q *Consuming[E]) Replay(token Token) (ok bool) {
	q.locker.Lock()
	n := q.consuming
	if n != nil && n.token == token {
		q.consuming = nil
		n.next = q.head
		q.head = n
		if q.tail == nil {
			q.tail = n
		}
		q.len++
		ok = true
	}
	q.locker.Unlock()
	return
}

// DrainAll removes and returns every waiting element in FIFO order.
// The consuming element, if any, stays with its holder.
func (q *Consuming[E]) DrainAll() (entries []E) {
	q.locker.Lock()
	if q.len == 0 {
		q.locker.Unlock()
		return
	}
	entries = make([]E, 0, q.len)
	nd := q.head
	q.head = nil
	q.tail = nil
	q.len = 0
	q.locker.Unlock()
	for nd != nil {
		next := nd.next
		entries = append(entries, nd.entry)
		q.releaseNode(nd)
		nd = next
	}
	return
}

// Len returns the number of waiting elements, the consuming one excluded.
func (q *Consuming[E]) Len() (n int) {
	q.locker.Lock()
	n = q.len
	q.locker.Unlock()
	return
}

func (q *Consuming[E]) Busy() (ok bool) {
	q.locker.Lock()
	ok = q.consuming != nil
	q.locker.Unlock()
	return
}
