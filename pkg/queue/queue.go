package queue

import (
	"sync"
	"time"
)

// Item is a unit of work waiting for its next attempt.
type Item[T any] struct {
	ID         string
	Payload    T
	RetryAt    time.Time
	RetryCount int
	MaxRetries int
}

// Exhausted reports whether the item has used up its attempts.
func (i *Item[T]) Exhausted() bool {
	return i.RetryCount >= i.MaxRetries
}

// Queue holds items until they are due. It is safe for concurrent use.
type Queue[T any] struct {
	items []*Item[T]
	mu    sync.Mutex
	now   func() time.Time
}

func New[T any]() *Queue[T] {
	return NewWithClock[T](time.Now)
}

// NewWithClock returns a queue that decides due-ness with now.
func NewWithClock[T any](now func() time.Time) *Queue[T] {
	return &Queue[T]{
		items: make([]*Item[T], 0),
		now:   now,
	}
}

func (q *Queue[T]) Enqueue(item *Item[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

// DrainDue removes and returns every due item in insertion order.
func (q *Queue[T]) DrainDue() []*Item[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	due := make([]*Item[T], 0)
	kept := q.items[:0]
	for _, item := range q.items {
		if item.RetryAt.After(now) {
			kept = append(kept, item)
		} else {
			due = append(due, item)
		}
	}
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = nil
	}
	q.items = kept
	return due
}

func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
