package player

import (
	"errors"
	"strings"
	"sync"
)

var (
	// ErrQueueFull is returned when the queue is at capacity.
	ErrQueueFull = errors.New("queue is full")
	// ErrUserLimit is returned when the user has too many queued requests.
	ErrUserLimit = errors.New("too many songs queued by user")
	// ErrDuplicate is returned when the track is already queued.
	ErrDuplicate = errors.New("song already queued")
)

// Queue holds song requests in arrival order.
type Queue struct {
	maxLen     int
	maxPerUser int

	mu    sync.Mutex
	items []Item
}

// NewQueue creates a queue with the given limits.
func NewQueue(maxLen, maxPerUser int) *Queue {
	return &Queue{maxLen: maxLen, maxPerUser: maxPerUser}
}

// Push appends item, enforcing the limits.
func (q *Queue) Push(item Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.maxLen {
		return ErrQueueFull
	}
	perUser := 0
	for _, it := range q.items {
		if it.Track.ID == item.Track.ID {
			return ErrDuplicate
		}
		if strings.EqualFold(it.User, item.User) {
			perUser++
		}
	}
	if perUser >= q.maxPerUser {
		return ErrUserLimit
	}
	q.items = append(q.items, item)
	return nil
}

// Pop removes and returns the head, if any.
func (q *Queue) Pop() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Item{}, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

// List returns a copy of the queue.
func (q *Queue) List() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Item(nil), q.items...)
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
