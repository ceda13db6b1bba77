package engine

import (
	"sync"

	"github.com/pez-globo/ventserver/internal/backend"
	"github.com/pez-globo/ventserver/internal/server"
)

// EventType distinguishes queued work.
type EventType int

const (
	// EventTypeReceive carries a raw transport receive event.
	EventTypeReceive EventType = iota + 1
	// EventTypeAnnounce carries an announcement for every party.
	EventTypeAnnounce
)

// Event is one unit of queued work.
type Event struct {
	Type         EventType
	Receive      *server.ReceiveEvent
	Announcement *backend.Announcement
}

// eventQueue is a bounded FIFO shared between submitting goroutines and
// the Run loop.
//
// The signal channel coalesces wake-ups (buffer of one) and is closed by
// Close so a waiting Run loop observes shutdown.
type eventQueue struct {
	mu       sync.Mutex
	events   []Event
	capacity int
	closed   bool
	signal   chan struct{}
}

func newEventQueue(capacity int) *eventQueue {
	return &eventQueue{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue appends e. It returns false if the queue is full or closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.events) >= q.capacity {
		return false
	}
	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]
	// Clear the slot so the payload can be collected.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns the wake-up channel. It is closed once the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close rejects further events and wakes the Run loop.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
