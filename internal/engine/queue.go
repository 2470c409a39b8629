package engine

import (
	"sync"

	"github.com/OrionReed/ggraph/internal/ir"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeChange is an external write observed through the change hook.
	EventTypeChange EventType = iota + 1
	// EventTypeGenerate is a request to start text generation for a node.
	EventTypeGenerate
	// EventTypeStream is a partial or terminal result of a generation stream.
	EventTypeStream
)

// String returns a short name for logging.
func (t EventType) String() string {
	switch t {
	case EventTypeChange:
		return "change"
	case EventTypeGenerate:
		return "generate"
	case EventTypeStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Event is one unit of work for the Run loop. Exactly one payload is set,
// matching Type.
type Event struct {
	Type     EventType
	Change   *Change
	Generate *GenerateRequest
	Stream   *StreamUpdate
}

// Change carries the node snapshots before and after a host write.
type Change struct {
	Prev ir.Node
	Next ir.Node
}

// GenerateRequest asks for a new generation of a generator node.
type GenerateRequest struct {
	NodeID string
}

// StreamUpdate is the cumulative text of one generation so far.
type StreamUpdate struct {
	NodeID     string
	Generation int64
	Text       string
	Done       bool
	// Err is set on an implicit terminal produced by a failed stream.
	Err error
}

// eventQueue is a thread-safe unbounded FIFO queue.
//
// Host hooks and stream goroutines enqueue from any goroutine while the Run
// loop dequeues. The signal channel lets Run wait for work and for context
// cancellation in one select.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	// Clear the slot so the payload pointers can be collected.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available. It is
// closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops accepting events and wakes any waiter.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
