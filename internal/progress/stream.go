// Package progress implements the bounded, drop-oldest live event stream
// the Experiment Controller publishes step/complete/error events to.
package progress

import (
	"sync"
	"sync/atomic"

	"github.com/GoSim-25-26J-441/optengine/internal/store"
	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
)

// EventType names the three wire event kinds.
type EventType string

const (
	EventStep     EventType = "step"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one message on the stream. Fields are populated according to
// Type; unused fields are left at their zero value.
type Event struct {
	Type EventType

	// step
	Step           int64
	Parameters     paramspace.Vector
	KPIs           map[string]float64
	ObjectiveValue float64
	ElapsedMs      int64
	Status         store.Status
	Error          string

	// complete
	BestParameters paramspace.Vector
	BestKPIs       map[string]float64
	Iterations     int
	ElapsedSeconds float64
	Cancelled      bool

	// error
	Message string
}

// DefaultBufferSize is the channel capacity used when Stream isn't given an
// explicit one.
const DefaultBufferSize = 256

// Stream is a bounded channel of Events with drop-oldest back-pressure: if
// the buffer is full and no consumer is draining it, the oldest queued
// event is evicted to make room and Dropped is incremented. The stream
// closes itself on the first complete or error event and rejects anything
// published after.
type Stream struct {
	mu      sync.Mutex
	events  chan Event
	closed  bool
	dropped uint64
}

// New returns a Stream with the given buffer size (DefaultBufferSize if <=0).
func New(bufferSize int) *Stream {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Stream{events: make(chan Event, bufferSize)}
}

// Events returns the channel consumers range over.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Dropped returns the number of events evicted for lack of buffer space.
func (s *Stream) Dropped() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// Publish enqueues an event, dropping the oldest queued event first if the
// buffer is full. No-op once the stream is closed. Closes the stream after
// a complete or error event.
func (s *Stream) Publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	for {
		select {
		case s.events <- ev:
		default:
			select {
			case <-s.events:
				atomic.AddUint64(&s.dropped, 1)
			default:
				// buffer freed between the two selects; retry the send.
			}
			continue
		}
		break
	}

	if ev.Type == EventComplete || ev.Type == EventError {
		s.closeLocked()
	}
}

// Close closes the stream, if not already closed. Safe to call multiple
// times and concurrently with Publish.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Stream) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}
