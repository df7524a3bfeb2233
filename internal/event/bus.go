package event

import (
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Type identifies a category of event.
type Type string

// Known event types. The review.* types are the ones a human needs to look
// at; the rest are progress notifications.
const (
	StableIDCollision Type = "review.stable_id_collision"
	WrongMatch        Type = "review.wrong_match"
	ImplausibleYear   Type = "review.implausible_year"
	Excluded          Type = "review.excluded"
	CandidateAccepted Type = "discovery.accepted"
	CandidateRejected Type = "discovery.rejected"
	VerifyCompleted   Type = "verify.completed"
	RunCompleted      Type = "run.completed"
)

// ReviewTypes lists the event types that belong in the review log.
var ReviewTypes = []Type{StableIDCollision, WrongMatch, ImplausibleYear, Excluded, CandidateRejected}

// Review reports whether events of type t belong in the review log.
func (t Type) Review() bool { return slices.Contains(ReviewTypes, t) }

// Event represents something that happened during a run.
type Event struct {
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Artist    string         `json:"artist,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Handler is a function that processes an event.
type Handler func(Event)

// Publisher is the write side of the bus. Components depend on this rather
// than on *Bus so tests can record events directly.
type Publisher interface {
	Publish(Event)
}

// Bus is an in-process event bus backed by a buffered channel.
type Bus struct {
	ch       chan Event
	mu       sync.RWMutex
	subs     map[Type][]Handler
	logger   *slog.Logger
	done     chan struct{}
	finished chan struct{}
	running  bool
	stopped  bool
}

// NewBus creates a new event bus with the given buffer size.
func NewBus(logger *slog.Logger, bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Bus{
		ch:       make(chan Event, bufSize),
		subs:     make(map[Type][]Handler),
		logger:   logger,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Subscribe registers a handler for the given event types.
func (b *Bus) Subscribe(h Handler, types ...Type) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range types {
		b.subs[t] = append(b.subs[t], h)
	}
}

// Publish sends an event to the bus. Progress events are dropped with a
// warning when the buffer is full. Review events wait for room instead, and
// once the bus has stopped they are dispatched on the caller's goroutine.
// Publishing on a nil bus is a no-op.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if !e.Type.Review() {
		select {
		case b.ch <- e:
		default:
			b.logger.Warn("event bus full, dropping event", "type", string(e.Type), "artist", e.Artist)
		}
		return
	}
	select {
	case <-b.done:
		b.dispatch(e)
		return
	default:
	}
	select {
	case b.ch <- e:
	case <-b.done:
		b.dispatch(e)
	}
}

// Start begins draining the channel and dispatching events to subscribers.
// Call this in a goroutine. It blocks until Stop is called.
func (b *Bus) Start() {
	b.mu.Lock()
	b.running = true
	b.mu.Unlock()
	defer close(b.finished)

	for {
		select {
		case e := <-b.ch:
			b.dispatch(e)
		case <-b.done:
			// Drain remaining events
			for {
				select {
				case e := <-b.ch:
					b.dispatch(e)
				default:
					return
				}
			}
		}
	}
}

// Stop signals the bus to stop processing events and, if Start is running,
// waits until the buffer has been drained.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	running := b.running
	close(b.done)
	b.mu.Unlock()

	if running {
		<-b.finished
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	handlers := b.subs[e.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked", "type", string(e.Type), "panic", r)
				}
			}()
			h(e)
		}()
	}
}
