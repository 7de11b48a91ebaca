package events

import (
	"context"
	"errors"
	"sync"
)

// DefaultBusCapacity is the ring size used when a Broadcaster is built with
// capacity <= 0.
const DefaultBusCapacity = 4096

// ErrSlowSubscriber is returned by Subscription.Recv when the subscriber fell
// further behind than the ring capacity. The subscription is repositioned at
// the oldest retained event; the caller decides whether to keep reading with
// the gap or to resubscribe.
var ErrSlowSubscriber = errors.New("events: subscriber lagged, events dropped")

// ErrBusClosed is returned once all retained events have been consumed after
// the broadcaster closed.
var ErrBusClosed = errors.New("events: broadcaster closed")

// Publisher accepts events for fan-out. Event sources take a Publisher so a
// composition root can intercept the publish path; *Broadcaster implements it.
type Publisher interface {
	Publish(Event)
}

// Broadcaster fans events out to any number of subscribers. Publishing never
// blocks: when the ring is full, the oldest slot is overwritten and slow
// subscribers observe ErrSlowSubscriber on their next receive.
type Broadcaster struct {
	mu     sync.Mutex
	ring   []Event
	head   uint64 // sequence of the next slot to be written
	count  int    // live slots, <= len(ring)
	closed bool
	wake   chan struct{}
}

// NewBroadcaster builds a Broadcaster with the given ring capacity.
func NewBroadcaster(capacity int) *Broadcaster {
	if capacity <= 0 {
		capacity = DefaultBusCapacity
	}
	return &Broadcaster{
		ring: make([]Event, capacity),
		wake: make(chan struct{}),
	}
}

// Publish appends an event, overwriting the oldest slot when full.
func (b *Broadcaster) Publish(e Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.ring[b.head%uint64(len(b.ring))] = e
	b.head++
	if b.count < len(b.ring) {
		b.count++
	}
	wake := b.wake
	b.wake = make(chan struct{})
	b.mu.Unlock()
	close(wake)
}

// Close stops the broadcaster. Subscribers drain what is retained, then see
// ErrBusClosed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	wake := b.wake
	b.mu.Unlock()
	close(wake)
}

// oldest returns the sequence of the oldest retained event. Callers hold mu.
func (b *Broadcaster) oldest() uint64 {
	return b.head - uint64(b.count)
}

// Subscribe registers a subscriber positioned after the most recent event:
// it only observes events published from now on.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Subscription{bus: b, next: b.head}
}

// Subscription is one subscriber's cursor into the broadcast ring. Not safe
// for concurrent use by multiple goroutines.
type Subscription struct {
	bus  *Broadcaster
	next uint64
}

// Recv returns the next event in publish order. It blocks until an event is
// available, the context is cancelled, or the broadcaster closes. When the
// cursor has been overwritten it returns ErrSlowSubscriber and skips to the
// oldest retained event.
func (s *Subscription) Recv(ctx context.Context) (Event, error) {
	for {
		s.bus.mu.Lock()
		if oldest := s.bus.oldest(); s.next < oldest {
			s.next = oldest
			s.bus.mu.Unlock()
			return Event{}, ErrSlowSubscriber
		}
		if s.next < s.bus.head {
			e := s.bus.ring[s.next%uint64(len(s.bus.ring))]
			s.next++
			s.bus.mu.Unlock()
			return e, nil
		}
		if s.bus.closed {
			s.bus.mu.Unlock()
			return Event{}, ErrBusClosed
		}
		wake := s.bus.wake
		s.bus.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-wake:
		}
	}
}
