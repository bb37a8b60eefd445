// Package events provides the progress event channel between the scan engine
// and its observers. Events are delivered to subscribers synchronously and in
// emission order; a closed or unsubscribed handler never sees another event.
package events

import (
	"sync"
)

// Progress is an incremental scan progress notification.
type Progress struct {
	// Phase is the human-readable phase label
	Phase string `json:"phase"`
	// Percent is the overall completion, 0-100
	Percent int `json:"progress"`
}

// Handler receives progress events. Handlers must not block; they are
// invoked inline on the publishing goroutine.
type Handler func(Progress)

// Bus fans progress events out to subscribers. The zero value is not
// usable; create one with NewBus.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]Handler
	nextID uint64
	closed bool
}

// NewBus creates an empty progress event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[uint64]Handler),
	}
}

// Subscription represents one registered handler. Unsubscribe may be called
// any number of times, before or after the bus is closed.
type Subscription struct {
	bus  *Bus
	id   uint64
	once sync.Once
}

// Subscribe registers a handler for future events. Subscribing on a closed
// bus returns a subscription that will never fire.
func (b *Bus) Subscribe(h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{bus: b, id: b.nextID}
	if !b.closed {
		b.subs[sub.id] = h
	}
	return sub
}

// Unsubscribe removes the handler. Events published afterwards are dropped
// for this subscription.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		delete(s.bus.subs, s.id)
	})
}

// Publish delivers an event to every current subscriber. Each subscriber
// sees events in emission order; ordering across subscribers is not
// guaranteed. Publishing on a closed bus is a no-op.
func (b *Bus) Publish(p Progress) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(p)
	}
}

// Close drops all subscribers and rejects future ones. Safe to call more
// than once.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[uint64]Handler)
}

// SubscriberCount reports the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
