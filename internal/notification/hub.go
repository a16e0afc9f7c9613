package notification

import (
	"sync"

	"github.com/fkhayef/tripsplit/internal/metrics"
)

// Hub fans change events out to the subscribers of each trip
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscription receives the events of one trip until Close is called
type Subscription struct {
	hub    *Hub
	tripID string
	events chan Event
	once   sync.Once
}

// Subscribe registers a new subscriber for tripID
func (h *Hub) Subscribe(tripID string) *Subscription {
	sub := &Subscription{
		hub:    h,
		tripID: tripID,
		// One pending event is enough: subscribers recompute from a fresh snapshot
		events: make(chan Event, 1),
	}

	h.mu.Lock()
	if h.subs[tripID] == nil {
		h.subs[tripID] = make(map[*Subscription]struct{})
	}
	h.subs[tripID][sub] = struct{}{}
	h.mu.Unlock()

	metrics.StreamOpened()
	return sub
}

// Events returns the channel events are delivered on. It is closed by Close.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		delete(h.subs[s.tripID], s)
		if len(h.subs[s.tripID]) == 0 {
			delete(h.subs, s.tripID)
		}
		close(s.events)
		h.mu.Unlock()

		metrics.StreamClosed()
	})
}

// Publish delivers event to the subscribers of its trip, or to everyone for a resync.
// A subscriber that already has an event pending is skipped instead of blocking.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if event.Action == ActionResync || event.TripID == "" {
		for _, subs := range h.subs {
			deliver(subs, event)
		}
		return
	}
	deliver(h.subs[event.TripID], event)
}

func deliver(subs map[*Subscription]struct{}, event Event) {
	for sub := range subs {
		select {
		case sub.events <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of open subscriptions for tripID
func (h *Hub) SubscriberCount(tripID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[tripID])
}
