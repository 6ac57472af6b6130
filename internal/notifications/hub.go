package notifications

import (
	"sync"

	"github.com/hmkwon/dishpatch-backend/pkg/config"
	"github.com/hmkwon/dishpatch-backend/pkg/metrics"
)

const defaultSubscriberBuffer = 32

// Subscription is one consumer's buffered view of a topic. Events arrive in
// publish order; a full buffer drops the event and marks the subscription
// lagged so the client knows to re-fetch state.
type Subscription struct {
	topic string
	ch    chan Event

	mu     sync.Mutex
	lagged bool
}

// Events returns the receive channel. It is closed on Unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Topic returns the topic this subscription listens on.
func (s *Subscription) Topic() string {
	return s.topic
}

// Lagged reports whether any event was dropped since the last check, and
// clears the flag.
func (s *Subscription) Lagged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	lagged := s.lagged
	s.lagged = false
	return lagged
}

func (s *Subscription) markLagged() {
	s.mu.Lock()
	s.lagged = true
	s.mu.Unlock()
}

// Hub fans events out to in-process subscribers per topic. Publishing never
// blocks: slow consumers lose events instead of stalling the caller.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscription]struct{}
	buffer  int
	metrics *metrics.CoreMetrics
}

// NewHub builds a hub with the configured per-subscriber buffer.
func NewHub(cfg config.HubConfig, m *metrics.CoreMetrics) *Hub {
	buffer := cfg.SubscriberBuffer
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		subs:    make(map[string]map[*Subscription]struct{}),
		buffer:  buffer,
		metrics: m,
	}
}

// Subscribe registers a new subscriber on the topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan Event, h.buffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*Subscription]struct{})
	}
	h.subs[topic][sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscriber and closes its channel. Safe to call
// once per subscription.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	topicSubs, ok := h.subs[sub.topic]
	if !ok {
		return
	}
	if _, registered := topicSubs[sub]; !registered {
		return
	}
	delete(topicSubs, sub)
	if len(topicSubs) == 0 {
		delete(h.subs, sub.topic)
	}
	close(sub.ch)
}

// Publish delivers the event to every subscriber of the topic without
// blocking. Full buffers drop the event for that subscriber only.
func (h *Hub) Publish(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[topic] {
		select {
		case sub.ch <- event:
			h.metrics.IncHubPublished(string(event.Kind))
		default:
			sub.markLagged()
			h.metrics.IncHubDropped(string(event.Kind))
		}
	}
}

// SubscriberCount reports how many subscriptions a topic currently has.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
