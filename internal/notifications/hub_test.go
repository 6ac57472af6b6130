package notifications

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/config"
)

func newTestHub(buffer int) *Hub {
	return NewHub(config.HubConfig{SubscriberBuffer: buffer}, nil)
}

func TestHubDeliversInPublishOrder(t *testing.T) {
	hub := newTestHub(8)
	topic := TopicCustomer(uuid.New())
	sub := hub.Subscribe(topic)
	defer hub.Unsubscribe(sub)

	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.New()
		orderID := ids[i]
		hub.Publish(topic, Event{Kind: KindOrderCreated, OrderID: &orderID})
	}

	for i := range ids {
		select {
		case got := <-sub.Events():
			if got.OrderID == nil || *got.OrderID != ids[i] {
				t.Fatalf("event %d out of order", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestHubTopicsAreIsolated(t *testing.T) {
	hub := newTestHub(8)
	mine := hub.Subscribe(TopicCustomer(uuid.New()))
	other := hub.Subscribe(TopicStore(uuid.New()))
	defer hub.Unsubscribe(mine)
	defer hub.Unsubscribe(other)

	hub.Publish(mine.Topic(), Event{Kind: KindOrderStatusChanged})

	select {
	case <-mine.Events():
	case <-time.After(time.Second):
		t.Fatalf("subscriber on the published topic got nothing")
	}
	select {
	case got := <-other.Events():
		t.Fatalf("event leaked across topics: %+v", got)
	default:
	}
}

func TestHubDropsWhenBufferFullAndMarksLagged(t *testing.T) {
	hub := newTestHub(2)
	topic := TopicStore(uuid.New())
	sub := hub.Subscribe(topic)
	defer hub.Unsubscribe(sub)

	for i := 0; i < 5; i++ {
		hub.Publish(topic, Event{Kind: KindReviewCreated})
	}

	received := 0
	for {
		select {
		case <-sub.Events():
			received++
			continue
		default:
		}
		break
	}
	if received != 2 {
		t.Fatalf("expected buffer-sized delivery, got %d", received)
	}
	if !sub.Lagged() {
		t.Fatalf("subscription must be marked lagged after drops")
	}
	if sub.Lagged() {
		t.Fatalf("lagged flag must clear after the check")
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := newTestHub(4)
	topic := TopicCustomer(uuid.New())
	sub := hub.Subscribe(topic)

	hub.Unsubscribe(sub)
	if _, open := <-sub.Events(); open {
		t.Fatalf("channel must be closed after unsubscribe")
	}
	if hub.SubscriberCount(topic) != 0 {
		t.Fatalf("topic must be empty after unsubscribe")
	}

	// publishing to a torn-down topic is a no-op
	hub.Publish(topic, Event{Kind: KindOrderCreated})
	// double unsubscribe is safe
	hub.Unsubscribe(sub)
}

func TestHubFanoutReachesEverySubscriber(t *testing.T) {
	hub := newTestHub(4)
	topic := TopicStore(uuid.New())
	first := hub.Subscribe(topic)
	second := hub.Subscribe(topic)
	defer hub.Unsubscribe(first)
	defer hub.Unsubscribe(second)

	hub.Publish(topic, Event{Kind: KindOrderCreated})

	for _, sub := range []*Subscription{first, second} {
		select {
		case <-sub.Events():
		case <-time.After(time.Second):
			t.Fatalf("subscriber missed the fanout")
		}
	}
}
