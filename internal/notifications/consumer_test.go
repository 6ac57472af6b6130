package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/config"
	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox/registry"
	"github.com/hmkwon/dishpatch-backend/pkg/pagination"
	pubsubpkg "github.com/hmkwon/dishpatch-backend/pkg/pubsub"
)

type memoryGuard struct {
	seen    map[uuid.UUID]bool
	deleted []uuid.UUID
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{seen: make(map[uuid.UUID]bool)}
}

func (g *memoryGuard) CheckAndMarkProcessed(_ context.Context, _ string, eventID uuid.UUID) (bool, error) {
	if g.seen[eventID] {
		return true, nil
	}
	g.seen[eventID] = true
	return false, nil
}

func (g *memoryGuard) Delete(_ context.Context, _ string, eventID uuid.UUID) error {
	delete(g.seen, eventID)
	g.deleted = append(g.deleted, eventID)
	return nil
}

type memoryNotificationRepo struct {
	rows      []*models.Notification
	createErr error
}

func (r *memoryNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.rows = append(r.rows, n)
	return nil
}

func (r *memoryNotificationRepo) ListByTopics(context.Context, []string, pagination.Params) ([]models.Notification, error) {
	out := make([]models.Notification, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, *row)
	}
	return out, nil
}

func (r *memoryNotificationRepo) MarkRead(context.Context, uuid.UUID, []string, time.Time) (bool, error) {
	return false, nil
}

func domainMessage(t *testing.T, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID, eventID string, payload any) RawMessage {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return RawMessage{
		Attributes: map[string]string{
			pubsubpkg.AttrEventType:     string(eventType),
			pubsubpkg.AttrAggregateType: string(aggregateType),
			pubsubpkg.AttrAggregateID:   aggregateID.String(),
			pubsubpkg.AttrEventID:       eventID,
		},
		Data: envelope,
	}
}

type consumerFixture struct {
	consumer *Consumer
	guard    *memoryGuard
	repo     *memoryNotificationRepo
	hub      *Hub
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()
	reg, err := registry.NewEventRegistry(config.PubSubConfig{DomainTopic: "dp-domain-events"})
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}
	guard := newMemoryGuard()
	repo := &memoryNotificationRepo{}
	hub := NewHub(config.HubConfig{SubscriberBuffer: 8}, nil)

	consumer, err := NewConsumer(reg, guard, repo, hub, nil)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	return &consumerFixture{consumer: consumer, guard: guard, repo: repo, hub: hub}
}

type orderCreatedPayload struct {
	OrderID    uuid.UUID `json:"orderId"`
	StoreID    uuid.UUID `json:"storeId"`
	CustomerID uuid.UUID `json:"customerId"`
	Total      int       `json:"total"`
}

func TestConsumerPersistsAndFansOut(t *testing.T) {
	f := newConsumerFixture(t)
	storeID := uuid.New()
	orderID := uuid.New()
	sub := f.hub.Subscribe(TopicStore(storeID))
	defer f.hub.Unsubscribe(sub)

	msg := domainMessage(t, enums.EventOrderCreated, enums.AggregateOrder, orderID, uuid.NewString(), orderCreatedPayload{
		OrderID: orderID,
		StoreID: storeID,
		Total:   23000,
	})
	if err := f.consumer.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(f.repo.rows) != 1 {
		t.Fatalf("expected one notification row, got %d", len(f.repo.rows))
	}
	row := f.repo.rows[0]
	if row.Topic != TopicStore(storeID) || row.Type != enums.NotificationTypeOrderCreated {
		t.Fatalf("unexpected row %+v", row)
	}
	if row.OrderID == nil || *row.OrderID != orderID {
		t.Fatalf("order id not carried")
	}

	select {
	case event := <-sub.Events():
		if event.Kind != KindOrderCreated {
			t.Fatalf("unexpected kind %s", event.Kind)
		}
	case <-time.After(time.Second):
		t.Fatalf("hub event not published")
	}
}

func TestConsumerDedupesRedeliveries(t *testing.T) {
	f := newConsumerFixture(t)
	eventID := uuid.NewString()
	msg := domainMessage(t, enums.EventOrderCreated, enums.AggregateOrder, uuid.New(), eventID, orderCreatedPayload{
		OrderID: uuid.New(),
		StoreID: uuid.New(),
	})

	for i := 0; i < 3; i++ {
		if err := f.consumer.Handle(context.Background(), msg); err != nil {
			t.Fatalf("Handle %d: %v", i, err)
		}
	}
	if len(f.repo.rows) != 1 {
		t.Fatalf("redeliveries must be deduped, got %d rows", len(f.repo.rows))
	}
}

func TestConsumerClearsMarkerOnFailure(t *testing.T) {
	f := newConsumerFixture(t)
	f.repo.createErr = fmt.Errorf("db down")
	msg := domainMessage(t, enums.EventOrderCreated, enums.AggregateOrder, uuid.New(), uuid.NewString(), orderCreatedPayload{
		OrderID: uuid.New(),
		StoreID: uuid.New(),
	})

	if err := f.consumer.Handle(context.Background(), msg); err == nil {
		t.Fatalf("expected error")
	}
	if len(f.guard.deleted) != 1 {
		t.Fatalf("failed processing must clear the idempotency marker")
	}

	// the retry succeeds once the dependency recovers
	f.repo.createErr = nil
	if err := f.consumer.Handle(context.Background(), msg); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(f.repo.rows) != 1 {
		t.Fatalf("retry must persist the row")
	}
}

func TestConsumerAcksMalformedMessages(t *testing.T) {
	f := newConsumerFixture(t)

	if err := f.consumer.Handle(context.Background(), RawMessage{
		Attributes: map[string]string{pubsubpkg.AttrEventType: "bogus"},
	}); err != nil {
		t.Fatalf("malformed attributes must ack, got %v", err)
	}
	if len(f.repo.rows) != 0 {
		t.Fatalf("malformed message must not persist anything")
	}
}
