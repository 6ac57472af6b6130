package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	"github.com/hmkwon/dishpatch-backend/pkg/logger"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox/payloads"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox/registry"
	pubsubpkg "github.com/hmkwon/dishpatch-backend/pkg/pubsub"
)

// ConsumerName scopes the idempotency markers for this consumer group.
const ConsumerName = "notify-worker"

// RawMessage is the transport-agnostic shape of one domain event delivery.
type RawMessage struct {
	Attributes map[string]string
	Data       []byte
}

type eventResolver interface {
	Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type processedGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type hubPublisher interface {
	Publish(topic string, event Event)
}

// Consumer turns domain events from the pubsub subscription into stored
// notification rows plus live hub fanout. Redeliveries are deduped per
// envelope event id.
type Consumer struct {
	registry eventResolver
	guard    processedGuard
	repo     notificationRepository
	hub      hubPublisher
	logg     *logger.Logger
}

// NewConsumer builds the notify-worker consumer.
func NewConsumer(reg eventResolver, guard processedGuard, repo notificationRepository, hub hubPublisher, logg *logger.Logger) (*Consumer, error) {
	if reg == nil {
		return nil, fmt.Errorf("event registry required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if repo == nil {
		return nil, fmt.Errorf("notification repository required")
	}
	if hub == nil {
		return nil, fmt.Errorf("hub required")
	}
	return &Consumer{registry: reg, guard: guard, repo: repo, hub: hub, logg: logg}, nil
}

// Handle processes one delivery. A nil return acks the message; registry
// rejections are swallowed as acks too since redelivering them cannot help.
func (c *Consumer) Handle(ctx context.Context, msg RawMessage) error {
	event, err := c.toOutboxEvent(msg)
	if err != nil {
		c.warn(ctx, "dropping malformed domain event", err)
		return nil
	}

	resolved, err := c.registry.Resolve(event)
	if err != nil {
		var nonRetryable registry.NonRetryableError
		if errors.As(err, &nonRetryable) {
			c.warn(ctx, "dropping unresolvable domain event", err)
			return nil
		}
		return err
	}

	eventID, err := uuid.Parse(resolved.Envelope.EventID)
	if err != nil {
		c.warn(ctx, "dropping event with invalid event id", err)
		return nil
	}
	seen, err := c.guard.CheckAndMarkProcessed(ctx, ConsumerName, eventID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	if err := c.dispatch(ctx, resolved); err != nil {
		// clear the marker so the redelivery gets another chance
		if delErr := c.guard.Delete(ctx, ConsumerName, eventID); delErr != nil {
			c.warn(ctx, "failed to clear idempotency marker", delErr)
		}
		return err
	}
	return nil
}

func (c *Consumer) toOutboxEvent(msg RawMessage) (models.OutboxEvent, error) {
	eventType, err := enums.ParseOutboxEventType(msg.Attributes[pubsubpkg.AttrEventType])
	if err != nil {
		return models.OutboxEvent{}, err
	}
	aggregateType, err := enums.ParseOutboxAggregateType(msg.Attributes[pubsubpkg.AttrAggregateType])
	if err != nil {
		return models.OutboxEvent{}, err
	}
	aggregateID, err := uuid.Parse(msg.Attributes[pubsubpkg.AttrAggregateID])
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("parse aggregate id: %w", err)
	}
	return models.OutboxEvent{
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       msg.Data,
	}, nil
}

func (c *Consumer) dispatch(ctx context.Context, resolved *registry.ResolvedEvent) error {
	occurredAt := resolved.Envelope.OccurredAt

	switch payload := resolved.Payload.(type) {
	case *payloads.OrderCreatedEvent:
		return c.deliver(ctx, &models.Notification{
			Topic:   TopicStore(payload.StoreID),
			Type:    enums.NotificationTypeOrderCreated,
			Title:   "New order",
			Message: fmt.Sprintf("A new order for %d won is waiting for your decision", payload.Total),
			OrderID: &payload.OrderID,
		}, Event{
			Kind:       KindOrderCreated,
			OrderID:    &payload.OrderID,
			StoreID:    &payload.StoreID,
			OccurredAt: occurredAt,
		})

	case *payloads.OrderStatusChangedEvent:
		status := payload.NewStatus
		return c.deliver(ctx, &models.Notification{
			Topic:   TopicCustomer(payload.CustomerID),
			Type:    enums.NotificationTypeOrderStatus,
			Title:   "Order update",
			Message: fmt.Sprintf("Your order is now %s", status),
			OrderID: &payload.OrderID,
		}, Event{
			Kind:       KindOrderStatusChanged,
			OrderID:    &payload.OrderID,
			NewStatus:  &status,
			OccurredAt: occurredAt,
		})

	case *payloads.OrderPendingNudgeEvent:
		return c.deliver(ctx, &models.Notification{
			Topic:   TopicStore(payload.StoreID),
			Type:    enums.NotificationTypePendingReminder,
			Title:   "Order still pending",
			Message: fmt.Sprintf("An order has been waiting for %d minutes", payload.PendingMinutes),
			OrderID: &payload.OrderID,
		}, Event{
			Kind:       KindPendingReminder,
			OrderID:    &payload.OrderID,
			StoreID:    &payload.StoreID,
			OccurredAt: occurredAt,
		})

	case *payloads.DeliveryStartedEvent:
		return c.deliver(ctx, &models.Notification{
			Topic:   TopicCustomer(payload.CustomerID),
			Type:    enums.NotificationTypeDeliveryUpdate,
			Title:   "Rider on the way",
			Message: fmt.Sprintf("%s picked up your delivery", payload.RiderName),
			OrderID: &payload.OrderID,
		}, Event{
			Kind:       KindDeliveryStarted,
			OrderID:    &payload.OrderID,
			RiderName:  payload.RiderName,
			OccurredAt: occurredAt,
		})

	case *payloads.DeliveryAdvancedEvent:
		state := payload.NewState
		return c.deliver(ctx, &models.Notification{
			Topic:   TopicCustomer(payload.CustomerID),
			Type:    enums.NotificationTypeDeliveryUpdate,
			Title:   "Delivery update",
			Message: fmt.Sprintf("Your delivery is now %s", state),
			OrderID: &payload.OrderID,
		}, Event{
			Kind:       KindDeliveryAdvanced,
			OrderID:    &payload.OrderID,
			NewState:   &state,
			OccurredAt: occurredAt,
		})

	case *payloads.ReviewCreatedEvent:
		return c.deliver(ctx, &models.Notification{
			Topic:   TopicStore(payload.StoreID),
			Type:    enums.NotificationTypeReviewCreated,
			Title:   "New review",
			Message: fmt.Sprintf("%s left a %d-star review", payload.AuthorName, payload.Rating),
			OrderID: &payload.OrderID,
		}, Event{
			Kind:       KindReviewCreated,
			StoreID:    &payload.StoreID,
			AuthorName: payload.AuthorName,
			Rating:     payload.Rating,
			OccurredAt: occurredAt,
		})

	default:
		c.warn(ctx, "no handler for domain event payload", fmt.Errorf("type %T", resolved.Payload))
		return nil
	}
}

func (c *Consumer) deliver(ctx context.Context, row *models.Notification, event Event) error {
	if err := c.repo.Create(ctx, row); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	c.hub.Publish(row.Topic, event)
	return nil
}

func (c *Consumer) warn(ctx context.Context, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"error": err.Error()}), msg)
}
