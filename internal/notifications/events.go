package notifications

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/enums"
)

// EventKind discriminates hub events explicitly. Consumers switch on Kind,
// never on which optional fields happen to be set.
type EventKind string

const (
	KindOrderCreated       EventKind = "order_created"
	KindOrderStatusChanged EventKind = "order_status_changed"
	KindDeliveryStarted    EventKind = "delivery_started"
	KindDeliveryAdvanced   EventKind = "delivery_advanced"
	KindReviewCreated      EventKind = "review_created"
	KindPendingReminder    EventKind = "pending_reminder"
)

// Event is the tagged union pushed through the hub and over SSE.
type Event struct {
	Kind       EventKind             `json:"kind"`
	OrderID    *uuid.UUID            `json:"order_id,omitempty"`
	StoreID    *uuid.UUID            `json:"store_id,omitempty"`
	NewStatus  *enums.OrderStatus    `json:"new_status,omitempty"`
	NewState   *enums.DeliveryStatus `json:"new_state,omitempty"`
	RiderName  string                `json:"rider_name,omitempty"`
	AuthorName string                `json:"author_name,omitempty"`
	Rating     int                   `json:"rating,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// TopicCustomer names a customer's personal hub topic.
func TopicCustomer(customerID uuid.UUID) string {
	return fmt.Sprintf("customer:%s", customerID)
}

// TopicStore names a store's hub topic, shared by its staff sessions.
func TopicStore(storeID uuid.UUID) string {
	return fmt.Sprintf("store:%s", storeID)
}
