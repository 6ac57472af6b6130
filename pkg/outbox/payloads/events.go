package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/enums"
)

// OrderCreatedEvent signals a freshly submitted order awaiting the store's decision.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID `json:"orderId"`
	StoreID    uuid.UUID `json:"storeId"`
	CustomerID uuid.UUID `json:"customerId"`
	Total      int       `json:"total"`
}

// OrderStatusChangedEvent is emitted on every lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"orderId"`
	StoreID    uuid.UUID         `json:"storeId"`
	CustomerID uuid.UUID         `json:"customerId"`
	FromStatus enums.OrderStatus `json:"fromStatus"`
	NewStatus  enums.OrderStatus `json:"newStatus"`
}

// OrderPendingNudgeEvent reminds a store about orders stuck in PENDING.
type OrderPendingNudgeEvent struct {
	OrderID        uuid.UUID `json:"orderId"`
	StoreID        uuid.UUID `json:"storeId"`
	PendingMinutes int       `json:"pendingMinutes"`
}

// DeliveryStartedEvent is emitted when a rider claims a delivery.
type DeliveryStartedEvent struct {
	DeliveryID uuid.UUID `json:"deliveryId"`
	OrderID    uuid.UUID `json:"orderId"`
	CustomerID uuid.UUID `json:"customerId"`
	RiderID    uuid.UUID `json:"riderId"`
	RiderName  string    `json:"riderName"`
	ClaimedAt  time.Time `json:"claimedAt"`
}

// DeliveryAdvancedEvent reports forward progress on the rider flow.
type DeliveryAdvancedEvent struct {
	DeliveryID uuid.UUID            `json:"deliveryId"`
	OrderID    uuid.UUID            `json:"orderId"`
	CustomerID uuid.UUID            `json:"customerId"`
	NewState   enums.DeliveryStatus `json:"newState"`
}

// ReviewCreatedEvent tells the store a new review landed.
type ReviewCreatedEvent struct {
	ReviewID   uuid.UUID `json:"reviewId"`
	OrderID    uuid.UUID `json:"orderId"`
	StoreID    uuid.UUID `json:"storeId"`
	AuthorName string    `json:"authorName"`
	Rating     int       `json:"rating"`
}
