package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/internal/pricing"
	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
)

// Actor identifies who is asking for an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// SubmitOrderInput is the untrusted cart snapshot a customer submits. It is
// re-validated and re-priced server-side before anything is persisted.
type SubmitOrderInput struct {
	StoreID        uuid.UUID      `json:"store_id" validate:"required"`
	Lines          []pricing.Line `json:"lines" validate:"required,dive"`
	IssuedCouponID *uuid.UUID     `json:"issued_coupon_id"`
	RequestNote    *string        `json:"request_note"`
}

// OrderDTO exposes an order in API responses.
type OrderDTO struct {
	ID          uuid.UUID         `json:"id"`
	StoreID     uuid.UUID         `json:"store_id"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	Status      enums.OrderStatus `json:"status"`
	Lines       []OrderLineDTO    `json:"lines"`
	Summary     PriceSummaryDTO   `json:"summary"`
	RequestNote *string           `json:"request_note,omitempty"`
	Delivery    *DeliveryRefDTO   `json:"delivery,omitempty"`
	AcceptedAt  *time.Time        `json:"accepted_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	CanceledAt  *time.Time        `json:"canceled_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// OrderLineDTO is a frozen order line.
type OrderLineDTO struct {
	ProductID   uuid.UUID            `json:"product_id"`
	ProductName string               `json:"product_name"`
	UnitPrice   int                  `json:"unit_price"`
	Quantity    int                  `json:"quantity"`
	Options     []OrderLineOptionDTO `json:"options,omitempty"`
}

// OrderLineOptionDTO is a frozen option selection.
type OrderLineOptionDTO struct {
	OptionName string `json:"option_name"`
	Surcharge  int    `json:"surcharge"`
}

// PriceSummaryDTO mirrors the frozen pricing columns.
type PriceSummaryDTO struct {
	ItemSubtotal int `json:"item_subtotal"`
	DeliveryFee  int `json:"delivery_fee"`
	Discount     int `json:"discount"`
	Total        int `json:"total"`
}

// DeliveryRefDTO surfaces the delivery pairing on order reads.
type DeliveryRefDTO struct {
	ID      uuid.UUID            `json:"id"`
	Status  enums.DeliveryStatus `json:"status"`
	RiderID *uuid.UUID           `json:"rider_id,omitempty"`
}

// TransitionInput is the requested status change.
type TransitionInput struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
}

// FromModel maps the persisted order into a DTO.
func FromModel(m *models.Order) *OrderDTO {
	if m == nil {
		return nil
	}
	lines := make([]OrderLineDTO, 0, len(m.Lines))
	for _, l := range m.Lines {
		options := make([]OrderLineOptionDTO, 0, len(l.Options))
		for _, o := range l.Options {
			options = append(options, OrderLineOptionDTO{OptionName: o.OptionName, Surcharge: o.Surcharge})
		}
		lines = append(lines, OrderLineDTO{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Options:     options,
		})
	}
	dto := &OrderDTO{
		ID:         m.ID,
		StoreID:    m.StoreID,
		CustomerID: m.CustomerID,
		Status:     m.Status,
		Lines:      lines,
		Summary: PriceSummaryDTO{
			ItemSubtotal: m.ItemSubtotal,
			DeliveryFee:  m.DeliveryFee,
			Discount:     m.Discount,
			Total:        m.Total,
		},
		RequestNote: m.RequestNote,
		AcceptedAt:  m.AcceptedAt,
		CompletedAt: m.CompletedAt,
		CanceledAt:  m.CanceledAt,
		CreatedAt:   m.CreatedAt,
	}
	if m.Delivery != nil {
		dto.Delivery = &DeliveryRefDTO{
			ID:      m.Delivery.ID,
			Status:  m.Delivery.Status,
			RiderID: m.Delivery.RiderID,
		}
	}
	return dto
}
