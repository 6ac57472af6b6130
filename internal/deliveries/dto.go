package deliveries

import (
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
)

// DeliveryDTO exposes a delivery in API responses.
type DeliveryDTO struct {
	ID          uuid.UUID            `json:"id"`
	OrderID     uuid.UUID            `json:"order_id"`
	Status      enums.DeliveryStatus `json:"status"`
	RiderID     *uuid.UUID           `json:"rider_id,omitempty"`
	ClaimedAt   *time.Time           `json:"claimed_at,omitempty"`
	PickedUpAt  *time.Time           `json:"picked_up_at,omitempty"`
	DeliveredAt *time.Time           `json:"delivered_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// FromModel maps the persisted delivery into a DTO.
func FromModel(m *models.Delivery) *DeliveryDTO {
	if m == nil {
		return nil
	}
	return &DeliveryDTO{
		ID:          m.ID,
		OrderID:     m.OrderID,
		Status:      m.Status,
		RiderID:     m.RiderID,
		ClaimedAt:   m.ClaimedAt,
		PickedUpAt:  m.PickedUpAt,
		DeliveredAt: m.DeliveredAt,
		CreatedAt:   m.CreatedAt,
	}
}
