package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/enums"
)

// Delivery pairs 1:1 with an order once the order is accepted. RiderID is
// set by the claim winner; ArchivedAt is set by the archival job after the
// delivery reaches DELIVERED.
type Delivery struct {
	ID          uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Status      enums.DeliveryStatus `gorm:"type:text;not null;default:'UNASSIGNED';index"`
	RiderID     *uuid.UUID           `gorm:"column:rider_id;type:uuid;index"`
	ClaimedAt   *time.Time           `gorm:"column:claimed_at"`
	PickedUpAt  *time.Time           `gorm:"column:picked_up_at"`
	DeliveredAt *time.Time           `gorm:"column:delivered_at"`
	ArchivedAt  *time.Time           `gorm:"column:archived_at;index"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
