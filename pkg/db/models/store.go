package models

import (
	"time"

	"github.com/google/uuid"
)

// Store represents a restaurant and its ordering policy knobs.
type Store struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID        uuid.UUID       `gorm:"column:owner_id;type:uuid;not null;index"`
	Name           string          `gorm:"type:text;not null"`
	Description    *string         `gorm:"type:text"`
	Address        *string         `gorm:"type:text"`
	Phone          *string         `gorm:"type:text"`
	MinOrderAmount int             `gorm:"column:min_order_amount;not null;default:0"`
	DeliveryFee    int             `gorm:"column:delivery_fee;not null;default:0"`
	ManuallyClosed bool            `gorm:"column:manually_closed;not null;default:false"`
	OperatingHours []OperatingHour `gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// OperatingHour is one weekly opening window. Close earlier than open means
// the window spills past midnight into the next day.
type OperatingHour struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID   uuid.UUID `gorm:"column:store_id;type:uuid;not null;uniqueIndex:idx_operating_hours_store_day"`
	DayOfWeek int       `gorm:"column:day_of_week;not null;uniqueIndex:idx_operating_hours_store_day"`
	OpenTime  string    `gorm:"column:open_time;type:text;not null"`
	CloseTime string    `gorm:"column:close_time;type:text;not null"`
	IsDayOff  bool      `gorm:"column:is_day_off;not null;default:false"`
}
