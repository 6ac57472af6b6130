package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is one-per-order customer feedback with an optional owner reply.
type Review struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	StoreID    uuid.UUID  `gorm:"column:store_id;type:uuid;not null;index"`
	CustomerID uuid.UUID  `gorm:"column:customer_id;type:uuid;not null;index"`
	Rating     int        `gorm:"not null"`
	Content    string     `gorm:"type:text;not null"`
	ImageURL   *string    `gorm:"column:image_url;type:text"`
	Reply      *string    `gorm:"type:text"`
	RepliedAt  *time.Time `gorm:"column:replied_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
