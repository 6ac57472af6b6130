package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/enums"
)

// Notification stores in-app notification payloads keyed by hub topic.
// Rows are the polling fallback for clients without a live stream.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Topic     string                 `gorm:"type:text;not null;index"`
	Type      enums.NotificationType `gorm:"type:text;not null"`
	Title     string                 `gorm:"type:text;not null"`
	Message   string                 `gorm:"type:text;not null"`
	OrderID   *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime;index"`
}
