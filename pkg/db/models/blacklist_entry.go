package models

import (
	"time"

	"github.com/google/uuid"
)

// BlacklistEntry blocks a customer from ordering from and reviewing a store.
type BlacklistEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID   uuid.UUID `gorm:"column:store_id;type:uuid;not null;uniqueIndex:idx_blacklist_store_user"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_blacklist_store_user"`
	Reason    *string   `gorm:"type:text"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
