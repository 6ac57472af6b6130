package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/enums"
)

// User represents the canonical identity entity. Credentials live with the
// external auth collaborator; this row only carries what the platform needs.
type User struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string          `gorm:"type:text;not null;uniqueIndex"`
	Nickname  string          `gorm:"type:text;not null"`
	Role      enums.ActorRole `gorm:"type:text;not null;default:'customer'"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
