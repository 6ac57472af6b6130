package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/pagination"
)

// Repository persists notification rows, the polling fallback for clients
// without a live stream.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to notification operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the row, assigning the ID when the caller left it unset.
func (r *Repository) Create(ctx context.Context, notification *models.Notification) error {
	if notification == nil {
		return fmt.Errorf("notification is required")
	}
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

// ListByTopics pages notifications for the caller's topics newest first.
func (r *Repository) ListByTopics(ctx context.Context, topics []string, params pagination.Params) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).Where("topic IN ?", topics)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Notification
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkRead stamps read_at, scoped to the caller's topics so one user cannot
// acknowledge another's notification. A false return means no matching row.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID, topics []string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND topic IN ? AND read_at IS NULL", id, topics).
		Update("read_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
