package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/pagination"
)

// Repository handles review persistence. The unique index on order_id is the
// authoritative one-review-per-order guard; the gate's pre-check only gives a
// friendlier error earlier.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to review operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateWithTx inserts the review, assigning the ID when the caller left it
// unset so the outbox event in the same transaction can reference it.
func (r *Repository) CreateWithTx(tx *gorm.DB, review *models.Review) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if review == nil {
		return fmt.Errorf("review is required")
	}
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	return tx.Create(review).Error
}

// FindByID returns (nil, nil) when the review does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ReviewExists reports whether the order already has a review. The access
// gate feeds on this.
func (r *Repository) ReviewExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByStore pages a store's reviews newest first.
func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.Review, error) {
	query := r.db.WithContext(ctx).Where("store_id = ?", storeID)

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

	var rows []models.Review
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SetReply stamps the owner's reply only while the review has none. A false
// return means a reply already landed.
func (r *Repository) SetReply(ctx context.Context, reviewID uuid.UUID, reply string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("id = ? AND reply IS NULL", reviewID).
		Updates(map[string]any{
			"reply":      reply,
			"replied_at": at,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
