package blacklist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
)

// Repository handles store blacklist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to blacklist operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// IsBlacklisted reports whether the (store, user) pair is blocked.
func (r *Repository) IsBlacklisted(ctx context.Context, storeID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BlacklistEntry{}).
		Where("store_id = ? AND user_id = ?", storeID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns a store's blacklist newest first.
func (r *Repository) List(ctx context.Context, storeID uuid.UUID) ([]models.BlacklistEntry, error) {
	var rows []models.BlacklistEntry
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Add inserts a blacklist entry. Duplicate pairs surface the unique violation
// to the service layer.
func (r *Repository) Add(ctx context.Context, entry *models.BlacklistEntry) error {
	if entry == nil {
		return fmt.Errorf("entry is required")
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// Remove deletes the entry for the pair. The removed flag tells the caller
// whether anything was actually blocked.
func (r *Repository) Remove(ctx context.Context, storeID, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("store_id = ? AND user_id = ?", storeID, userID).
		Delete(&models.BlacklistEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
