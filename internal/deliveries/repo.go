package deliveries

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	"github.com/hmkwon/dishpatch-backend/pkg/pagination"
)

// Repository handles delivery persistence. Claim and advance are conditional
// updates so concurrent riders settle on exactly one winner per step.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to delivery operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID returns (nil, nil) when the delivery does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	return findDelivery(r.db.WithContext(ctx), id)
}

// FindByIDWithTx is FindByID bound to the caller's transaction.
func (r *Repository) FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Delivery, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	return findDelivery(tx, id)
}

func findDelivery(db *gorm.DB, id uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := db.First(&delivery, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// ListClaimable returns unclaimed deliveries oldest first so the queue is
// fair to whoever has been waiting longest.
func (r *Repository) ListClaimable(ctx context.Context, limit int) ([]models.Delivery, error) {
	var rows []models.Delivery
	if err := r.db.WithContext(ctx).
		Where("status = ? AND archived_at IS NULL", enums.DeliveryStatusUnassigned).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByRider pages a rider's deliveries newest first.
func (r *Repository) ListByRider(ctx context.Context, riderID uuid.UUID, params pagination.Params) ([]models.Delivery, error) {
	query := r.db.WithContext(ctx).Where("rider_id = ?", riderID)

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

	var rows []models.Delivery
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ClaimWithTx assigns the delivery to the rider only while it is still
// UNASSIGNED. A false return means another rider already won.
func (r *Repository) ClaimWithTx(tx *gorm.DB, deliveryID, riderID uuid.UUID, at time.Time) (bool, error) {
	if tx == nil {
		return false, gorm.ErrInvalidTransaction
	}
	res := tx.Model(&models.Delivery{}).
		Where("id = ? AND status = ?", deliveryID, enums.DeliveryStatusUnassigned).
		Updates(map[string]any{
			"status":     enums.DeliveryStatusAssigned,
			"rider_id":   riderID,
			"claimed_at": at,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Claim is ClaimWithTx against the repository's own connection, for callers
// that do not need to couple the claim with other writes.
func (r *Repository) Claim(ctx context.Context, deliveryID, riderID uuid.UUID, at time.Time) (bool, error) {
	return r.ClaimWithTx(r.db.WithContext(ctx), deliveryID, riderID, at)
}

// AdvanceWithTx moves the delivery one step forward only while the stored
// status still matches from, stamping the step's timestamp column.
func (r *Repository) AdvanceWithTx(tx *gorm.DB, deliveryID uuid.UUID, from, to enums.DeliveryStatus, at time.Time) (bool, error) {
	if tx == nil {
		return false, gorm.ErrInvalidTransaction
	}
	updates := map[string]any{"status": to, "updated_at": at}
	switch to {
	case enums.DeliveryStatusPickedUp:
		updates["picked_up_at"] = at
	case enums.DeliveryStatusDelivered:
		updates["delivered_at"] = at
	}
	res := tx.Model(&models.Delivery{}).
		Where("id = ? AND status = ?", deliveryID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ArchiveDelivered stamps archived_at on DELIVERED deliveries older than the
// cutoff, at most limit rows per call. The cron archival job feeds on this.
func (r *Repository) ArchiveDelivered(ctx context.Context, cutoff time.Time, limit int, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE deliveries SET archived_at = ?, updated_at = ?
		 WHERE id IN (
		   SELECT id FROM deliveries
		   WHERE status = ? AND delivered_at < ? AND archived_at IS NULL
		   LIMIT ?
		 )`,
		at, at, enums.DeliveryStatusDelivered, cutoff, limit,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
