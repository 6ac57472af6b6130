package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	"github.com/hmkwon/dishpatch-backend/pkg/pagination"
)

// Repository handles order persistence. Status changes go through the
// conditional update so concurrent writers settle on exactly one winner.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to order operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateWithTx inserts the order with its frozen lines. IDs are assigned
// here so the outbox row emitted in the same transaction can reference them.
func (r *Repository) CreateWithTx(tx *gorm.DB, order *models.Order) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if order == nil {
		return fmt.Errorf("order is required")
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Lines {
		if order.Lines[i].ID == uuid.Nil {
			order.Lines[i].ID = uuid.New()
		}
		order.Lines[i].OrderID = order.ID
		for j := range order.Lines[i].Options {
			if order.Lines[i].Options[j].ID == uuid.Nil {
				order.Lines[i].Options[j].ID = uuid.New()
			}
			order.Lines[i].Options[j].OrderLineID = order.Lines[i].ID
		}
	}
	return tx.Create(order).Error
}

// FindOrder loads an order with its lines and delivery pairing. Missing rows
// come back as (nil, nil).
func (r *Repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return findOrder(r.db.WithContext(ctx), id)
}

// FindOrderWithTx is FindOrder bound to the caller's transaction.
func (r *Repository) FindOrderWithTx(tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	return findOrder(tx, id)
}

func findOrder(db *gorm.DB, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := db.
		Preload("Lines.Options").
		Preload("Delivery").
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByCustomer pages a customer's orders newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	return r.list(ctx, "customer_id = ?", customerID, params)
}

// ListByStore pages a store's orders newest first.
func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	return r.list(ctx, "store_id = ?", storeID, params)
}

func (r *Repository) list(ctx context.Context, cond string, arg uuid.UUID, params pagination.Params) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Lines.Options").
		Preload("Delivery").
		Where(cond, arg)

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

	var rows []models.Order
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatusWithTx flips the status only when the stored value still
// matches from. A false return means a concurrent transition won.
func (r *Repository) UpdateStatusWithTx(tx *gorm.DB, orderID uuid.UUID, from, to enums.OrderStatus, at time.Time) (bool, error) {
	if tx == nil {
		return false, gorm.ErrInvalidTransaction
	}
	updates := map[string]any{"status": to, "updated_at": at}
	switch to {
	case enums.OrderStatusAccepted:
		updates["accepted_at"] = at
	case enums.OrderStatusCompleted:
		updates["completed_at"] = at
	case enums.OrderStatusCanceled:
		updates["canceled_at"] = at
	}
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CreateDeliveryWithTx inserts the UNASSIGNED pairing when an order becomes
// deliverable.
func (r *Repository) CreateDeliveryWithTx(tx *gorm.DB, delivery *models.Delivery) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if delivery == nil {
		return fmt.Errorf("delivery is required")
	}
	if delivery.ID == uuid.Nil {
		delivery.ID = uuid.New()
	}
	return tx.Create(delivery).Error
}

// ListStalePending returns PENDING orders created before the cutoff, oldest
// first. The cron nudge job feeds on this.
func (r *Repository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
