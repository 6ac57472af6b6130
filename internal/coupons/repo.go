package coupons

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
)

// Repository handles coupon definitions and per-customer issuance.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to coupon operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByCode loads a coupon definition by its code. Missing codes come back
// as (nil, nil).
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).First(&coupon, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// FindIssued loads the customer's issuance of a coupon with the definition
// preloaded.
func (r *Repository) FindIssued(ctx context.Context, customerID, issuedID uuid.UUID) (*models.IssuedCoupon, error) {
	var issued models.IssuedCoupon
	err := r.db.WithContext(ctx).
		Preload("Coupon").
		First(&issued, "id = ? AND customer_id = ?", issuedID, customerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &issued, nil
}

// ListMine returns the customer's issued coupons newest first.
func (r *Repository) ListMine(ctx context.Context, customerID uuid.UUID) ([]models.IssuedCoupon, error) {
	var rows []models.IssuedCoupon
	if err := r.db.WithContext(ctx).
		Preload("Coupon").
		Where("customer_id = ?", customerID).
		Order("issued_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Issue records a coupon issuance. The unique pair index surfaces duplicates
// to the service layer.
func (r *Repository) Issue(ctx context.Context, issued *models.IssuedCoupon) error {
	if issued == nil {
		return fmt.Errorf("issued coupon is required")
	}
	return r.db.WithContext(ctx).Create(issued).Error
}

// MarkUsed stamps the issuance with the order that redeemed it. The guard on
// used_order_id makes redemption single-shot under concurrent submissions:
// a false return means someone else got there first.
func (r *Repository) MarkUsed(ctx context.Context, issuedID, orderID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.IssuedCoupon{}).
		Where("id = ? AND used_order_id IS NULL", issuedID).
		Update("used_order_id", orderID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReleaseUse clears the redemption stamp when the redeeming order is
// canceled before completion.
func (r *Repository) ReleaseUse(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.IssuedCoupon{}).
		Where("used_order_id = ?", orderID).
		Update("used_order_id", nil).Error
}

// MarkUsedWithTx stamps the issuance inside the provided transaction.
func (r *Repository) MarkUsedWithTx(tx *gorm.DB, issuedID, orderID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, gorm.ErrInvalidTransaction
	}
	return r.WithTx(tx).MarkUsed(context.Background(), issuedID, orderID)
}

// ReleaseUseWithTx clears the redemption stamp inside the provided transaction.
func (r *Repository) ReleaseUseWithTx(tx *gorm.DB, orderID uuid.UUID) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return r.WithTx(tx).ReleaseUse(context.Background(), orderID)
}
