package coupons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hmkwon/dishpatch-backend/pkg/db"
	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
)

type couponRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindIssued(ctx context.Context, customerID, issuedID uuid.UUID) (*models.IssuedCoupon, error)
	ListMine(ctx context.Context, customerID uuid.UUID) ([]models.IssuedCoupon, error)
	Issue(ctx context.Context, issued *models.IssuedCoupon) error
}

// IssuedCouponDTO exposes a customer's coupon in API responses.
type IssuedCouponDTO struct {
	ID             uuid.UUID                `json:"id"`
	CouponID       uuid.UUID                `json:"coupon_id"`
	Code           string                   `json:"code"`
	Name           string                   `json:"name"`
	DiscountType   enums.CouponDiscountType `json:"discount_type"`
	Amount         int                      `json:"amount,omitempty"`
	Rate           decimal.Decimal          `json:"rate,omitempty"`
	MinOrderAmount int                      `json:"min_order_amount"`
	ExpiresAt      *time.Time               `json:"expires_at,omitempty"`
	Used           bool                     `json:"used"`
	IssuedAt       time.Time                `json:"issued_at"`
}

// Service exposes customer coupon operations.
type Service interface {
	ListMine(ctx context.Context, customerID uuid.UUID) ([]IssuedCouponDTO, error)
	RegisterByCode(ctx context.Context, customerID uuid.UUID, code string) (*IssuedCouponDTO, error)
}

type service struct {
	repo couponRepository
	now  func() time.Time
}

// NewService builds a coupon service.
func NewService(repo couponRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) ListMine(ctx context.Context, customerID uuid.UUID) ([]IssuedCouponDTO, error) {
	rows, err := s.repo.ListMine(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list issued coupons")
	}
	out := make([]IssuedCouponDTO, 0, len(rows))
	for i := range rows {
		out = append(out, fromIssued(&rows[i]))
	}
	return out, nil
}

func (s *service) RegisterByCode(ctx context.Context, customerID uuid.UUID, code string) (*IssuedCouponDTO, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if coupon == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	if coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon expired")
	}

	issued := &models.IssuedCoupon{
		CouponID:   coupon.ID,
		CustomerID: customerID,
		Coupon:     coupon,
	}
	if err := s.repo.Issue(ctx, issued); err != nil {
		if db.IsUniqueViolation(err, "idx_issued_coupons_coupon_customer") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue coupon")
	}
	dto := fromIssued(issued)
	return &dto, nil
}

func fromIssued(m *models.IssuedCoupon) IssuedCouponDTO {
	dto := IssuedCouponDTO{
		ID:       m.ID,
		CouponID: m.CouponID,
		Used:     m.UsedOrderID != nil,
		IssuedAt: m.IssuedAt,
	}
	if m.Coupon != nil {
		dto.Code = m.Coupon.Code
		dto.Name = m.Coupon.Name
		dto.DiscountType = m.Coupon.DiscountType
		dto.Amount = m.Coupon.Amount
		dto.Rate = m.Coupon.Rate
		dto.MinOrderAmount = m.Coupon.MinOrderAmount
		dto.ExpiresAt = m.Coupon.ExpiresAt
	}
	return dto
}
