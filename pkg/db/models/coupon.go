package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hmkwon/dishpatch-backend/pkg/enums"
)

// Coupon is a discount definition. Fixed coupons carry Amount in won; rate
// coupons carry Rate as a fraction (0.10 for 10%).
type Coupon struct {
	ID             uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code           string                   `gorm:"type:text;not null;uniqueIndex"`
	Name           string                   `gorm:"type:text;not null"`
	DiscountType   enums.CouponDiscountType `gorm:"column:discount_type;type:text;not null"`
	Amount         int                      `gorm:"not null;default:0"`
	Rate           decimal.Decimal          `gorm:"type:numeric(5,4);not null;default:0"`
	MinOrderAmount int                      `gorm:"column:min_order_amount;not null;default:0"`
	ExpiresAt      *time.Time               `gorm:"column:expires_at"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
}

// IssuedCoupon ties a coupon to a customer; UsedOrderID marks redemption.
type IssuedCoupon struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID    uuid.UUID  `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:idx_issued_coupons_coupon_customer"`
	CustomerID  uuid.UUID  `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:idx_issued_coupons_coupon_customer"`
	UsedOrderID *uuid.UUID `gorm:"column:used_order_id;type:uuid"`
	IssuedAt    time.Time  `gorm:"column:issued_at;autoCreateTime"`
	Coupon      *Coupon    `gorm:"foreignKey:CouponID"`
}
