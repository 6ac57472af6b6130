package enums

import "fmt"

// CouponDiscountType maps to the coupon_discount_type enum in Postgres.
type CouponDiscountType string

const (
	CouponDiscountFixed CouponDiscountType = "fixed"
	CouponDiscountRate  CouponDiscountType = "rate"
)

var validCouponDiscountTypes = []CouponDiscountType{
	CouponDiscountFixed,
	CouponDiscountRate,
}

// IsValid reports whether the value matches the canonical discount type enum.
func (c CouponDiscountType) IsValid() bool {
	for _, candidate := range validCouponDiscountTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCouponDiscountType converts the raw string to CouponDiscountType.
func ParseCouponDiscountType(value string) (CouponDiscountType, error) {
	for _, candidate := range validCouponDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon discount type %q", value)
}
