package pricing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
)

// Line is one cart entry pointing at a product and its selected options.
type Line struct {
	ProductID uuid.UUID   `json:"productId"`
	Quantity  int         `json:"quantity"`
	OptionIDs []uuid.UUID `json:"optionIds,omitempty"`
}

// CouponRejectReason explains why an attached coupon contributed no discount.
type CouponRejectReason string

const (
	CouponRejectBelowMinimum CouponRejectReason = "below coupon minimum"
	CouponRejectExpired      CouponRejectReason = "coupon expired"
)

// PriceSummary is the frozen result of a quote. All amounts are integral won.
type PriceSummary struct {
	ItemSubtotal int `json:"itemSubtotal"`
	DeliveryFee  int `json:"deliveryFee"`
	Discount     int `json:"discount"`
	Total        int `json:"total"`

	// CouponRejected is set when a coupon was supplied but contributed no
	// discount. The quote itself still succeeds; the client decides whether
	// to proceed without the coupon.
	CouponRejected     bool               `json:"couponRejected,omitempty"`
	CouponRejectReason CouponRejectReason `json:"couponRejectReason,omitempty"`
}

// LinePrice carries the per-line breakdown alongside the summary so order
// submission can freeze unit prices without recomputing.
type LinePrice struct {
	Line          Line
	ProductName   string
	UnitBasePrice int
	UnitSurcharge int
	Options       []OptionPrice
	LineTotal     int
}

// OptionPrice freezes a resolved option selection.
type OptionPrice struct {
	OptionID  uuid.UUID
	Name      string
	Surcharge int
}

// Quote is the full output of the engine.
type Quote struct {
	Summary PriceSummary
	Lines   []LinePrice
}

// Engine recomputes order pricing from authoritative inputs on every call.
// It holds no state; the same inputs always produce the same quote.
type Engine struct {
	now func() time.Time
}

// NewEngine builds a pricing engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineWithClock builds an engine with an injected clock for tests.
func NewEngineWithClock(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Quote prices the given lines against the store's policy and an optional
// coupon. Inputs are trusted to be freshly loaded; the engine never reads
// storage itself. Structural problems (empty cart, cross-store lines,
// unavailable products, stock shortfall, store minimum violation) are hard
// errors; a coupon that fails its own eligibility is reported softly on the
// summary instead.
func (e *Engine) Quote(store *models.Store, products map[uuid.UUID]*models.Product, lines []Line, coupon *models.Coupon) (*Quote, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store required")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	priced := make([]LinePrice, 0, len(lines))
	subtotal := 0

	for i, line := range lines {
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: quantity must be at least 1", i))
		}
		product, ok := products[line.ProductID]
		if !ok || product == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: product not found", i))
		}
		if product.StoreID != store.ID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart lines span multiple stores")
		}
		if !product.IsAvailable {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is unavailable", product.Name))
		}
		if product.StockQty != nil && *product.StockQty < line.Quantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s has insufficient stock", product.Name))
		}

		options, surcharge, err := resolveOptions(product, line.OptionIDs)
		if err != nil {
			return nil, err
		}

		unit := product.BasePrice + surcharge
		lineTotal := unit * line.Quantity
		subtotal += lineTotal

		priced = append(priced, LinePrice{
			Line:          line,
			ProductName:   product.Name,
			UnitBasePrice: product.BasePrice,
			UnitSurcharge: surcharge,
			Options:       options,
			LineTotal:     lineTotal,
		})
	}

	if subtotal < store.MinOrderAmount {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "below store minimum")
	}

	summary := PriceSummary{
		ItemSubtotal: subtotal,
		DeliveryFee:  store.DeliveryFee,
	}

	if coupon != nil {
		discount, reason := e.couponDiscount(coupon, subtotal)
		if reason != "" {
			summary.CouponRejected = true
			summary.CouponRejectReason = reason
		} else {
			// Discount never exceeds what is actually being charged.
			charged := subtotal + store.DeliveryFee
			if discount > charged {
				discount = charged
			}
			summary.Discount = discount
		}
	}

	total := subtotal + store.DeliveryFee - summary.Discount
	if total < 0 {
		total = 0
	}
	summary.Total = total

	return &Quote{Summary: summary, Lines: priced}, nil
}

func (e *Engine) couponDiscount(coupon *models.Coupon, subtotal int) (int, CouponRejectReason) {
	if coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(e.now()) {
		return 0, CouponRejectExpired
	}
	if subtotal < coupon.MinOrderAmount {
		return 0, CouponRejectBelowMinimum
	}
	switch coupon.DiscountType {
	case enums.CouponDiscountRate:
		// floor(rate * subtotal), computed in decimal to avoid float drift
		d := coupon.Rate.Mul(decimal.NewFromInt(int64(subtotal))).Floor()
		return int(d.IntPart()), ""
	default:
		return coupon.Amount, ""
	}
}

func resolveOptions(product *models.Product, optionIDs []uuid.UUID) ([]OptionPrice, int, error) {
	if len(optionIDs) == 0 {
		return nil, 0, nil
	}

	byID := make(map[uuid.UUID]OptionPrice)
	for _, group := range product.OptionGroups {
		for _, opt := range group.Options {
			byID[opt.ID] = OptionPrice{OptionID: opt.ID, Name: opt.Name, Surcharge: opt.Surcharge}
		}
	}

	options := make([]OptionPrice, 0, len(optionIDs))
	surcharge := 0
	for _, id := range optionIDs {
		opt, ok := byID[id]
		if !ok {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("option %s does not belong to %s", id, product.Name))
		}
		options = append(options, opt)
		surcharge += opt.Surcharge
	}
	return options, surcharge, nil
}
