package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
)

func testStore() *models.Store {
	return &models.Store{
		ID:          uuid.New(),
		DeliveryFee: 3000,
	}
}

// testProduct builds a 10000-won product with a single +1000 option.
func testProduct(storeID uuid.UUID) (*models.Product, uuid.UUID) {
	productID := uuid.New()
	optionID := uuid.New()
	return &models.Product{
		ID:          productID,
		StoreID:     storeID,
		Name:        "bulgogi bowl",
		BasePrice:   10000,
		IsAvailable: true,
		OptionGroups: []models.OptionGroup{
			{
				ID:        uuid.New(),
				ProductID: productID,
				Name:      "extras",
				Options: []models.ProductOption{
					{ID: optionID, Name: "extra rice", Surcharge: 1000},
				},
			},
		},
	}, optionID
}

func quoteFixture() (*models.Store, map[uuid.UUID]*models.Product, []Line) {
	store := testStore()
	product, optionID := testProduct(store.ID)
	lines := []Line{{ProductID: product.ID, Quantity: 2, OptionIDs: []uuid.UUID{optionID}}}
	return store, map[uuid.UUID]*models.Product{product.ID: product}, lines
}

func TestQuoteScenarioA_NoCoupon(t *testing.T) {
	store, products, lines := quoteFixture()

	q, err := NewEngine().Quote(store, products, lines, nil)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Summary.ItemSubtotal != 22000 {
		t.Fatalf("expected subtotal 22000, got %d", q.Summary.ItemSubtotal)
	}
	if q.Summary.Total != 25000 {
		t.Fatalf("expected total 25000, got %d", q.Summary.Total)
	}
	if q.Summary.Discount != 0 || q.Summary.CouponRejected {
		t.Fatalf("no coupon must mean no discount state, got %+v", q.Summary)
	}
	if len(q.Lines) != 1 || q.Lines[0].LineTotal != 22000 {
		t.Fatalf("unexpected line breakdown %+v", q.Lines)
	}
}

func TestQuoteScenarioB_EligibleCoupon(t *testing.T) {
	store, products, lines := quoteFixture()
	coupon := &models.Coupon{
		ID:             uuid.New(),
		DiscountType:   enums.CouponDiscountFixed,
		Amount:         3000,
		MinOrderAmount: 20000,
	}

	q, err := NewEngine().Quote(store, products, lines, coupon)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Summary.Discount != 3000 {
		t.Fatalf("expected discount 3000, got %d", q.Summary.Discount)
	}
	if q.Summary.Total != 22000 {
		t.Fatalf("expected total 22000, got %d", q.Summary.Total)
	}
}

func TestQuoteScenarioC_CouponBelowMinimumIsSoftRejected(t *testing.T) {
	store, products, lines := quoteFixture()
	coupon := &models.Coupon{
		ID:             uuid.New(),
		DiscountType:   enums.CouponDiscountFixed,
		Amount:         3000,
		MinOrderAmount: 30000,
	}

	q, err := NewEngine().Quote(store, products, lines, coupon)
	if err != nil {
		t.Fatalf("coupon ineligibility must not fail the quote: %v", err)
	}
	if !q.Summary.CouponRejected || q.Summary.CouponRejectReason != CouponRejectBelowMinimum {
		t.Fatalf("expected soft rejection, got %+v", q.Summary)
	}
	if q.Summary.Discount != 0 {
		t.Fatalf("rejected coupon must not discount, got %d", q.Summary.Discount)
	}
	if q.Summary.Total != 25000 {
		t.Fatalf("expected total 25000, got %d", q.Summary.Total)
	}
}

func TestQuoteRateCouponFloorsWithDecimal(t *testing.T) {
	store, products, lines := quoteFixture()
	coupon := &models.Coupon{
		ID:           uuid.New(),
		DiscountType: enums.CouponDiscountRate,
		Rate:         decimal.RequireFromString("0.0333"),
	}

	q, err := NewEngine().Quote(store, products, lines, coupon)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	// floor(0.0333 * 22000) = floor(732.6) = 732
	if q.Summary.Discount != 732 {
		t.Fatalf("expected floored discount 732, got %d", q.Summary.Discount)
	}
}

func TestQuoteDiscountClampAndNonNegativeTotal(t *testing.T) {
	store, products, lines := quoteFixture()
	coupon := &models.Coupon{
		ID:           uuid.New(),
		DiscountType: enums.CouponDiscountFixed,
		Amount:       1000000,
	}

	q, err := NewEngine().Quote(store, products, lines, coupon)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Summary.Discount != 25000 {
		t.Fatalf("discount must clamp to charged amount, got %d", q.Summary.Discount)
	}
	if q.Summary.Total != 0 {
		t.Fatalf("total must never go negative, got %d", q.Summary.Total)
	}
}

func TestQuoteExpiredCouponIsSoftRejected(t *testing.T) {
	store, products, lines := quoteFixture()
	expired := time.Now().Add(-time.Hour)
	coupon := &models.Coupon{
		ID:           uuid.New(),
		DiscountType: enums.CouponDiscountFixed,
		Amount:       3000,
		ExpiresAt:    &expired,
	}

	q, err := NewEngine().Quote(store, products, lines, coupon)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !q.Summary.CouponRejected || q.Summary.CouponRejectReason != CouponRejectExpired {
		t.Fatalf("expected expiry soft rejection, got %+v", q.Summary)
	}
}

func TestQuoteRejectsCrossStoreLines(t *testing.T) {
	store, products, lines := quoteFixture()
	foreign, _ := testProduct(uuid.New())
	products[foreign.ID] = foreign
	lines = append(lines, Line{ProductID: foreign.ID, Quantity: 1})

	_, err := NewEngine().Quote(store, products, lines, nil)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuoteRejectsEmptyCart(t *testing.T) {
	store, products, _ := quoteFixture()
	_, err := NewEngine().Quote(store, products, nil, nil)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuoteRejectsBelowStoreMinimum(t *testing.T) {
	store, products, lines := quoteFixture()
	store.MinOrderAmount = 50000

	_, err := NewEngine().Quote(store, products, lines, nil)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "below store minimum" {
		t.Fatalf("store minimum must be a distinct message, got %v", err)
	}
}

func TestQuoteRejectsUnavailableAndSoldOut(t *testing.T) {
	store, products, lines := quoteFixture()
	for _, p := range products {
		p.IsAvailable = false
	}
	if _, err := NewEngine().Quote(store, products, lines, nil); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unavailable product, got %v", err)
	}

	store2, products2, lines2 := quoteFixture()
	one := 1
	for _, p := range products2 {
		p.StockQty = &one
	}
	if _, err := NewEngine().Quote(store2, products2, lines2, nil); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for stock shortfall, got %v", err)
	}
}

func TestQuoteRejectsForeignOption(t *testing.T) {
	store, products, lines := quoteFixture()
	lines[0].OptionIDs = append(lines[0].OptionIDs, uuid.New())

	_, err := NewEngine().Quote(store, products, lines, nil)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
