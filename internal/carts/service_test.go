package carts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/internal/pricing"
	"github.com/hmkwon/dishpatch-backend/pkg/config"
	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
	"github.com/hmkwon/dishpatch-backend/pkg/redis"
)

type memorySnapshots struct {
	values map[string]string
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{values: make(map[string]string)}
}

func (m *memorySnapshots) StoreCartSnapshot(_ context.Context, customerID, payload string, _ time.Duration) error {
	m.values[customerID] = payload
	return nil
}

func (m *memorySnapshots) GetCartSnapshot(_ context.Context, customerID string) (string, error) {
	v, ok := m.values[customerID]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memorySnapshots) DeleteCartSnapshot(_ context.Context, customerID string) error {
	delete(m.values, customerID)
	return nil
}

type stubProducts struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProducts) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product)
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type stubStores struct {
	stores map[uuid.UUID]*models.Store
}

func (s *stubStores) FindStore(_ context.Context, id uuid.UUID) (*models.Store, error) {
	return s.stores[id], nil
}

type stubCoupons struct {
	issued map[uuid.UUID]*models.IssuedCoupon
}

func (s *stubCoupons) FindIssued(_ context.Context, customerID, issuedID uuid.UUID) (*models.IssuedCoupon, error) {
	issued, ok := s.issued[issuedID]
	if !ok || issued.CustomerID != customerID {
		return nil, nil
	}
	return issued, nil
}

type stubGate struct {
	err error
}

func (s *stubGate) CanOrder(context.Context, uuid.UUID, uuid.UUID) error {
	return s.err
}

type cartFixture struct {
	svc        Service
	snapshots  *memorySnapshots
	gate       *stubGate
	coupons    *stubCoupons
	customerID uuid.UUID
	storeID    uuid.UUID
	productID  uuid.UUID
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	storeID := uuid.New()
	productID := uuid.New()
	snapshots := newMemorySnapshots()
	gate := &stubGate{}
	coupons := &stubCoupons{issued: make(map[uuid.UUID]*models.IssuedCoupon)}

	svc, err := NewService(ServiceParams{
		Snapshots: snapshots,
		Products: &stubProducts{products: map[uuid.UUID]*models.Product{
			productID: {ID: productID, StoreID: storeID, Name: "japchae", BasePrice: 8000, IsAvailable: true},
		}},
		Stores: &stubStores{stores: map[uuid.UUID]*models.Store{
			storeID: {ID: storeID, DeliveryFee: 2000},
		}},
		Coupons: coupons,
		Gate:    gate,
		Engine:  pricing.NewEngine(),
		Config:  config.CartConfig{SnapshotTTL: time.Hour},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &cartFixture{
		svc:        svc,
		snapshots:  snapshots,
		gate:       gate,
		coupons:    coupons,
		customerID: uuid.New(),
		storeID:    storeID,
		productID:  productID,
	}
}

func TestGetMissingCartIsEmpty(t *testing.T) {
	f := newCartFixture(t)
	cart, err := f.svc.Get(context.Background(), f.customerID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cart.StoreID != uuid.Nil || len(cart.Lines) != 0 {
		t.Fatalf("expected empty cart, got %+v", cart)
	}
}

func TestPutThenGetRoundTrip(t *testing.T) {
	f := newCartFixture(t)
	put, err := f.svc.Put(context.Background(), f.customerID, Cart{
		StoreID: f.storeID,
		Lines:   []pricing.Line{{ProductID: f.productID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if put.StoreID != f.storeID {
		t.Fatalf("unexpected cart %+v", put)
	}

	got, err := f.svc.Get(context.Background(), f.customerID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Lines) != 1 || got.Lines[0].Quantity != 2 {
		t.Fatalf("snapshot did not round trip: %+v", got)
	}
}

func TestPutCrossStoreConflicts(t *testing.T) {
	f := newCartFixture(t)
	if _, err := f.svc.Put(context.Background(), f.customerID, Cart{
		StoreID: f.storeID,
		Lines:   []pricing.Line{{ProductID: f.productID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, err := f.svc.Put(context.Background(), f.customerID, Cart{
		StoreID: uuid.New(),
		Lines:   []pricing.Line{{ProductID: f.productID, Quantity: 1}},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// clear first, then the new store is fine if its products line up
	if err := f.svc.Clear(context.Background(), f.customerID); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := f.svc.Put(context.Background(), f.customerID, Cart{
		StoreID: f.storeID,
		Lines:   []pricing.Line{{ProductID: f.productID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("Put after clear: %v", err)
	}
}

func TestPutRejectsProductFromAnotherStore(t *testing.T) {
	f := newCartFixture(t)
	_, err := f.svc.Put(context.Background(), f.customerID, Cart{
		StoreID: uuid.New(),
		Lines:   []pricing.Line{{ProductID: f.productID, Quantity: 1}},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestQuotePricesTheSnapshot(t *testing.T) {
	f := newCartFixture(t)
	if _, err := f.svc.Put(context.Background(), f.customerID, Cart{
		StoreID: f.storeID,
		Lines:   []pricing.Line{{ProductID: f.productID, Quantity: 3}},
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	result, err := f.svc.Quote(context.Background(), f.customerID, QuoteInput{})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if result.Summary.ItemSubtotal != 24000 || result.Summary.Total != 26000 {
		t.Fatalf("unexpected summary %+v", result.Summary)
	}
}

func TestQuoteWithIssuedCoupon(t *testing.T) {
	f := newCartFixture(t)
	if _, err := f.svc.Put(context.Background(), f.customerID, Cart{
		StoreID: f.storeID,
		Lines:   []pricing.Line{{ProductID: f.productID, Quantity: 3}},
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	issuedID := uuid.New()
	f.coupons.issued[issuedID] = &models.IssuedCoupon{
		ID:         issuedID,
		CustomerID: f.customerID,
		Coupon:     &models.Coupon{ID: uuid.New(), Amount: 2000},
	}

	result, err := f.svc.Quote(context.Background(), f.customerID, QuoteInput{IssuedCouponID: &issuedID})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if result.Summary.Discount != 2000 || result.Summary.Total != 24000 {
		t.Fatalf("unexpected summary %+v", result.Summary)
	}
}

func TestQuoteRejectsUsedCoupon(t *testing.T) {
	f := newCartFixture(t)
	if _, err := f.svc.Put(context.Background(), f.customerID, Cart{
		StoreID: f.storeID,
		Lines:   []pricing.Line{{ProductID: f.productID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	issuedID := uuid.New()
	usedOrder := uuid.New()
	f.coupons.issued[issuedID] = &models.IssuedCoupon{
		ID:          issuedID,
		CustomerID:  f.customerID,
		UsedOrderID: &usedOrder,
		Coupon:      &models.Coupon{ID: uuid.New(), Amount: 2000},
	}

	_, err := f.svc.Quote(context.Background(), f.customerID, QuoteInput{IssuedCouponID: &issuedID})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuotePropagatesGateRejection(t *testing.T) {
	f := newCartFixture(t)
	if _, err := f.svc.Put(context.Background(), f.customerID, Cart{
		StoreID: f.storeID,
		Lines:   []pricing.Line{{ProductID: f.productID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	f.gate.err = pkgerrors.New(pkgerrors.CodeForbidden, "blocked by store")
	if _, err := f.svc.Quote(context.Background(), f.customerID, QuoteInput{}); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestGetDropsCorruptSnapshot(t *testing.T) {
	f := newCartFixture(t)
	f.snapshots.values[f.customerID.String()] = "{not json"

	cart, err := f.svc.Get(context.Background(), f.customerID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("expected empty cart, got %+v", cart)
	}
	if _, ok := f.snapshots.values[f.customerID.String()]; ok {
		t.Fatalf("corrupt snapshot should be deleted")
	}
}
