package access

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
)

type stubStores struct {
	store *models.Store
	err   error
}

func (s *stubStores) FindStore(context.Context, uuid.UUID) (*models.Store, error) {
	return s.store, s.err
}

type stubBlacklist struct {
	blocked bool
	err     error
}

func (s *stubBlacklist) IsBlacklisted(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return s.blocked, s.err
}

type stubOrders struct {
	order *models.Order
	err   error
}

func (s *stubOrders) FindOrder(context.Context, uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

type stubReviews struct {
	exists bool
	err    error
}

func (s *stubReviews) ReviewExists(context.Context, uuid.UUID) (bool, error) {
	return s.exists, s.err
}

type gateFixture struct {
	stores    *stubStores
	blacklist *stubBlacklist
	orders    *stubOrders
	reviews   *stubReviews
	now       time.Time
}

func newGate(t *testing.T, f *gateFixture) *Gate {
	t.Helper()
	gate, err := NewGate(GateParams{
		Stores:    f.stores,
		Blacklist: f.blacklist,
		Orders:    f.orders,
		Reviews:   f.reviews,
		Now:       func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	return gate
}

func openStore() *models.Store {
	return &models.Store{ID: uuid.New()}
}

func TestCanOrderBlacklistedCustomer(t *testing.T) {
	f := &gateFixture{
		stores:    &stubStores{store: openStore()},
		blacklist: &stubBlacklist{blocked: true},
		orders:    &stubOrders{},
		reviews:   &stubReviews{},
		now:       time.Now(),
	}
	gate := newGate(t, f)

	err := gate.CanOrder(context.Background(), uuid.New(), f.stores.store.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCanOrderManuallyClosedStore(t *testing.T) {
	store := openStore()
	store.ManuallyClosed = true
	f := &gateFixture{
		stores:    &stubStores{store: store},
		blacklist: &stubBlacklist{},
		orders:    &stubOrders{},
		reviews:   &stubReviews{},
		now:       time.Now(),
	}
	gate := newGate(t, f)

	err := gate.CanOrder(context.Background(), uuid.New(), store.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation rejection, got %v", err)
	}
}

func TestCanOrderHappyPath(t *testing.T) {
	f := &gateFixture{
		stores:    &stubStores{store: openStore()},
		blacklist: &stubBlacklist{},
		orders:    &stubOrders{},
		reviews:   &stubReviews{},
		now:       time.Now(),
	}
	gate := newGate(t, f)

	if err := gate.CanOrder(context.Background(), uuid.New(), f.stores.store.ID); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestCanReviewRules(t *testing.T) {
	customerID := uuid.New()
	storeID := uuid.New()
	orderID := uuid.New()

	base := func() *gateFixture {
		return &gateFixture{
			stores:    &stubStores{store: &models.Store{ID: storeID}},
			blacklist: &stubBlacklist{},
			orders: &stubOrders{order: &models.Order{
				ID:         orderID,
				StoreID:    storeID,
				CustomerID: customerID,
				Status:     enums.OrderStatusCompleted,
			}},
			reviews: &stubReviews{},
			now:     time.Now(),
		}
	}

	t.Run("allows completed unreviewed own order", func(t *testing.T) {
		gate := newGate(t, base())
		if err := gate.CanReview(context.Background(), customerID, storeID, orderID); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
	})

	t.Run("blacklist blocks review even when all else holds", func(t *testing.T) {
		f := base()
		f.blacklist.blocked = true
		gate := newGate(t, f)
		if err := gate.CanReview(context.Background(), customerID, storeID, orderID); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("foreign order is forbidden", func(t *testing.T) {
		f := base()
		f.orders.order.CustomerID = uuid.New()
		gate := newGate(t, f)
		if err := gate.CanReview(context.Background(), customerID, storeID, orderID); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("incomplete order is rejected", func(t *testing.T) {
		f := base()
		f.orders.order.Status = enums.OrderStatusDelivering
		gate := newGate(t, f)
		if err := gate.CanReview(context.Background(), customerID, storeID, orderID); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation rejection, got %v", err)
		}
	})

	t.Run("duplicate review conflicts", func(t *testing.T) {
		f := base()
		f.reviews.exists = true
		gate := newGate(t, f)
		if err := gate.CanReview(context.Background(), customerID, storeID, orderID); !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})
}

func TestCanAddToCart(t *testing.T) {
	zero := 0
	five := 5

	if err := CanAddToCart(&models.Product{Name: "x", IsAvailable: true}); err != nil {
		t.Fatalf("untracked stock should be addable: %v", err)
	}
	if err := CanAddToCart(&models.Product{Name: "x", IsAvailable: true, StockQty: &five}); err != nil {
		t.Fatalf("in-stock should be addable: %v", err)
	}
	if err := CanAddToCart(&models.Product{Name: "x", IsAvailable: true, StockQty: &zero}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("sold out must reject, got %v", err)
	}
	if err := CanAddToCart(&models.Product{Name: "x", IsAvailable: false}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("unavailable must reject, got %v", err)
	}
}

func TestOrderableNowWeeklyHours(t *testing.T) {
	storeID := uuid.New()
	// Tuesday window 11:00-21:00
	store := &models.Store{
		ID: storeID,
		OperatingHours: []models.OperatingHour{
			{StoreID: storeID, DayOfWeek: 2, OpenTime: "11:00", CloseTime: "21:00"},
		},
	}

	tuesdayNoon := time.Date(2026, 8, 18, 12, 0, 0, 0, time.UTC) // Tuesday
	if !OrderableNow(store, tuesdayNoon) {
		t.Fatalf("expected open during window")
	}

	tuesdayLate := time.Date(2026, 8, 18, 22, 0, 0, 0, time.UTC)
	if OrderableNow(store, tuesdayLate) {
		t.Fatalf("expected closed after window")
	}

	wednesdayNoon := time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)
	if OrderableNow(store, wednesdayNoon) {
		t.Fatalf("expected closed on day without hours")
	}
}

func TestOrderableNowOvernightWindow(t *testing.T) {
	storeID := uuid.New()
	// Friday 18:00 through Saturday 02:00
	store := &models.Store{
		ID: storeID,
		OperatingHours: []models.OperatingHour{
			{StoreID: storeID, DayOfWeek: 5, OpenTime: "18:00", CloseTime: "02:00"},
		},
	}

	fridayNight := time.Date(2026, 8, 21, 23, 30, 0, 0, time.UTC) // Friday
	if !OrderableNow(store, fridayNight) {
		t.Fatalf("expected open late Friday")
	}

	saturdayEarly := time.Date(2026, 8, 22, 1, 30, 0, 0, time.UTC) // Saturday 01:30
	if !OrderableNow(store, saturdayEarly) {
		t.Fatalf("expected overnight window to spill into Saturday")
	}

	saturdayMorning := time.Date(2026, 8, 22, 3, 0, 0, 0, time.UTC)
	if OrderableNow(store, saturdayMorning) {
		t.Fatalf("expected closed after overnight close")
	}
}

func TestOrderableNowDayOff(t *testing.T) {
	storeID := uuid.New()
	store := &models.Store{
		ID: storeID,
		OperatingHours: []models.OperatingHour{
			{StoreID: storeID, DayOfWeek: 1, OpenTime: "09:00", CloseTime: "18:00", IsDayOff: true},
		},
	}

	mondayNoon := time.Date(2026, 8, 17, 12, 0, 0, 0, time.UTC) // Monday
	if OrderableNow(store, mondayNoon) {
		t.Fatalf("expected closed on day off")
	}
}
