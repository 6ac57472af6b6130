package access

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
)

type storeLoader interface {
	FindStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
}

type blacklistChecker interface {
	IsBlacklisted(ctx context.Context, storeID, userID uuid.UUID) (bool, error)
}

type orderLoader interface {
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type reviewChecker interface {
	ReviewExists(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// Gate answers the ordering-permission questions every mutating flow asks
// before it acts. It is pure policy over injected loaders; the mutating
// services call the same gate again inside their transactions so a stale
// client answer never becomes authoritative.
type Gate struct {
	stores    storeLoader
	blacklist blacklistChecker
	orders    orderLoader
	reviews   reviewChecker
	now       func() time.Time
}

// GateParams carries the Gate dependencies.
type GateParams struct {
	Stores    storeLoader
	Blacklist blacklistChecker
	Orders    orderLoader
	Reviews   reviewChecker
	Now       func() time.Time
}

// NewGate builds an access gate.
func NewGate(params GateParams) (*Gate, error) {
	if params.Stores == nil {
		return nil, fmt.Errorf("store loader required")
	}
	if params.Blacklist == nil {
		return nil, fmt.Errorf("blacklist checker required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if params.Reviews == nil {
		return nil, fmt.Errorf("review checker required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Gate{
		stores:    params.Stores,
		blacklist: params.Blacklist,
		orders:    params.Orders,
		reviews:   params.Reviews,
		now:       now,
	}, nil
}

// CanOrder reports whether the customer may submit an order to the store
// right now. Blacklisting is a permission rejection; a closed store is a
// validation rejection the customer can recover from by waiting.
func (g *Gate) CanOrder(ctx context.Context, customerID, storeID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	blocked, err := g.blacklist.IsBlacklisted(ctx, storeID, customerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check blacklist")
	}
	if blocked {
		return pkgerrors.New(pkgerrors.CodeForbidden, "blocked by store")
	}

	store, err := g.stores.FindStore(ctx, storeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	if !OrderableNow(store, g.now()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "store is closed")
	}
	return nil
}

// CanReview reports whether the customer may review the given order: same
// blacklist rule as ordering, plus ownership, a completed order, and no
// existing review.
func (g *Gate) CanReview(ctx context.Context, customerID, storeID, orderID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	blocked, err := g.blacklist.IsBlacklisted(ctx, storeID, customerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check blacklist")
	}
	if blocked {
		return pkgerrors.New(pkgerrors.CodeForbidden, "blocked by store")
	}

	order, err := g.orders.FindOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.CustomerID != customerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
	}
	if order.StoreID != storeID {
		return pkgerrors.New(pkgerrors.CodeValidation, "order does not belong to store")
	}
	if order.Status != enums.OrderStatusCompleted {
		return pkgerrors.New(pkgerrors.CodeValidation, "only completed orders can be reviewed")
	}

	exists, err := g.reviews.ReviewExists(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing review")
	}
	if exists {
		return pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed")
	}
	return nil
}

// CanAddToCart reports whether a product may enter a cart at all.
func CanAddToCart(product *models.Product) error {
	if product == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if !product.IsAvailable {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is unavailable", product.Name))
	}
	if product.StockQty != nil && *product.StockQty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is sold out", product.Name))
	}
	return nil
}

// OrderableNow applies the manual closure flag and the weekly hours. A close
// time earlier than the open time is an overnight window that spills into
// the following day.
func OrderableNow(store *models.Store, now time.Time) bool {
	if store.ManuallyClosed {
		return false
	}
	if len(store.OperatingHours) == 0 {
		return true
	}

	minutes := now.Hour()*60 + now.Minute()
	today := int(now.Weekday())
	yesterday := (today + 6) % 7

	for _, h := range store.OperatingHours {
		if h.IsDayOff {
			continue
		}
		open, okOpen := parseClock(h.OpenTime)
		closeAt, okClose := parseClock(h.CloseTime)
		if !okOpen || !okClose {
			continue
		}
		if open < closeAt {
			if h.DayOfWeek == today && minutes >= open && minutes < closeAt {
				return true
			}
			continue
		}
		// overnight: open today until midnight, or before close on the day after
		if h.DayOfWeek == today && minutes >= open {
			return true
		}
		if h.DayOfWeek == yesterday && minutes < closeAt {
			return true
		}
	}
	return false
}

func parseClock(value string) (int, bool) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
