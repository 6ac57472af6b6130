package carts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/internal/access"
	"github.com/hmkwon/dishpatch-backend/internal/pricing"
	"github.com/hmkwon/dishpatch-backend/pkg/config"
	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
	"github.com/hmkwon/dishpatch-backend/pkg/redis"
)

type snapshotStore interface {
	StoreCartSnapshot(ctx context.Context, customerID, payload string, ttl time.Duration) error
	GetCartSnapshot(ctx context.Context, customerID string) (string, error)
	DeleteCartSnapshot(ctx context.Context, customerID string) error
}

type productFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

type storeLoader interface {
	FindStore(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

type couponFinder interface {
	FindIssued(ctx context.Context, customerID, issuedID uuid.UUID) (*models.IssuedCoupon, error)
}

type orderGate interface {
	CanOrder(ctx context.Context, customerID, storeID uuid.UUID) error
}

// Cart is the customer's Redis-held snapshot. It is client-trusted state:
// every mutation re-checks it against the catalog, and order submission
// re-validates it from scratch.
type Cart struct {
	StoreID uuid.UUID      `json:"store_id"`
	Lines   []pricing.Line `json:"lines"`
}

// QuoteInput selects the optional coupon for a preview quote.
type QuoteInput struct {
	IssuedCouponID *uuid.UUID `json:"issued_coupon_id"`
}

// QuoteResult pairs the cart with its computed price.
type QuoteResult struct {
	Cart    Cart                 `json:"cart"`
	Summary pricing.PriceSummary `json:"summary"`
}

// Service exposes the cart snapshot operations.
type Service interface {
	Get(ctx context.Context, customerID uuid.UUID) (*Cart, error)
	Put(ctx context.Context, customerID uuid.UUID, cart Cart) (*Cart, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
	Quote(ctx context.Context, customerID uuid.UUID, input QuoteInput) (*QuoteResult, error)
}

// ServiceParams carries the cart service dependencies.
type ServiceParams struct {
	Snapshots snapshotStore
	Products  productFinder
	Stores    storeLoader
	Coupons   couponFinder
	Gate      orderGate
	Engine    *pricing.Engine
	Config    config.CartConfig
}

type service struct {
	snapshots snapshotStore
	products  productFinder
	stores    storeLoader
	coupons   couponFinder
	gate      orderGate
	engine    *pricing.Engine
	ttl       time.Duration
}

// NewService builds a cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Snapshots == nil {
		return nil, fmt.Errorf("snapshot store required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if params.Gate == nil {
		return nil, fmt.Errorf("access gate required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	ttl := params.Config.SnapshotTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &service{
		snapshots: params.Snapshots,
		products:  params.Products,
		stores:    params.Stores,
		coupons:   params.Coupons,
		gate:      params.Gate,
		engine:    params.Engine,
		ttl:       ttl,
	}, nil
}

func (s *service) Get(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	payload, err := s.snapshots.GetCartSnapshot(ctx, customerID.String())
	if errors.Is(err, redis.Nil) {
		return &Cart{}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart snapshot")
	}

	var cart Cart
	if err := json.Unmarshal([]byte(payload), &cart); err != nil {
		// A corrupt snapshot is unrecoverable client state; drop it.
		_ = s.snapshots.DeleteCartSnapshot(ctx, customerID.String())
		return &Cart{}, nil
	}
	return &cart, nil
}

// Put replaces the snapshot wholesale. Adding items to a cart that holds
// another store's lines is a conflict with its own message so the client can
// offer to clear first.
func (s *service) Put(ctx context.Context, customerID uuid.UUID, cart Cart) (*Cart, error) {
	if cart.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if len(cart.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart needs at least one line")
	}

	existing, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if existing.StoreID != uuid.Nil && len(existing.Lines) > 0 && existing.StoreID != cart.StoreID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart holds items from another store")
	}

	if err := s.validateLines(ctx, &cart); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cart)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart snapshot")
	}
	if err := s.snapshots.StoreCartSnapshot(ctx, customerID.String(), string(payload), s.ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store cart snapshot")
	}
	return &cart, nil
}

func (s *service) Clear(ctx context.Context, customerID uuid.UUID) error {
	if err := s.snapshots.DeleteCartSnapshot(ctx, customerID.String()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart snapshot")
	}
	return nil
}

func (s *service) Quote(ctx context.Context, customerID uuid.UUID, input QuoteInput) (*QuoteResult, error) {
	cart, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(cart.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	if err := s.gate.CanOrder(ctx, customerID, cart.StoreID); err != nil {
		return nil, err
	}

	store, err := s.stores.FindStore(ctx, cart.StoreID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}

	products, err := s.loadProducts(ctx, cart.Lines)
	if err != nil {
		return nil, err
	}

	var coupon *models.Coupon
	if input.IssuedCouponID != nil {
		issued, err := s.coupons.FindIssued(ctx, customerID, *input.IssuedCouponID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load issued coupon")
		}
		if issued == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		if issued.UsedOrderID != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon already used")
		}
		coupon = issued.Coupon
	}

	quote, err := s.engine.Quote(store, products, cart.Lines, coupon)
	if err != nil {
		return nil, err
	}
	return &QuoteResult{Cart: *cart, Summary: quote.Summary}, nil
}

func (s *service) validateLines(ctx context.Context, cart *Cart) error {
	products, err := s.loadProducts(ctx, cart.Lines)
	if err != nil {
		return err
	}
	for i, line := range cart.Lines {
		if line.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: quantity must be at least 1", i))
		}
		product, ok := products[line.ProductID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: product not found", i))
		}
		if product.StoreID != cart.StoreID {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart holds items from another store")
		}
		if err := access.CanAddToCart(product); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) loadProducts(ctx context.Context, lines []pricing.Line) (map[uuid.UUID]*models.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	return products, nil
}
