package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hmkwon/dishpatch-backend/internal/pricing"
	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
	"github.com/hmkwon/dishpatch-backend/pkg/metrics"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox/payloads"
	"github.com/hmkwon/dishpatch-backend/pkg/pagination"
)

// Service drives the order lifecycle: submission, reads, and the status
// state machine.
type Service interface {
	Submit(ctx context.Context, customerID uuid.UUID, input SubmitOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListMine(ctx context.Context, customerID uuid.UUID, params pagination.Params) (pagination.Page[OrderDTO], error)
	ListForStore(ctx context.Context, ownerID, storeID uuid.UUID, params pagination.Params) (pagination.Page[OrderDTO], error)
	Transition(ctx context.Context, actor Actor, orderID uuid.UUID, to enums.OrderStatus) (*OrderDTO, error)

	// CompleteDeliveredTx runs the DELIVERING to COMPLETED transition inside
	// the caller's transaction. The delivery service invokes it when a rider
	// marks the handoff done so both rows commit together.
	CompleteDeliveredTx(ctx context.Context, tx *gorm.DB, riderID, orderID uuid.UUID) error
}

// ServiceParams carries the order service dependencies.
type ServiceParams struct {
	DB       txRunner
	Repo     orderRepository
	Stores   storeLoader
	Products productFinder
	Stock    stockKeeper
	Coupons  couponKeeper
	Gate     orderGate
	Engine   *pricing.Engine
	Outbox   outboxEmitter
	Metrics  *metrics.CoreMetrics
	Now      func() time.Time
}

type service struct {
	db       txRunner
	repo     orderRepository
	stores   storeLoader
	products productFinder
	stock    stockKeeper
	coupons  couponKeeper
	gate     orderGate
	engine   *pricing.Engine
	outbox   outboxEmitter
	metrics  *metrics.CoreMetrics
	now      func() time.Time
}

// NewService builds an order service, validating every dependency.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock keeper required")
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
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		stores:   params.Stores,
		products: params.Products,
		stock:    params.Stock,
		coupons:  params.Coupons,
		gate:     params.Gate,
		engine:   params.Engine,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// Submit re-validates the untrusted cart, freezes prices, reserves stock,
// redeems the coupon, and creates the PENDING order with its outbox event in
// one transaction.
func (s *service) Submit(ctx context.Context, customerID uuid.UUID, input SubmitOrderInput) (*OrderDTO, error) {
	order, err := s.submit(ctx, customerID, input)
	if err != nil {
		s.metrics.IncOrderSubmission("rejected")
		return nil, err
	}
	s.metrics.IncOrderSubmission("accepted")
	return order, nil
}

func (s *service) submit(ctx context.Context, customerID uuid.UUID, input SubmitOrderInput) (*OrderDTO, error) {
	if err := s.gate.CanOrder(ctx, customerID, input.StoreID); err != nil {
		return nil, err
	}

	store, err := s.stores.FindStore(ctx, input.StoreID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}

	products, err := s.loadProducts(ctx, input.Lines)
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

	quote, err := s.engine.Quote(store, products, input.Lines, coupon)
	if err != nil {
		return nil, err
	}
	// A preview quote tolerates an ineligible coupon; a submission that
	// names one is a hard rejection so money never silently differs from
	// what the customer confirmed.
	if quote.Summary.CouponRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, string(quote.Summary.CouponRejectReason))
	}

	order := buildOrder(customerID, store, quote, input)

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateWithTx(tx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for _, line := range quote.Lines {
			reserved, err := s.stock.DecrementStockWithTx(tx, line.Line.ProductID, line.Line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
			}
			if !reserved {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s has insufficient stock", line.ProductName))
			}
		}
		if input.IssuedCouponID != nil {
			redeemed, err := s.coupons.MarkUsedWithTx(tx, *input.IssuedCouponID, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem coupon")
			}
			if !redeemed {
				return pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: customerID, Role: string(enums.RoleCustomer)},
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				StoreID:    order.StoreID,
				CustomerID: customerID,
				Total:      order.Total,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func buildOrder(customerID uuid.UUID, store *models.Store, quote *pricing.Quote, input SubmitOrderInput) *models.Order {
	lines := make([]models.OrderLine, 0, len(quote.Lines))
	for _, lp := range quote.Lines {
		options := make([]models.OrderLineOption, 0, len(lp.Options))
		for _, op := range lp.Options {
			options = append(options, models.OrderLineOption{
				OptionID:   op.OptionID,
				OptionName: op.Name,
				Surcharge:  op.Surcharge,
			})
		}
		lines = append(lines, models.OrderLine{
			ProductID:   lp.Line.ProductID,
			ProductName: lp.ProductName,
			UnitPrice:   lp.UnitBasePrice,
			Quantity:    lp.Line.Quantity,
			Options:     options,
		})
	}

	var couponID *uuid.UUID
	if input.IssuedCouponID != nil {
		couponID = input.IssuedCouponID
	}
	return &models.Order{
		StoreID:      store.ID,
		CustomerID:   customerID,
		Status:       enums.OrderStatusPending,
		ItemSubtotal: quote.Summary.ItemSubtotal,
		DeliveryFee:  quote.Summary.DeliveryFee,
		Discount:     quote.Summary.Discount,
		Total:        quote.Summary.Total,
		CouponID:     couponID,
		RequestNote:  input.RequestNote,
		Lines:        lines,
	}
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, actor, order); err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func (s *service) ListMine(ctx context.Context, customerID uuid.UUID, params pagination.Params) (pagination.Page[OrderDTO], error) {
	rows, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return buildOrderPage(rows, params.Limit), nil
}

func (s *service) ListForStore(ctx context.Context, ownerID, storeID uuid.UUID, params pagination.Params) (pagination.Page[OrderDTO], error) {
	store, err := s.stores.FindStore(ctx, storeID)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store == nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	if store.OwnerID != ownerID {
		return pagination.Page[OrderDTO]{}, pkgerrors.New(pkgerrors.CodeForbidden, "store does not belong to owner")
	}

	rows, err := s.repo.ListByStore(ctx, storeID, params)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list store orders")
	}
	return buildOrderPage(rows, params.Limit), nil
}

func buildOrderPage(rows []models.Order, limit int) pagination.Page[OrderDTO] {
	dtos := make([]OrderDTO, 0, len(rows))
	created := make(map[uuid.UUID]time.Time, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
		created[rows[i].ID] = rows[i].CreatedAt
	}
	return pagination.BuildPage(dtos, limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: created[o.ID], ID: o.ID}
	})
}

// Transition applies one step of the lifecycle table. Re-applying the current
// status is a state conflict, not an idempotent success: the caller is acting
// on stale data and must re-read.
func (s *service) Transition(ctx context.Context, actor Actor, orderID uuid.UUID, to enums.OrderStatus) (*OrderDTO, error) {
	dto, err := s.transition(ctx, actor, orderID, to)
	if err != nil {
		s.metrics.IncOrderTransition(string(to), "rejected")
		return nil, err
	}
	s.metrics.IncOrderTransition(string(to), "applied")
	return dto, nil
}

func (s *service) transition(ctx context.Context, actor Actor, orderID uuid.UUID, to enums.OrderStatus) (*OrderDTO, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var updated *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.FindOrderWithTx(tx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status == to {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is already %s", to))
		}
		if !transitionAllowed(order.Status, to) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move %s order to %s", order.Status, to))
		}
		if err := s.authorizeTransition(ctx, actor, order, to); err != nil {
			return err
		}

		if err := s.applyTransition(ctx, tx, order, to, actor); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// CompleteDeliveredTx is the delivery flow's entry into the order state
// machine: rider hands off, order completes, one commit.
func (s *service) CompleteDeliveredTx(ctx context.Context, tx *gorm.DB, riderID, orderID uuid.UUID) error {
	order, err := s.repo.FindOrderWithTx(tx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusDelivering {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move %s order to %s", order.Status, enums.OrderStatusCompleted))
	}
	if order.Delivery == nil || order.Delivery.RiderID == nil || *order.Delivery.RiderID != riderID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "delivery not assigned to rider")
	}
	return s.applyTransition(ctx, tx, order, enums.OrderStatusCompleted, Actor{UserID: riderID, Role: enums.RoleRider})
}

func (s *service) applyTransition(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, actor Actor) error {
	from := order.Status
	now := s.now()

	flipped, err := s.repo.UpdateStatusWithTx(tx, order.ID, from, to, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !flipped {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}

	switch to {
	case enums.OrderStatusAccepted:
		delivery := &models.Delivery{
			OrderID: order.ID,
			Status:  enums.DeliveryStatusUnassigned,
		}
		if err := s.repo.CreateDeliveryWithTx(tx, delivery); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery")
		}
		order.Delivery = delivery
		order.AcceptedAt = &now
	case enums.OrderStatusCanceled:
		for _, line := range order.Lines {
			if err := s.stock.ReleaseStockWithTx(tx, line.ProductID, line.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stock")
			}
		}
		if err := s.coupons.ReleaseUseWithTx(tx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release coupon")
		}
		order.CanceledAt = &now
	case enums.OrderStatusCompleted:
		order.CompletedAt = &now
	}
	order.Status = to

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
		Data: payloads.OrderStatusChangedEvent{
			OrderID:    order.ID,
			StoreID:    order.StoreID,
			CustomerID: order.CustomerID,
			FromStatus: from,
			NewStatus:  to,
		},
	})
}

// transitionAllowed is the lifecycle table. DELIVERING orders cannot be
// canceled; the food is already moving.
func transitionAllowed(from, to enums.OrderStatus) bool {
	switch from {
	case enums.OrderStatusPending:
		return to == enums.OrderStatusAccepted || to == enums.OrderStatusCanceled
	case enums.OrderStatusAccepted:
		return to == enums.OrderStatusDelivering || to == enums.OrderStatusCanceled
	case enums.OrderStatusDelivering:
		return to == enums.OrderStatusCompleted
	default:
		return false
	}
}

func (s *service) authorizeTransition(ctx context.Context, actor Actor, order *models.Order, to enums.OrderStatus) error {
	store, err := s.stores.FindStore(ctx, order.StoreID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	isOwner := actor.UserID == store.OwnerID
	isCustomer := actor.UserID == order.CustomerID
	isAssignedRider := order.Delivery != nil &&
		order.Delivery.RiderID != nil &&
		*order.Delivery.RiderID == actor.UserID

	switch {
	case order.Status == enums.OrderStatusPending && to == enums.OrderStatusAccepted:
		if isOwner {
			return nil
		}
	case order.Status == enums.OrderStatusPending && to == enums.OrderStatusCanceled:
		if isOwner || isCustomer {
			return nil
		}
	case order.Status == enums.OrderStatusAccepted && to == enums.OrderStatusCanceled:
		if isOwner {
			return nil
		}
	case order.Status == enums.OrderStatusAccepted && to == enums.OrderStatusDelivering,
		order.Status == enums.OrderStatusDelivering && to == enums.OrderStatusCompleted:
		if isOwner || isAssignedRider {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to change this order")
}

func (s *service) authorizeRead(ctx context.Context, actor Actor, order *models.Order) error {
	if actor.UserID == order.CustomerID {
		return nil
	}
	if order.Delivery != nil && order.Delivery.RiderID != nil && *order.Delivery.RiderID == actor.UserID {
		return nil
	}
	store, err := s.stores.FindStore(ctx, order.StoreID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store != nil && store.OwnerID == actor.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view this order")
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
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
