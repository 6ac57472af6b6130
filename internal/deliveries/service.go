package deliveries

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
	"github.com/hmkwon/dishpatch-backend/pkg/metrics"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox/payloads"
	"github.com/hmkwon/dishpatch-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type deliveryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error)
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Delivery, error)
	ListClaimable(ctx context.Context, limit int) ([]models.Delivery, error)
	ListByRider(ctx context.Context, riderID uuid.UUID, params pagination.Params) ([]models.Delivery, error)
	ClaimWithTx(tx *gorm.DB, deliveryID, riderID uuid.UUID, at time.Time) (bool, error)
	AdvanceWithTx(tx *gorm.DB, deliveryID uuid.UUID, from, to enums.DeliveryStatus, at time.Time) (bool, error)
}

type orderLoader interface {
	FindOrderWithTx(tx *gorm.DB, id uuid.UUID) (*models.Order, error)
}

// orderCompleter is the delivery flow's hook into the order state machine.
type orderCompleter interface {
	CompleteDeliveredTx(ctx context.Context, tx *gorm.DB, riderID, orderID uuid.UUID) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

const claimableLimit = 50

// Service drives the rider flow: claim a delivery, advance it step by step,
// complete the paired order on handoff.
type Service interface {
	ListClaimable(ctx context.Context) ([]DeliveryDTO, error)
	ListMine(ctx context.Context, riderID uuid.UUID, params pagination.Params) (pagination.Page[DeliveryDTO], error)
	Claim(ctx context.Context, riderID, deliveryID uuid.UUID) (*DeliveryDTO, error)
	Advance(ctx context.Context, riderID, deliveryID uuid.UUID) (*DeliveryDTO, error)
}

// ServiceParams carries the delivery service dependencies.
type ServiceParams struct {
	DB      txRunner
	Repo    deliveryRepository
	Orders  orderLoader
	Lifecyc orderCompleter
	Users   userLoader
	Outbox  outboxEmitter
	Metrics *metrics.CoreMetrics
	Now     func() time.Time
}

type service struct {
	db      txRunner
	repo    deliveryRepository
	orders  orderLoader
	lifecyc orderCompleter
	users   userLoader
	outbox  outboxEmitter
	metrics *metrics.CoreMetrics
	now     func() time.Time
}

// NewService builds a delivery service, validating every dependency.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if params.Lifecyc == nil {
		return nil, fmt.Errorf("order lifecycle required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:      params.DB,
		repo:    params.Repo,
		orders:  params.Orders,
		lifecyc: params.Lifecyc,
		users:   params.Users,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) ListClaimable(ctx context.Context) ([]DeliveryDTO, error) {
	rows, err := s.repo.ListClaimable(ctx, claimableLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list claimable deliveries")
	}
	dtos := make([]DeliveryDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return dtos, nil
}

func (s *service) ListMine(ctx context.Context, riderID uuid.UUID, params pagination.Params) (pagination.Page[DeliveryDTO], error) {
	rows, err := s.repo.ListByRider(ctx, riderID, params)
	if err != nil {
		return pagination.Page[DeliveryDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rider deliveries")
	}
	dtos := make([]DeliveryDTO, 0, len(rows))
	created := make(map[uuid.UUID]time.Time, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
		created[rows[i].ID] = rows[i].CreatedAt
	}
	return pagination.BuildPage(dtos, params.Limit, func(d DeliveryDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: created[d.ID], ID: d.ID}
	}), nil
}

// Claim races the rider against everyone else looking at the same delivery.
// The conditional update decides; losers get a conflict and re-fetch the list.
func (s *service) Claim(ctx context.Context, riderID, deliveryID uuid.UUID) (*DeliveryDTO, error) {
	dto, err := s.claim(ctx, riderID, deliveryID)
	switch {
	case err == nil:
		s.metrics.IncClaimAttempt("won")
	case pkgerrors.HasCode(err, pkgerrors.CodeConflict):
		s.metrics.IncClaimAttempt("lost")
	default:
		s.metrics.IncClaimAttempt("rejected")
	}
	return dto, err
}

func (s *service) claim(ctx context.Context, riderID, deliveryID uuid.UUID) (*DeliveryDTO, error) {
	rider, err := s.users.FindByID(ctx, riderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rider")
	}
	riderName := ""
	if rider != nil {
		riderName = rider.Nickname
	}

	var claimed *models.Delivery
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		delivery, err := s.repo.FindByIDWithTx(tx, deliveryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
		}
		if delivery == nil || delivery.ArchivedAt != nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}

		now := s.now()
		won, err := s.repo.ClaimWithTx(tx, deliveryID, riderID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim delivery")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeConflict, "delivery already claimed")
		}
		delivery.Status = enums.DeliveryStatusAssigned
		delivery.RiderID = &riderID
		delivery.ClaimedAt = &now

		order, err := s.orders.FindOrderWithTx(tx, delivery.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		claimed = delivery
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryStarted,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Actor:         &outbox.ActorRef{UserID: riderID, Role: string(enums.RoleRider)},
			Data: payloads.DeliveryStartedEvent{
				DeliveryID: delivery.ID,
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				RiderID:    riderID,
				RiderName:  riderName,
				ClaimedAt:  now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(claimed), nil
}

// Advance moves the rider's delivery one step forward. Reaching DELIVERED
// also completes the paired order inside the same transaction.
func (s *service) Advance(ctx context.Context, riderID, deliveryID uuid.UUID) (*DeliveryDTO, error) {
	var advanced *models.Delivery
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		delivery, err := s.repo.FindByIDWithTx(tx, deliveryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
		}
		if delivery == nil || delivery.ArchivedAt != nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}
		if delivery.RiderID == nil || *delivery.RiderID != riderID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "delivery not assigned to rider")
		}
		next, ok := delivery.Status.Next()
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("delivery cannot advance from %s", delivery.Status))
		}

		now := s.now()
		moved, err := s.repo.AdvanceWithTx(tx, deliveryID, delivery.Status, next, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance delivery")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery state changed concurrently")
		}
		delivery.Status = next
		switch next {
		case enums.DeliveryStatusPickedUp:
			delivery.PickedUpAt = &now
		case enums.DeliveryStatusDelivered:
			delivery.DeliveredAt = &now
		}

		order, err := s.orders.FindOrderWithTx(tx, delivery.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		if next == enums.DeliveryStatusDelivered {
			if err := s.lifecyc.CompleteDeliveredTx(ctx, tx, riderID, delivery.OrderID); err != nil {
				return err
			}
		}

		advanced = delivery
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryAdvanced,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Actor:         &outbox.ActorRef{UserID: riderID, Role: string(enums.RoleRider)},
			Data: payloads.DeliveryAdvancedEvent{
				DeliveryID: delivery.ID,
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				NewState:   next,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(advanced), nil
}
