package deliveries

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox"
	"github.com/hmkwon/dishpatch-backend/pkg/pagination"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeDeliveryRepo struct {
	deliveries map[uuid.UUID]*models.Delivery
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{deliveries: make(map[uuid.UUID]*models.Delivery)}
}

func (r *fakeDeliveryRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Delivery, error) {
	return r.find(id), nil
}

func (r *fakeDeliveryRepo) FindByIDWithTx(_ *gorm.DB, id uuid.UUID) (*models.Delivery, error) {
	return r.find(id), nil
}

func (r *fakeDeliveryRepo) find(id uuid.UUID) *models.Delivery {
	delivery, ok := r.deliveries[id]
	if !ok {
		return nil
	}
	clone := *delivery
	return &clone
}

func (r *fakeDeliveryRepo) ListClaimable(_ context.Context, _ int) ([]models.Delivery, error) {
	var out []models.Delivery
	for _, d := range r.deliveries {
		if d.Status == enums.DeliveryStatusUnassigned && d.ArchivedAt == nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDeliveryRepo) ListByRider(_ context.Context, riderID uuid.UUID, _ pagination.Params) ([]models.Delivery, error) {
	var out []models.Delivery
	for _, d := range r.deliveries {
		if d.RiderID != nil && *d.RiderID == riderID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDeliveryRepo) ClaimWithTx(_ *gorm.DB, deliveryID, riderID uuid.UUID, at time.Time) (bool, error) {
	delivery, ok := r.deliveries[deliveryID]
	if !ok || delivery.Status != enums.DeliveryStatusUnassigned {
		return false, nil
	}
	delivery.Status = enums.DeliveryStatusAssigned
	delivery.RiderID = &riderID
	delivery.ClaimedAt = &at
	return true, nil
}

func (r *fakeDeliveryRepo) AdvanceWithTx(_ *gorm.DB, deliveryID uuid.UUID, from, to enums.DeliveryStatus, at time.Time) (bool, error) {
	delivery, ok := r.deliveries[deliveryID]
	if !ok || delivery.Status != from {
		return false, nil
	}
	delivery.Status = to
	switch to {
	case enums.DeliveryStatusPickedUp:
		delivery.PickedUpAt = &at
	case enums.DeliveryStatusDelivered:
		delivery.DeliveredAt = &at
	}
	return true, nil
}

type fakeOrderLoader struct {
	orders map[uuid.UUID]*models.Order
}

func (l *fakeOrderLoader) FindOrderWithTx(_ *gorm.DB, id uuid.UUID) (*models.Order, error) {
	return l.orders[id], nil
}

type fakeCompleter struct {
	completed []uuid.UUID
	err       error
}

func (c *fakeCompleter) CompleteDeliveredTx(_ context.Context, _ *gorm.DB, _, orderID uuid.UUID) error {
	if c.err != nil {
		return c.err
	}
	c.completed = append(c.completed, orderID)
	return nil
}

type fakeUsers struct {
	users map[uuid.UUID]*models.User
}

func (u *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return u.users[id], nil
}

type recordedEvent struct {
	eventType enums.OutboxEventType
	data      any
}

type fakeOutbox struct {
	events []recordedEvent
}

func (o *fakeOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	o.events = append(o.events, recordedEvent{eventType: event.EventType, data: event.Data})
	return nil
}

type deliveryFixture struct {
	svc        Service
	repo       *fakeDeliveryRepo
	completer  *fakeCompleter
	outbox     *fakeOutbox
	riderID    uuid.UUID
	orderID    uuid.UUID
	deliveryID uuid.UUID
}

func newDeliveryFixture(t *testing.T) *deliveryFixture {
	t.Helper()
	riderID := uuid.New()
	orderID := uuid.New()
	deliveryID := uuid.New()

	repo := newFakeDeliveryRepo()
	repo.deliveries[deliveryID] = &models.Delivery{
		ID:      deliveryID,
		OrderID: orderID,
		Status:  enums.DeliveryStatusUnassigned,
	}
	completer := &fakeCompleter{}
	ob := &fakeOutbox{}

	svc, err := NewService(ServiceParams{
		DB:   fakeTxRunner{},
		Repo: repo,
		Orders: &fakeOrderLoader{orders: map[uuid.UUID]*models.Order{
			orderID: {ID: orderID, CustomerID: uuid.New(), Status: enums.OrderStatusAccepted},
		}},
		Lifecyc: completer,
		Users: &fakeUsers{users: map[uuid.UUID]*models.User{
			riderID: {ID: riderID, Nickname: "speedy", Role: enums.RoleRider},
		}},
		Outbox: ob,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &deliveryFixture{
		svc:        svc,
		repo:       repo,
		completer:  completer,
		outbox:     ob,
		riderID:    riderID,
		orderID:    orderID,
		deliveryID: deliveryID,
	}
}

func TestClaimAssignsAndEmits(t *testing.T) {
	f := newDeliveryFixture(t)

	dto, err := f.svc.Claim(context.Background(), f.riderID, f.deliveryID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if dto.Status != enums.DeliveryStatusAssigned {
		t.Fatalf("expected ASSIGNED, got %s", dto.Status)
	}
	if dto.RiderID == nil || *dto.RiderID != f.riderID {
		t.Fatalf("rider not recorded")
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].eventType != enums.EventDeliveryStarted {
		t.Fatalf("expected delivery_started event, got %+v", f.outbox.events)
	}
}

func TestClaimSecondRiderConflicts(t *testing.T) {
	f := newDeliveryFixture(t)

	if _, err := f.svc.Claim(context.Background(), f.riderID, f.deliveryID); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	_, err := f.svc.Claim(context.Background(), uuid.New(), f.deliveryID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestClaimUnknownDeliveryNotFound(t *testing.T) {
	f := newDeliveryFixture(t)

	_, err := f.svc.Claim(context.Background(), f.riderID, uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdvanceOnlyAssignedRider(t *testing.T) {
	f := newDeliveryFixture(t)
	if _, err := f.svc.Claim(context.Background(), f.riderID, f.deliveryID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	_, err := f.svc.Advance(context.Background(), uuid.New(), f.deliveryID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAdvanceWalksTheRiderFlow(t *testing.T) {
	f := newDeliveryFixture(t)
	if _, err := f.svc.Claim(context.Background(), f.riderID, f.deliveryID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	dto, err := f.svc.Advance(context.Background(), f.riderID, f.deliveryID)
	if err != nil {
		t.Fatalf("first advance: %v", err)
	}
	if dto.Status != enums.DeliveryStatusPickedUp {
		t.Fatalf("expected PICKED_UP, got %s", dto.Status)
	}
	if len(f.completer.completed) != 0 {
		t.Fatalf("pickup must not complete the order")
	}

	dto, err = f.svc.Advance(context.Background(), f.riderID, f.deliveryID)
	if err != nil {
		t.Fatalf("second advance: %v", err)
	}
	if dto.Status != enums.DeliveryStatusDelivered {
		t.Fatalf("expected DELIVERED, got %s", dto.Status)
	}
	if len(f.completer.completed) != 1 || f.completer.completed[0] != f.orderID {
		t.Fatalf("handoff must complete the paired order, got %v", f.completer.completed)
	}

	last := f.outbox.events[len(f.outbox.events)-1]
	if last.eventType != enums.EventDeliveryAdvanced {
		t.Fatalf("expected delivery_advanced event, got %s", last.eventType)
	}
}

func TestAdvancePastDeliveredConflicts(t *testing.T) {
	f := newDeliveryFixture(t)
	if _, err := f.svc.Claim(context.Background(), f.riderID, f.deliveryID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.svc.Advance(context.Background(), f.riderID, f.deliveryID); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	_, err := f.svc.Advance(context.Background(), f.riderID, f.deliveryID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestListClaimableFiltersOpenOnly(t *testing.T) {
	f := newDeliveryFixture(t)
	if _, err := f.svc.Claim(context.Background(), f.riderID, f.deliveryID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	openID := uuid.New()
	f.repo.deliveries[openID] = &models.Delivery{
		ID:      openID,
		OrderID: uuid.New(),
		Status:  enums.DeliveryStatusUnassigned,
	}

	rows, err := f.svc.ListClaimable(context.Background())
	if err != nil {
		t.Fatalf("ListClaimable: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != openID {
		t.Fatalf("expected only the open delivery, got %+v", rows)
	}
}
