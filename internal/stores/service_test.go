package stores

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
)

type stubRepo struct {
	stores        map[uuid.UUID]*models.Store
	created       []*models.Store
	updated       []*models.Store
	replacedHours map[uuid.UUID][]models.OperatingHour
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		stores:        make(map[uuid.UUID]*models.Store),
		replacedHours: make(map[uuid.UUID][]models.OperatingHour),
	}
}

func (r *stubRepo) Create(_ context.Context, store *models.Store) error {
	store.ID = uuid.New()
	r.stores[store.ID] = store
	r.created = append(r.created, store)
	return nil
}

func (r *stubRepo) FindStore(_ context.Context, id uuid.UUID) (*models.Store, error) {
	return r.stores[id], nil
}

func (r *stubRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Store, error) {
	var out []models.Store
	for _, s := range r.stores {
		if s.OwnerID == ownerID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *stubRepo) List(_ context.Context, limit int) ([]models.Store, error) {
	var out []models.Store
	for _, s := range r.stores {
		if len(out) == limit {
			break
		}
		out = append(out, *s)
	}
	return out, nil
}

func (r *stubRepo) Update(_ context.Context, store *models.Store) error {
	r.stores[store.ID] = store
	r.updated = append(r.updated, store)
	return nil
}

func (r *stubRepo) ReplaceOperatingHours(_ context.Context, storeID uuid.UUID, hours []models.OperatingHour) error {
	r.replacedHours[storeID] = hours
	return nil
}

func seedStore(r *stubRepo, ownerID uuid.UUID) *models.Store {
	store := &models.Store{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Name:    "gimbap heaven",
	}
	r.stores[store.ID] = store
	return store
}

func TestCreateValidatesInput(t *testing.T) {
	svc, err := NewService(newStubRepo())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if _, err := svc.Create(context.Background(), uuid.New(), CreateStoreInput{}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing name, got %v", err)
	}
	if _, err := svc.Create(context.Background(), uuid.New(), CreateStoreInput{Name: "x", DeliveryFee: -1}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative fee, got %v", err)
	}
}

func TestUpdateRejectsForeignOwner(t *testing.T) {
	repo := newStubRepo()
	store := seedStore(repo, uuid.New())
	svc, _ := NewService(repo)

	closed := true
	_, err := svc.Update(context.Background(), uuid.New(), store.ID, UpdateStoreInput{ManuallyClosed: &closed})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateAppliesPartialFields(t *testing.T) {
	ownerID := uuid.New()
	repo := newStubRepo()
	store := seedStore(repo, ownerID)
	svc, _ := NewService(repo)

	minAmount := 15000
	closed := true
	dto, err := svc.Update(context.Background(), ownerID, store.ID, UpdateStoreInput{
		MinOrderAmount: &minAmount,
		ManuallyClosed: &closed,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if dto.MinOrderAmount != 15000 || !dto.ManuallyClosed {
		t.Fatalf("fields not applied: %+v", dto)
	}
	if dto.Name != "gimbap heaven" {
		t.Fatalf("untouched field changed: %+v", dto)
	}
	if dto.OpenNow {
		t.Fatalf("manually closed store must not report open")
	}
}

func TestSetHoursValidatesSchedule(t *testing.T) {
	ownerID := uuid.New()
	repo := newStubRepo()
	store := seedStore(repo, ownerID)
	svc, _ := NewService(repo)

	_, err := svc.SetHours(context.Background(), ownerID, store.ID, SetHoursInput{
		Hours: []OperatingHourDTO{{DayOfWeek: 9, OpenTime: "09:00", CloseTime: "18:00"}},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad day, got %v", err)
	}

	_, err = svc.SetHours(context.Background(), ownerID, store.ID, SetHoursInput{
		Hours: []OperatingHourDTO{
			{DayOfWeek: 1, OpenTime: "09:00", CloseTime: "18:00"},
			{DayOfWeek: 1, OpenTime: "10:00", CloseTime: "19:00"},
		},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for duplicate day, got %v", err)
	}

	_, err = svc.SetHours(context.Background(), ownerID, store.ID, SetHoursInput{
		Hours: []OperatingHourDTO{{DayOfWeek: 1, OpenTime: "soon", CloseTime: "18:00"}},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad clock, got %v", err)
	}
}

func TestSetHoursReplacesSchedule(t *testing.T) {
	ownerID := uuid.New()
	repo := newStubRepo()
	store := seedStore(repo, ownerID)
	svc, _ := NewService(repo)

	dto, err := svc.SetHours(context.Background(), ownerID, store.ID, SetHoursInput{
		Hours: []OperatingHourDTO{
			{DayOfWeek: 1, OpenTime: "11:00", CloseTime: "21:00"},
			{DayOfWeek: 2, OpenTime: "11:00", CloseTime: "21:00"},
			{DayOfWeek: 3, IsDayOff: true},
		},
	})
	if err != nil {
		t.Fatalf("SetHours: %v", err)
	}
	if len(dto.OperatingHours) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(dto.OperatingHours))
	}
	if got := repo.replacedHours[store.ID]; len(got) != 3 {
		t.Fatalf("repository did not receive schedule, got %d", len(got))
	}
}

func TestGetUnknownStoreIsNotFound(t *testing.T) {
	svc, _ := NewService(newStubRepo())
	if _, err := svc.Get(context.Background(), uuid.New()); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
