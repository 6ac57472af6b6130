package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/internal/access"
	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
)

type storeRepository interface {
	Create(ctx context.Context, store *models.Store) error
	FindStore(ctx context.Context, id uuid.UUID) (*models.Store, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Store, error)
	List(ctx context.Context, limit int) ([]models.Store, error)
	Update(ctx context.Context, store *models.Store) error
	ReplaceOperatingHours(ctx context.Context, storeID uuid.UUID, hours []models.OperatingHour) error
}

// Service exposes store operations.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*StoreDTO, error)
	List(ctx context.Context, limit int) ([]StoreDTO, error)
	ListMine(ctx context.Context, ownerID uuid.UUID) ([]StoreDTO, error)
	Create(ctx context.Context, ownerID uuid.UUID, input CreateStoreInput) (*StoreDTO, error)
	Update(ctx context.Context, ownerID, storeID uuid.UUID, input UpdateStoreInput) (*StoreDTO, error)
	SetHours(ctx context.Context, ownerID, storeID uuid.UUID, input SetHoursInput) (*StoreDTO, error)
}

type service struct {
	repo storeRepository
	now  func() time.Time
}

// NewService builds a store service with the provided repository.
func NewService(repo storeRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*StoreDTO, error) {
	store, err := s.loadStore(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(store, access.OrderableNow(store, s.now())), nil
}

func (s *service) List(ctx context.Context, limit int) ([]StoreDTO, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stores")
	}
	return s.toDTOs(rows), nil
}

func (s *service) ListMine(ctx context.Context, ownerID uuid.UUID) ([]StoreDTO, error) {
	rows, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list owned stores")
	}
	return s.toDTOs(rows), nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateStoreInput) (*StoreDTO, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name required")
	}
	if input.MinOrderAmount < 0 || input.DeliveryFee < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amounts must be non-negative")
	}

	store := &models.Store{
		OwnerID:        ownerID,
		Name:           input.Name,
		Description:    input.Description,
		Address:        input.Address,
		Phone:          input.Phone,
		MinOrderAmount: input.MinOrderAmount,
		DeliveryFee:    input.DeliveryFee,
	}
	if err := s.repo.Create(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create store")
	}
	return FromModel(store, access.OrderableNow(store, s.now())), nil
}

func (s *service) Update(ctx context.Context, ownerID, storeID uuid.UUID, input UpdateStoreInput) (*StoreDTO, error) {
	store, err := s.loadOwnedStore(ctx, ownerID, storeID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name required")
		}
		store.Name = *input.Name
	}
	if input.Description != nil {
		store.Description = input.Description
	}
	if input.Address != nil {
		store.Address = input.Address
	}
	if input.Phone != nil {
		store.Phone = input.Phone
	}
	if input.MinOrderAmount != nil {
		if *input.MinOrderAmount < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum order amount must be non-negative")
		}
		store.MinOrderAmount = *input.MinOrderAmount
	}
	if input.DeliveryFee != nil {
		if *input.DeliveryFee < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery fee must be non-negative")
		}
		store.DeliveryFee = *input.DeliveryFee
	}
	if input.ManuallyClosed != nil {
		store.ManuallyClosed = *input.ManuallyClosed
	}

	if err := s.repo.Update(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update store")
	}
	return FromModel(store, access.OrderableNow(store, s.now())), nil
}

func (s *service) SetHours(ctx context.Context, ownerID, storeID uuid.UUID, input SetHoursInput) (*StoreDTO, error) {
	store, err := s.loadOwnedStore(ctx, ownerID, storeID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(input.Hours))
	hours := make([]models.OperatingHour, 0, len(input.Hours))
	for _, h := range input.Hours {
		if h.DayOfWeek < 0 || h.DayOfWeek > 6 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "day of week must be 0 through 6")
		}
		if seen[h.DayOfWeek] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate day of week")
		}
		seen[h.DayOfWeek] = true
		if !h.IsDayOff {
			if _, err := time.Parse("15:04", h.OpenTime); err != nil {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "open time must be HH:MM")
			}
			if _, err := time.Parse("15:04", h.CloseTime); err != nil {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "close time must be HH:MM")
			}
		}
		hours = append(hours, models.OperatingHour{
			DayOfWeek: h.DayOfWeek,
			OpenTime:  h.OpenTime,
			CloseTime: h.CloseTime,
			IsDayOff:  h.IsDayOff,
		})
	}

	if err := s.repo.ReplaceOperatingHours(ctx, storeID, hours); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace operating hours")
	}

	store.OperatingHours = hours
	return FromModel(store, access.OrderableNow(store, s.now())), nil
}

func (s *service) loadStore(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	store, err := s.repo.FindStore(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return store, nil
}

func (s *service) loadOwnedStore(ctx context.Context, ownerID, storeID uuid.UUID) (*models.Store, error) {
	store, err := s.loadStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store does not belong to owner")
	}
	return store, nil
}

func (s *service) toDTOs(rows []models.Store) []StoreDTO {
	now := s.now()
	out := make([]StoreDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i], access.OrderableNow(&rows[i], now)))
	}
	return out
}
