package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/db"
	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
)

type blacklistRepository interface {
	IsBlacklisted(ctx context.Context, storeID, userID uuid.UUID) (bool, error)
	List(ctx context.Context, storeID uuid.UUID) ([]models.BlacklistEntry, error)
	Add(ctx context.Context, entry *models.BlacklistEntry) error
	Remove(ctx context.Context, storeID, userID uuid.UUID) (bool, error)
}

type storeLookup interface {
	FindStore(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

// EntryDTO exposes one blacklist row in API responses.
type EntryDTO struct {
	UserID    uuid.UUID `json:"user_id"`
	Reason    *string   `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AddEntryInput carries the block target and an optional reason.
type AddEntryInput struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Reason *string   `json:"reason"`
}

// Service exposes per-store blacklist management to owners.
type Service interface {
	List(ctx context.Context, ownerID, storeID uuid.UUID) ([]EntryDTO, error)
	Add(ctx context.Context, ownerID, storeID uuid.UUID, input AddEntryInput) (*EntryDTO, error)
	Remove(ctx context.Context, ownerID, storeID, userID uuid.UUID) error
}

type service struct {
	repo   blacklistRepository
	stores storeLookup
}

// NewService builds a blacklist service.
func NewService(repo blacklistRepository, stores storeLookup) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("blacklist repository required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store repository required")
	}
	return &service{repo: repo, stores: stores}, nil
}

func (s *service) List(ctx context.Context, ownerID, storeID uuid.UUID) ([]EntryDTO, error) {
	if err := s.requireOwnership(ctx, ownerID, storeID); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list blacklist")
	}
	out := make([]EntryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, EntryDTO{UserID: row.UserID, Reason: row.Reason, CreatedAt: row.CreatedAt})
	}
	return out, nil
}

func (s *service) Add(ctx context.Context, ownerID, storeID uuid.UUID, input AddEntryInput) (*EntryDTO, error) {
	if err := s.requireOwnership(ctx, ownerID, storeID); err != nil {
		return nil, err
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.UserID == ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot blacklist yourself")
	}

	entry := &models.BlacklistEntry{
		StoreID: storeID,
		UserID:  input.UserID,
		Reason:  input.Reason,
	}
	if err := s.repo.Add(ctx, entry); err != nil {
		if db.IsUniqueViolation(err, "idx_blacklist_store_user") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already blacklisted")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add blacklist entry")
	}
	return &EntryDTO{UserID: entry.UserID, Reason: entry.Reason, CreatedAt: entry.CreatedAt}, nil
}

func (s *service) Remove(ctx context.Context, ownerID, storeID, userID uuid.UUID) error {
	if err := s.requireOwnership(ctx, ownerID, storeID); err != nil {
		return err
	}
	removed, err := s.repo.Remove(ctx, storeID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove blacklist entry")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "blacklist entry not found")
	}
	return nil
}

func (s *service) requireOwnership(ctx context.Context, ownerID, storeID uuid.UUID) error {
	store, err := s.stores.FindStore(ctx, storeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	if store.OwnerID != ownerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "store does not belong to owner")
	}
	return nil
}
