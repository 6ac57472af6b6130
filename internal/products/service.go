package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
)

type productRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	ReplaceOptionGroups(ctx context.Context, productID uuid.UUID, groups []models.OptionGroup) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type storeOwnership interface {
	FindStore(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

// Service exposes menu management and public menu reads.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListForStore(ctx context.Context, storeID uuid.UUID) ([]ProductDTO, error)
	Create(ctx context.Context, ownerID, storeID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, ownerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, ownerID, productID uuid.UUID) error
}

type service struct {
	repo   productRepository
	stores storeOwnership
}

// NewService builds a product service with the provided repositories.
func NewService(repo productRepository, stores storeOwnership) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store repository required")
	}
	return &service{repo: repo, stores: stores}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(product), nil
}

func (s *service) ListForStore(ctx context.Context, storeID uuid.UUID) ([]ProductDTO, error) {
	rows, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list store menu")
	}
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, ownerID, storeID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if err := s.requireOwnership(ctx, ownerID, storeID); err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.BasePrice < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price must be non-negative")
	}
	if input.StockQty != nil && *input.StockQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}
	if err := validateGroups(input.Groups); err != nil {
		return nil, err
	}

	product := &models.Product{
		StoreID:      storeID,
		Name:         input.Name,
		Description:  input.Description,
		BasePrice:    input.BasePrice,
		StockQty:     input.StockQty,
		IsAvailable:  true,
		ImageURL:     input.ImageURL,
		OptionGroups: groupsFromInput(input.Groups),
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return FromModel(product), nil
}

func (s *service) Update(ctx context.Context, ownerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.loadOwnedProduct(ctx, ownerID, productID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
		}
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.BasePrice != nil {
		if *input.BasePrice < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price must be non-negative")
		}
		product.BasePrice = *input.BasePrice
	}
	if input.StockQty != nil {
		if input.StockQty.Tracked {
			if input.StockQty.Qty < 0 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
			}
			qty := input.StockQty.Qty
			product.StockQty = &qty
		} else {
			product.StockQty = nil
		}
	}
	if input.IsAvailable != nil {
		product.IsAvailable = *input.IsAvailable
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	if input.Groups != nil {
		if err := validateGroups(*input.Groups); err != nil {
			return nil, err
		}
		groups := groupsFromInput(*input.Groups)
		if err := s.repo.ReplaceOptionGroups(ctx, productID, groups); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace option groups")
		}
		product.OptionGroups = groups
	}

	return FromModel(product), nil
}

func (s *service) Delete(ctx context.Context, ownerID, productID uuid.UUID) error {
	if _, err := s.loadOwnedProduct(ctx, ownerID, productID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) loadOwnedProduct(ctx context.Context, ownerID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnership(ctx, ownerID, product.StoreID); err != nil {
		return nil, err
	}
	return product, nil
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

func validateGroups(groups []OptionGroupInput) error {
	for _, g := range groups {
		if g.Name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "option group name required")
		}
		if len(g.Options) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "option group needs at least one option")
		}
		for _, o := range g.Options {
			if o.Name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "option name required")
			}
			if o.Surcharge < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "surcharge must be non-negative")
			}
		}
	}
	return nil
}
