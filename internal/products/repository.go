package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
)

// Repository handles menu item persistence including the stock counters that
// order submission decrements.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to product operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the product with its option groups.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	if product == nil {
		return fmt.Errorf("product is required")
	}
	return r.db.WithContext(ctx).Create(product).Error
}

// FindByID loads a product with its option tree. A missing row comes back as
// (nil, nil).
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("OptionGroups.Options").
		First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads the given products keyed by ID. Missing IDs are simply
// absent from the map; the pricing engine reports them per line.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*models.Product{}, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Preload("OptionGroups.Options").
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*models.Product, len(rows))
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// ListByStore lists a store's menu with preloaded options.
func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Preload("OptionGroups.Options").
		Where("store_id = ?", storeID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update saves the product row without touching option groups.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	if product == nil {
		return fmt.Errorf("product is required")
	}
	return r.db.WithContext(ctx).Omit("OptionGroups").Save(product).Error
}

// ReplaceOptionGroups swaps the product's full option tree.
func (r *Repository) ReplaceOptionGroups(ctx context.Context, productID uuid.UUID, groups []models.OptionGroup) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var groupIDs []uuid.UUID
		if err := tx.Model(&models.OptionGroup{}).
			Where("product_id = ?", productID).
			Pluck("id", &groupIDs).Error; err != nil {
			return err
		}
		if len(groupIDs) > 0 {
			if err := tx.Where("group_id IN ?", groupIDs).Delete(&models.ProductOption{}).Error; err != nil {
				return err
			}
			if err := tx.Where("product_id = ?", productID).Delete(&models.OptionGroup{}).Error; err != nil {
				return err
			}
		}
		if len(groups) == 0 {
			return nil
		}
		for i := range groups {
			groups[i].ProductID = productID
		}
		return tx.Create(&groups).Error
	})
}

// Delete removes a product by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// DecrementStock reserves qty units inside the caller's transaction. The
// guard clause makes concurrent submissions race safely: whoever the
// conditional UPDATE misses gets reserved=false and must reject the order.
// Untracked stock (NULL) always passes.
func (r *Repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	if qty < 1 {
		return false, fmt.Errorf("quantity must be at least 1")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND (stock_qty IS NULL OR stock_qty >= ?)", productID, qty).
		Update("stock_qty", gorm.Expr("CASE WHEN stock_qty IS NULL THEN NULL ELSE stock_qty - ? END", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReleaseStock returns qty units, used when a tracked order is canceled.
func (r *Repository) ReleaseStock(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_qty IS NOT NULL", productID).
		Update("stock_qty", gorm.Expr("stock_qty + ?", qty)).Error
}

// DecrementStockWithTx reserves stock inside the provided transaction.
func (r *Repository) DecrementStockWithTx(tx *gorm.DB, productID uuid.UUID, qty int) (bool, error) {
	if tx == nil {
		return false, gorm.ErrInvalidTransaction
	}
	return r.WithTx(tx).DecrementStock(context.Background(), productID, qty)
}

// ReleaseStockWithTx returns stock inside the provided transaction.
func (r *Repository) ReleaseStockWithTx(tx *gorm.DB, productID uuid.UUID, qty int) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return r.WithTx(tx).ReleaseStock(context.Background(), productID, qty)
}
