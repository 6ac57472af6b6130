package products

import (
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
)

// ProductDTO exposes a menu item in API responses.
type ProductDTO struct {
	ID          uuid.UUID        `json:"id"`
	StoreID     uuid.UUID        `json:"store_id"`
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	BasePrice   int              `json:"base_price"`
	StockQty    *int             `json:"stock_qty,omitempty"`
	IsAvailable bool             `json:"is_available"`
	SoldOut     bool             `json:"sold_out"`
	ImageURL    *string          `json:"image_url,omitempty"`
	Groups      []OptionGroupDTO `json:"option_groups"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// OptionGroupDTO is one selectable option bundle.
type OptionGroupDTO struct {
	ID       uuid.UUID   `json:"id"`
	Name     string      `json:"name"`
	Required bool        `json:"required"`
	Options  []OptionDTO `json:"options"`
}

// OptionDTO is a single option choice.
type OptionDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Surcharge int       `json:"surcharge"`
}

// CreateProductInput holds creation-time data for a menu item.
type CreateProductInput struct {
	Name        string             `json:"name" validate:"required"`
	Description *string            `json:"description"`
	BasePrice   int                `json:"base_price" validate:"gte=0"`
	StockQty    *int               `json:"stock_qty" validate:"omitempty,gte=0"`
	ImageURL    *string            `json:"image_url"`
	Groups      []OptionGroupInput `json:"option_groups" validate:"dive"`
}

// UpdateProductInput captures the fields an owner may change. Nil means leave
// the field untouched; Groups non-nil replaces the whole option tree.
type UpdateProductInput struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	BasePrice   *int                `json:"base_price" validate:"omitempty,gte=0"`
	StockQty    *StockUpdate        `json:"stock_qty"`
	IsAvailable *bool               `json:"is_available"`
	ImageURL    *string             `json:"image_url"`
	Groups      *[]OptionGroupInput `json:"option_groups" validate:"omitempty,dive"`
}

// StockUpdate distinguishes "set to N" from "stop tracking".
type StockUpdate struct {
	Tracked bool `json:"tracked"`
	Qty     int  `json:"qty" validate:"gte=0"`
}

// OptionGroupInput defines one option bundle at write time.
type OptionGroupInput struct {
	Name     string        `json:"name" validate:"required"`
	Required bool          `json:"required"`
	Options  []OptionInput `json:"options" validate:"required,dive"`
}

// OptionInput defines one option choice at write time.
type OptionInput struct {
	Name      string `json:"name" validate:"required"`
	Surcharge int    `json:"surcharge" validate:"gte=0"`
}

// FromModel maps the persisted product into a DTO.
func FromModel(m *models.Product) *ProductDTO {
	if m == nil {
		return nil
	}
	groups := make([]OptionGroupDTO, 0, len(m.OptionGroups))
	for _, g := range m.OptionGroups {
		options := make([]OptionDTO, 0, len(g.Options))
		for _, o := range g.Options {
			options = append(options, OptionDTO{ID: o.ID, Name: o.Name, Surcharge: o.Surcharge})
		}
		groups = append(groups, OptionGroupDTO{ID: g.ID, Name: g.Name, Required: g.Required, Options: options})
	}
	return &ProductDTO{
		ID:          m.ID,
		StoreID:     m.StoreID,
		Name:        m.Name,
		Description: m.Description,
		BasePrice:   m.BasePrice,
		StockQty:    m.StockQty,
		IsAvailable: m.IsAvailable,
		SoldOut:     m.StockQty != nil && *m.StockQty <= 0,
		ImageURL:    m.ImageURL,
		Groups:      groups,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func groupsFromInput(inputs []OptionGroupInput) []models.OptionGroup {
	groups := make([]models.OptionGroup, 0, len(inputs))
	for _, g := range inputs {
		options := make([]models.ProductOption, 0, len(g.Options))
		for _, o := range g.Options {
			options = append(options, models.ProductOption{Name: o.Name, Surcharge: o.Surcharge})
		}
		groups = append(groups, models.OptionGroup{Name: g.Name, Required: g.Required, Options: options})
	}
	return groups
}
