package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a sellable menu item. StockQty NULL means stock is untracked.
type Product struct {
	ID           uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID      uuid.UUID     `gorm:"column:store_id;type:uuid;not null;index"`
	Name         string        `gorm:"type:text;not null"`
	Description  *string       `gorm:"type:text"`
	BasePrice    int           `gorm:"column:base_price;not null"`
	StockQty     *int          `gorm:"column:stock_qty"`
	IsAvailable  bool          `gorm:"column:is_available;not null;default:true"`
	ImageURL     *string       `gorm:"column:image_url;type:text"`
	OptionGroups []OptionGroup `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

// OptionGroup bundles selectable options under a product.
type OptionGroup struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string          `gorm:"type:text;not null"`
	Required  bool            `gorm:"not null;default:false"`
	Options   []ProductOption `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

// ProductOption is a single choice with a non-negative surcharge.
type ProductOption struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID   uuid.UUID `gorm:"column:group_id;type:uuid;not null;index"`
	Name      string    `gorm:"type:text;not null"`
	Surcharge int       `gorm:"not null;default:0"`
}
