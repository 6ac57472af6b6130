package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/enums"
)

// Order is immutable after submission except for its status column. The
// price summary columns are frozen at submission time; later product or
// coupon edits never change them.
type Order struct {
	ID         uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID    uuid.UUID         `gorm:"column:store_id;type:uuid;not null;index"`
	CustomerID uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	Status     enums.OrderStatus `gorm:"type:text;not null;default:'PENDING';index"`

	ItemSubtotal int        `gorm:"column:item_subtotal;not null"`
	DeliveryFee  int        `gorm:"column:delivery_fee;not null"`
	Discount     int        `gorm:"column:discount;not null;default:0"`
	Total        int        `gorm:"column:total;not null"`
	CouponID     *uuid.UUID `gorm:"column:coupon_id;type:uuid"`

	RequestNote *string `gorm:"column:request_note;type:text"`

	Lines    []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Delivery *Delivery   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	AcceptedAt  *time.Time `gorm:"column:accepted_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CanceledAt  *time.Time `gorm:"column:canceled_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLine freezes a product's name and unit price at submission.
type OrderLine struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	ProductName string            `gorm:"column:product_name;type:text;not null"`
	UnitPrice   int               `gorm:"column:unit_price;not null"`
	Quantity    int               `gorm:"not null"`
	Options     []OrderLineOption `gorm:"foreignKey:OrderLineID;constraint:OnDelete:CASCADE"`
}

// OrderLineOption freezes a selected option's name and surcharge.
type OrderLineOption struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderLineID uuid.UUID `gorm:"column:order_line_id;type:uuid;not null;index"`
	OptionID    uuid.UUID `gorm:"column:option_id;type:uuid;not null"`
	OptionName  string    `gorm:"column:option_name;type:text;not null"`
	Surcharge   int       `gorm:"not null;default:0"`
}
