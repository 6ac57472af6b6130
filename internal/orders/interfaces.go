package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox"
	"github.com/hmkwon/dishpatch-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderGate interface {
	CanOrder(ctx context.Context, customerID, storeID uuid.UUID) error
}

type storeLoader interface {
	FindStore(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

type productFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

type stockKeeper interface {
	DecrementStockWithTx(tx *gorm.DB, productID uuid.UUID, qty int) (bool, error)
	ReleaseStockWithTx(tx *gorm.DB, productID uuid.UUID, qty int) error
}

type couponKeeper interface {
	FindIssued(ctx context.Context, customerID, issuedID uuid.UUID) (*models.IssuedCoupon, error)
	MarkUsedWithTx(tx *gorm.DB, issuedID, orderID uuid.UUID) (bool, error)
	ReleaseUseWithTx(tx *gorm.DB, orderID uuid.UUID) error
}

type orderRepository interface {
	CreateWithTx(tx *gorm.DB, order *models.Order) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderWithTx(tx *gorm.DB, id uuid.UUID) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.Order, error)
	UpdateStatusWithTx(tx *gorm.DB, orderID uuid.UUID, from, to enums.OrderStatus, at time.Time) (bool, error)
	CreateDeliveryWithTx(tx *gorm.DB, delivery *models.Delivery) error
}
