package reviews

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/hmkwon/dishpatch-backend/pkg/db"
	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox/payloads"
	"github.com/hmkwon/dishpatch-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type reviewRepository interface {
	CreateWithTx(tx *gorm.DB, review *models.Review) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.Review, error)
	SetReply(ctx context.Context, reviewID uuid.UUID, reply string, at time.Time) (bool, error)
}

type reviewGate interface {
	CanReview(ctx context.Context, customerID, storeID, orderID uuid.UUID) error
}

type orderLoader interface {
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type storeLoader interface {
	FindStore(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ReviewDTO exposes a review in API responses.
type ReviewDTO struct {
	ID         uuid.UUID  `json:"id"`
	OrderID    uuid.UUID  `json:"order_id"`
	StoreID    uuid.UUID  `json:"store_id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	Rating     int        `json:"rating"`
	Content    string     `json:"content"`
	ImageURL   *string    `json:"image_url,omitempty"`
	Reply      *string    `json:"reply,omitempty"`
	RepliedAt  *time.Time `json:"replied_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreateReviewInput is the customer's submission for a completed order.
type CreateReviewInput struct {
	Rating   int     `json:"rating" validate:"required,min=1,max=5"`
	Content  string  `json:"content" validate:"required"`
	ImageURL *string `json:"image_url"`
}

// ReplyInput is the owner's reply body.
type ReplyInput struct {
	Reply string `json:"reply" validate:"required"`
}

// Service covers review submission, store listing, and owner replies.
type Service interface {
	Create(ctx context.Context, customerID, orderID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error)
	ListForStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (pagination.Page[ReviewDTO], error)
	Reply(ctx context.Context, ownerID, reviewID uuid.UUID, input ReplyInput) (*ReviewDTO, error)
}

// ServiceParams carries the review service dependencies.
type ServiceParams struct {
	DB     txRunner
	Repo   reviewRepository
	Orders orderLoader
	Stores storeLoader
	Users  userLoader
	Gate   reviewGate
	Outbox outboxEmitter
	Now    func() time.Time
}

type service struct {
	db     txRunner
	repo   reviewRepository
	orders orderLoader
	stores storeLoader
	users  userLoader
	gate   reviewGate
	outbox outboxEmitter
	now    func() time.Time
}

// NewService builds a review service, validating every dependency.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store loader required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if params.Gate == nil {
		return nil, fmt.Errorf("access gate required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:     params.DB,
		repo:   params.Repo,
		orders: params.Orders,
		stores: params.Stores,
		users:  params.Users,
		gate:   params.Gate,
		outbox: params.Outbox,
		now:    now,
	}, nil
}

func (s *service) Create(ctx context.Context, customerID, orderID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content required")
	}

	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err := s.gate.CanReview(ctx, customerID, order.StoreID, orderID); err != nil {
		return nil, err
	}

	author, err := s.users.FindByID(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load author")
	}
	authorName := ""
	if author != nil {
		authorName = author.Nickname
	}

	review := &models.Review{
		OrderID:    orderID,
		StoreID:    order.StoreID,
		CustomerID: customerID,
		Rating:     input.Rating,
		Content:    content,
		ImageURL:   input.ImageURL,
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateWithTx(tx, review); err != nil {
			if dbpkg.IsUniqueViolation(err, "idx_reviews_order_id") {
				return pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReviewCreated,
			AggregateType: enums.AggregateReview,
			AggregateID:   review.ID,
			Actor:         &outbox.ActorRef{UserID: customerID, Role: string(enums.RoleCustomer)},
			Data: payloads.ReviewCreatedEvent{
				ReviewID:   review.ID,
				OrderID:    orderID,
				StoreID:    order.StoreID,
				AuthorName: authorName,
				Rating:     input.Rating,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return fromModel(review), nil
}

func (s *service) ListForStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (pagination.Page[ReviewDTO], error) {
	store, err := s.stores.FindStore(ctx, storeID)
	if err != nil {
		return pagination.Page[ReviewDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store == nil {
		return pagination.Page[ReviewDTO]{}, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}

	rows, err := s.repo.ListByStore(ctx, storeID, params)
	if err != nil {
		return pagination.Page[ReviewDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	dtos := make([]ReviewDTO, 0, len(rows))
	created := make(map[uuid.UUID]time.Time, len(rows))
	for i := range rows {
		dtos = append(dtos, *fromModel(&rows[i]))
		created[rows[i].ID] = rows[i].CreatedAt
	}
	return pagination.BuildPage(dtos, params.Limit, func(r ReviewDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: created[r.ID], ID: r.ID}
	}), nil
}

func (s *service) Reply(ctx context.Context, ownerID, reviewID uuid.UUID, input ReplyInput) (*ReviewDTO, error) {
	reply := strings.TrimSpace(input.Reply)
	if reply == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reply required")
	}

	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}
	if review == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}

	store, err := s.stores.FindStore(ctx, review.StoreID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	if store.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store does not belong to owner")
	}

	now := s.now()
	replied, err := s.repo.SetReply(ctx, reviewID, reply, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set reply")
	}
	if !replied {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "review already has a reply")
	}
	review.Reply = &reply
	review.RepliedAt = &now
	return fromModel(review), nil
}

func fromModel(m *models.Review) *ReviewDTO {
	if m == nil {
		return nil
	}
	return &ReviewDTO{
		ID:         m.ID,
		OrderID:    m.OrderID,
		StoreID:    m.StoreID,
		CustomerID: m.CustomerID,
		Rating:     m.Rating,
		Content:    m.Content,
		ImageURL:   m.ImageURL,
		Reply:      m.Reply,
		RepliedAt:  m.RepliedAt,
		CreatedAt:  m.CreatedAt,
	}
}
