package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
	"github.com/hmkwon/dishpatch-backend/pkg/pagination"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByTopics(ctx context.Context, topics []string, params pagination.Params) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID, topics []string, at time.Time) (bool, error)
}

// NotificationDTO exposes a stored notification in API responses.
type NotificationDTO struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	OrderID   *uuid.UUID             `json:"order_id,omitempty"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Service is the polling-fallback surface over stored notification rows.
type Service interface {
	List(ctx context.Context, topics []string, params pagination.Params) (pagination.Page[NotificationDTO], error)
	MarkRead(ctx context.Context, topics []string, id uuid.UUID) error
}

type service struct {
	repo notificationRepository
	now  func() time.Time
}

// NewService builds a notification service.
func NewService(repo notificationRepository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) List(ctx context.Context, topics []string, params pagination.Params) (pagination.Page[NotificationDTO], error) {
	if len(topics) == 0 {
		return pagination.Page[NotificationDTO]{Items: []NotificationDTO{}}, nil
	}
	rows, err := s.repo.ListByTopics(ctx, topics, params)
	if err != nil {
		return pagination.Page[NotificationDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	dtos := make([]NotificationDTO, 0, len(rows))
	created := make(map[uuid.UUID]time.Time, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NotificationDTO{
			ID:        row.ID,
			Type:      row.Type,
			Title:     row.Title,
			Message:   row.Message,
			OrderID:   row.OrderID,
			ReadAt:    row.ReadAt,
			CreatedAt: row.CreatedAt,
		})
		created[row.ID] = row.CreatedAt
	}
	return pagination.BuildPage(dtos, params.Limit, func(n NotificationDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: created[n.ID], ID: n.ID}
	}), nil
}

func (s *service) MarkRead(ctx context.Context, topics []string, id uuid.UUID) error {
	if len(topics) == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	marked, err := s.repo.MarkRead(ctx, id, topics, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !marked {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}
