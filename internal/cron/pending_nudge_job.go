package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	"github.com/hmkwon/dishpatch-backend/pkg/logger"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox/payloads"
)

const (
	defaultNudgeAfter = 10 * time.Minute
	pendingNudgeBatch = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type staleOrderRepo interface {
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type nudgeEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PendingNudgeJobParams configure the stale-order reminder job.
type PendingNudgeJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Orders     staleOrderRepo
	Outbox     nudgeEmitter
	NudgeAfter time.Duration
}

// NewPendingNudgeJob reminds stores about orders stuck in PENDING past the
// threshold. The outbox dedupe keeps each order to a single nudge.
func NewPendingNudgeJob(params PendingNudgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	nudgeAfter := params.NudgeAfter
	if nudgeAfter <= 0 {
		nudgeAfter = defaultNudgeAfter
	}
	return &pendingNudgeJob{
		logg:       params.Logger,
		db:         params.DB,
		orders:     params.Orders,
		outbox:     params.Outbox,
		nudgeAfter: nudgeAfter,
		now:        time.Now,
	}, nil
}

type pendingNudgeJob struct {
	logg       *logger.Logger
	db         txRunner
	orders     staleOrderRepo
	outbox     nudgeEmitter
	nudgeAfter time.Duration
	now        func() time.Time
}

func (j *pendingNudgeJob) Name() string { return "pending-order-nudge" }

func (j *pendingNudgeJob) Run(ctx context.Context) error {
	now := j.now()
	cutoff := now.Add(-j.nudgeAfter)

	stale, err := j.orders.ListStalePending(ctx, cutoff, pendingNudgeBatch)
	if err != nil {
		return fmt.Errorf("list stale pending orders: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	var errs []error
	nudged := 0
	for _, order := range stale {
		order := order
		pendingMinutes := int(now.Sub(order.CreatedAt).Minutes())
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			return j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPendingNudge,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Data: payloads.OrderPendingNudgeEvent{
					OrderID:        order.ID,
					StoreID:        order.StoreID,
					PendingMinutes: pendingMinutes,
				},
			})
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("nudge order %s: %w", order.ID, err))
			continue
		}
		nudged++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"stale_orders": len(stale),
		"nudged":       nudged,
	})
	j.logg.Info(logCtx, "pending order nudge complete")
	return multierr.Combine(errs...)
}
