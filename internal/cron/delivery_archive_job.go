package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/hmkwon/dishpatch-backend/pkg/logger"
)

const (
	defaultArchiveAge       = 24 * time.Hour
	defaultArchiveBatchSize = 200
)

type deliveryArchiver interface {
	ArchiveDelivered(ctx context.Context, cutoff time.Time, limit int, at time.Time) (int64, error)
}

// DeliveryArchiveJobParams configure the delivered-delivery archive job.
type DeliveryArchiveJobParams struct {
	Logger     *logger.Logger
	Deliveries deliveryArchiver
	Age        time.Duration
	BatchSize  int
}

// NewDeliveryArchiveJob archives DELIVERED deliveries older than the
// configured age so the claimable feed stays small.
func NewDeliveryArchiveJob(params DeliveryArchiveJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Deliveries == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	age := params.Age
	if age <= 0 {
		age = defaultArchiveAge
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultArchiveBatchSize
	}
	return &deliveryArchiveJob{
		logg:       params.Logger,
		deliveries: params.Deliveries,
		age:        age,
		batchSize:  batchSize,
		now:        time.Now,
	}, nil
}

type deliveryArchiveJob struct {
	logg       *logger.Logger
	deliveries deliveryArchiver
	age        time.Duration
	batchSize  int
	now        func() time.Time
}

func (j *deliveryArchiveJob) Name() string { return "delivery-archive" }

func (j *deliveryArchiveJob) Run(ctx context.Context) error {
	now := j.now()
	cutoff := now.Add(-j.age)

	var total int64
	for {
		archived, err := j.deliveries.ArchiveDelivered(ctx, cutoff, j.batchSize, now)
		if err != nil {
			return fmt.Errorf("archive delivered batch: %w", err)
		}
		total += archived
		if archived < int64(j.batchSize) {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"rows_archived": total,
	})
	j.logg.Info(logCtx, "delivery archive complete")
	return nil
}
