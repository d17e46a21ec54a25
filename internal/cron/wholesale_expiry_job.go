package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	"github.com/angelmondragon/tradein-backend/pkg/metrics"
)

const wholesaleExpiryJobName = "wholesale-order-expiry"

type wholesaleExpirer interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.WholesaleOrder, error)
	Expire(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// WholesaleExpiryJobParams configure the reservation expiry sweep.
type WholesaleExpiryJobParams struct {
	Logger    *logger.Logger
	Wholesale wholesaleExpirer
	Metrics   *metrics.CronJobMetrics
	BatchSize int
}

// NewWholesaleExpiryJob builds the job that expires unpaid wholesale orders
// and returns their reserved stock.
func NewWholesaleExpiryJob(params WholesaleExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Wholesale == nil {
		return nil, fmt.Errorf("wholesale service required")
	}
	return &wholesaleExpiryJob{
		logg:      params.Logger,
		wholesale: params.Wholesale,
		metrics:   params.Metrics,
		batch:     batchSizeOr(params.BatchSize),
		now:       time.Now,
	}, nil
}

type wholesaleExpiryJob struct {
	logg      *logger.Logger
	wholesale wholesaleExpirer
	metrics   *metrics.CronJobMetrics
	batch     int
	now       func() time.Time
}

func (j *wholesaleExpiryJob) Name() string { return wholesaleExpiryJobName }

// Run drains expired orders batch by batch. A batch with any failure ends the
// run so a persistently failing row is not listed again in the same cycle.
func (j *wholesaleExpiryJob) Run(ctx context.Context) error {
	var (
		tally sweepTally
		errs  error
	)
	defer func() { tally.report(j.metrics, j.Name()) }()

	now := j.now().UTC()
	for {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		batch, err := j.wholesale.ListExpired(ctx, now, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list expired wholesale orders: %w", err))
		}
		failed := false
		for _, order := range batch {
			expired, err := j.wholesale.Expire(ctx, order.ID)
			switch {
			case err != nil:
				failed = true
				tally.failed++
				j.logg.Error(j.logg.WithOrderID(ctx, order.ID.String()), "wholesale expiry failed", err)
				errs = multierr.Append(errs, fmt.Errorf("wholesale order %s: %w", order.ID, err))
			case expired:
				tally.applied++
			default:
				tally.skipped++
			}
		}
		if failed || len(batch) < j.batch {
			return errs
		}
	}
}
