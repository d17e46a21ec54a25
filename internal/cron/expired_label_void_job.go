package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tradein-backend/internal/orders"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	"github.com/angelmondragon/tradein-backend/pkg/metrics"
)

const (
	expiredLabelVoidJobName = "expired-label-void"
	defaultLabelTTL         = 30 * 24 * time.Hour
)

type labelVoider interface {
	orderSweeper
	VoidLabel(ctx context.Context, orderID uuid.UUID, labelID, actor string) (*models.Order, error)
}

// ExpiredLabelVoidJobParams configure the stale label sweep.
type ExpiredLabelVoidJobParams struct {
	Logger    *logger.Logger
	Orders    labelVoider
	Metrics   *metrics.CronJobMetrics
	LabelTTL  time.Duration
	BatchSize int
}

// NewExpiredLabelVoidJob builds the job that voids labels the customer never
// used, plus any label still attached to a cancelled order.
func NewExpiredLabelVoidJob(params ExpiredLabelVoidJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.LabelTTL
	if ttl <= 0 {
		ttl = defaultLabelTTL
	}
	return &expiredLabelVoidJob{
		logg:    params.Logger,
		orders:  params.Orders,
		metrics: params.Metrics,
		ttl:     ttl,
		batch:   batchSizeOr(params.BatchSize),
		now:     time.Now,
	}, nil
}

type expiredLabelVoidJob struct {
	logg    *logger.Logger
	orders  labelVoider
	metrics *metrics.CronJobMetrics
	ttl     time.Duration
	batch   int
	now     func() time.Time
}

func (j *expiredLabelVoidJob) Name() string { return expiredLabelVoidJobName }

func (j *expiredLabelVoidJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	filter := orders.SweepFilter{
		Statuses: []enums.OrderStatus{
			enums.OrderStatusPendingShipment,
			enums.OrderStatusLabelGenerated,
			enums.OrderStatusCancelled,
		},
		WithLabels: true,
		Limit:      j.batch,
	}
	tally, err := sweepOrders(ctx, j.logg, j.orders, filter, func(ctx context.Context, order models.Order) (bool, error) {
		return j.voidExpired(ctx, order, cutoff)
	})
	tally.report(j.metrics, j.Name())
	return err
}

func (j *expiredLabelVoidJob) voidExpired(ctx context.Context, order models.Order, cutoff time.Time) (bool, error) {
	var (
		voided bool
		errs   error
	)
	for _, label := range order.Labels {
		if order.Status != enums.OrderStatusCancelled && !label.CreatedAt.Before(cutoff) {
			continue
		}
		_, err := j.orders.VoidLabel(ctx, order.ID, label.ID, cronActor(j.Name()))
		switch {
		case err == nil:
			voided = true
		case pkgerrors.IsCode(err, pkgerrors.CodeLabelNotFound):
			// removed concurrently
		default:
			errs = multierr.Append(errs, fmt.Errorf("void label %s: %w", label.ID, err))
		}
	}
	return voided, errs
}
