package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradein-backend/internal/orders"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	"github.com/angelmondragon/tradein-backend/pkg/metrics"
)

const (
	dormantOrderCancelJobName = "dormant-order-cancel"
	defaultDormantAfter       = 45 * 24 * time.Hour
)

type statusUpdater interface {
	orderSweeper
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, input orders.UpdateStatusInput, actor string) (*models.Order, error)
}

// DormantOrderCancelJobParams configure the dormant order sweep.
type DormantOrderCancelJobParams struct {
	Logger       *logger.Logger
	Orders       statusUpdater
	Metrics      *metrics.CronJobMetrics
	DormantAfter time.Duration
	BatchSize    int
}

// NewDormantOrderCancelJob builds the job that cancels orders whose device
// never shipped. Labels left on those orders are voided by expired-label-void.
func NewDormantOrderCancelJob(params DormantOrderCancelJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	after := params.DormantAfter
	if after <= 0 {
		after = defaultDormantAfter
	}
	return &dormantOrderCancelJob{
		logg:    params.Logger,
		orders:  params.Orders,
		metrics: params.Metrics,
		after:   after,
		batch:   batchSizeOr(params.BatchSize),
		now:     time.Now,
	}, nil
}

type dormantOrderCancelJob struct {
	logg    *logger.Logger
	orders  statusUpdater
	metrics *metrics.CronJobMetrics
	after   time.Duration
	batch   int
	now     func() time.Time
}

func (j *dormantOrderCancelJob) Name() string { return dormantOrderCancelJobName }

func (j *dormantOrderCancelJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.after)
	filter := orders.SweepFilter{
		Statuses:      []enums.OrderStatus{enums.OrderStatusPendingShipment, enums.OrderStatusLabelGenerated},
		UpdatedBefore: &cutoff,
		Limit:         j.batch,
	}
	input := orders.UpdateStatusInput{
		Status:           enums.OrderStatusCancelled,
		Note:             fmt.Sprintf("no device received within %d days", int(j.after.Hours()/24)),
		Notify:           true,
		ExpectedStatuses: filter.Statuses,
	}
	tally, err := sweepOrders(ctx, j.logg, j.orders, filter, func(ctx context.Context, order models.Order) (bool, error) {
		_, err := j.orders.UpdateOrderStatus(ctx, order.ID, input, cronActor(j.Name()))
		switch {
		case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
			// The order moved on after the scan, e.g. the device shipped.
			j.logg.Info(j.logg.WithOrderID(ctx, order.ID.String()), "dormant order no longer cancellable")
			return false, nil
		case err != nil:
			return false, err
		}
		return true, nil
	})
	tally.report(j.metrics, j.Name())
	return err
}
