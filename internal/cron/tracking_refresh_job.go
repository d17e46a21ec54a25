package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradein-backend/internal/orders"
	"github.com/angelmondragon/tradein-backend/internal/shipping"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	"github.com/angelmondragon/tradein-backend/pkg/metrics"
)

const trackingRefreshJobName = "tracking-refresh"

type trackingApplier interface {
	orderSweeper
	ApplyTrackingUpdate(ctx context.Context, orderID uuid.UUID, update shipping.TrackingUpdate, actor string) (*models.Order, error)
}

type trackingSource interface {
	RefreshTracking(ctx context.Context, order *models.Order) (*shipping.TrackingUpdate, error)
}

// TrackingRefreshJobParams configure the carrier tracking poller.
type TrackingRefreshJobParams struct {
	Logger    *logger.Logger
	Orders    trackingApplier
	Carrier   trackingSource
	Metrics   *metrics.CronJobMetrics
	BatchSize int
}

// NewTrackingRefreshJob builds the job that polls the carrier for labelled orders.
func NewTrackingRefreshJob(params TrackingRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Carrier == nil {
		return nil, fmt.Errorf("shipping adapter required")
	}
	return &trackingRefreshJob{
		logg:    params.Logger,
		orders:  params.Orders,
		carrier: params.Carrier,
		metrics: params.Metrics,
		batch:   batchSizeOr(params.BatchSize),
	}, nil
}

type trackingRefreshJob struct {
	logg    *logger.Logger
	orders  trackingApplier
	carrier trackingSource
	metrics *metrics.CronJobMetrics
	batch   int
}

func (j *trackingRefreshJob) Name() string { return trackingRefreshJobName }

func (j *trackingRefreshJob) Run(ctx context.Context) error {
	filter := orders.SweepFilter{
		Statuses:   []enums.OrderStatus{enums.OrderStatusLabelGenerated, enums.OrderStatusInTransit},
		WithLabels: true,
		Limit:      j.batch,
	}
	tally, err := sweepOrders(ctx, j.logg, j.orders, filter, j.refresh)
	tally.report(j.metrics, j.Name())
	if err == nil {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"applied": tally.applied,
			"skipped": tally.skipped,
		}), "tracking refresh complete")
	}
	return err
}

func (j *trackingRefreshJob) refresh(ctx context.Context, order models.Order) (bool, error) {
	update, err := j.carrier.RefreshTracking(ctx, &order)
	if err != nil {
		return false, fmt.Errorf("refresh tracking: %w", err)
	}
	if update == nil || !trackingChanged(order, *update) {
		return false, nil
	}
	if _, err := j.orders.ApplyTrackingUpdate(ctx, order.ID, *update, cronActor(j.Name())); err != nil {
		return false, err
	}
	return true, nil
}

func trackingChanged(order models.Order, update shipping.TrackingUpdate) bool {
	label, ok := order.Labels.Find(update.LabelID)
	if !ok {
		label, ok = order.Labels.FindByTracking(update.TrackingNumber)
	}
	if !ok {
		return true
	}
	return label.TrackingStatus != update.Status
}
