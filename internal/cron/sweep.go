package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/tradein-backend/internal/orders"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	"github.com/angelmondragon/tradein-backend/pkg/metrics"
)

const defaultBatchSize = 200

const (
	itemApplied = "applied"
	itemSkipped = "skipped"
	itemFailed  = "failed"
)

type orderSweeper interface {
	SweepOrders(ctx context.Context, filter orders.SweepFilter) ([]models.Order, error)
}

// sweepTally counts what a sweep did with the rows it scanned.
type sweepTally struct {
	applied int
	skipped int
	failed  int
}

func (t sweepTally) report(m *metrics.CronJobMetrics, job string) {
	m.AddItems(job, itemApplied, t.applied)
	m.AddItems(job, itemSkipped, t.skipped)
	m.AddItems(job, itemFailed, t.failed)
}

// visitFunc handles one scanned order and reports whether it changed anything.
type visitFunc func(ctx context.Context, order models.Order) (bool, error)

// sweepOrders pages the filter by id and calls visit for every row. A failing
// row is logged and collected; the scan always reaches the end.
func sweepOrders(ctx context.Context, logg *logger.Logger, sweeper orderSweeper, filter orders.SweepFilter, visit visitFunc) (sweepTally, error) {
	var (
		tally sweepTally
		errs  error
	)
	if filter.Limit <= 0 {
		filter.Limit = defaultBatchSize
	}
	for {
		if err := ctx.Err(); err != nil {
			return tally, multierr.Append(errs, err)
		}
		batch, err := sweeper.SweepOrders(ctx, filter)
		if err != nil {
			return tally, multierr.Append(errs, fmt.Errorf("sweep orders: %w", err))
		}
		for _, order := range batch {
			changed, err := visit(ctx, order)
			switch {
			case err != nil:
				tally.failed++
				itemCtx := logg.WithOrderID(ctx, order.ID.String())
				logg.Error(itemCtx, "sweep item failed", err)
				errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			case changed:
				tally.applied++
			default:
				tally.skipped++
			}
		}
		if len(batch) < filter.Limit {
			return tally, errs
		}
		last := batch[len(batch)-1].ID
		filter.AfterID = &last
	}
}

func cronActor(job string) string {
	return "cron:" + job
}

func batchSizeOr(n int) int {
	if n <= 0 {
		return defaultBatchSize
	}
	return n
}
