// Package orders is the transactional core that mutates trade-in orders.
//
// Every mutation runs in one retried transaction that rewrites the order under
// its version check, refreshes the customer's mirror row and appends exactly
// one admin audit entry.
package orders

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradein-backend/internal/notifications"
	"github.com/angelmondragon/tradein-backend/internal/shipping"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
)

var tracer = otel.Tracer("github.com/angelmondragon/tradein-backend/internal/orders")

type txRunner interface {
	WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// NumberAllocator hands out order numbers inside the caller's transaction.
type NumberAllocator interface {
	Next(ctx context.Context, tx *gorm.DB) (string, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Allocator NumberAllocator
	Shipping  shipping.Adapter
	Notifier  notifications.Notifier
	Logger    *logger.Logger
	Now       func() time.Time
}

// Service implements the order operations.
type Service struct {
	repo      Repository
	tx        txRunner
	allocator NumberAllocator
	shipping  shipping.Adapter
	notifier  notifications.Notifier
	logg      *logger.Logger
	now       func() time.Time
}

// NewService validates the dependencies and builds the service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Allocator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order number allocator required")
	}
	if params.Shipping == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shipping adapter required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.NewLogNotifier(params.Logger)
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:      params.Repo,
		tx:        params.Tx,
		allocator: params.Allocator,
		shipping:  params.Shipping,
		notifier:  notifier,
		logg:      params.Logger,
		now:       now,
	}, nil
}

// notify dispatches n after commit on a detached goroutine. Failures are logged.
func (s *Service) notify(ctx context.Context, n notifications.Notification) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, n.OrderID), "order notification failed", err)
		}
	}()
}
