package orders

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/pagination"
)

// GetOrder returns the authoritative order document.
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.repo.FindOrder(ctx, orderID)
}

// FindOrderByTrackingNumber resolves the order carrying a label with trackingNumber.
func (s *Service) FindOrderByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error) {
	return s.repo.FindOrderByTrackingNumber(ctx, trackingNumber)
}

// ListOrders pages through orders newest first.
func (s *Service) ListOrders(ctx context.Context, filter ListFilter, params pagination.Params) (*OrderList, error) {
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListOrders(ctx, filter, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, err
	}

	list := &OrderList{}
	list.Orders, list.NextCursor = pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return list, nil
}

// ListUserOrders reads the customer's mirror rows only.
func (s *Service) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*UserOrderList, error) {
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListMirrors(ctx, userID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, err
	}

	list := &UserOrderList{}
	list.Orders, list.NextCursor = pagination.Trim(rows, params.Limit, func(m models.UserOrderMirror) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.UpdatedAt, ID: m.OrderID}
	})
	return list, nil
}

// ListAuditLogs returns the audit trail of an order, oldest first. The trail
// outlives the order itself.
func (s *Service) ListAuditLogs(ctx context.Context, orderID uuid.UUID) ([]models.AdminAuditLog, error) {
	return s.repo.ListAuditLogs(ctx, orderID)
}

// SweepOrders exposes the reconciliation scan to the cron jobs.
func (s *Service) SweepOrders(ctx context.Context, filter SweepFilter) ([]models.Order, error) {
	return s.repo.SweepOrders(ctx, filter)
}

func parseCursor(value string) (*pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return cursor, nil
}
