package orders

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	"github.com/angelmondragon/tradein-backend/pkg/types"
	"github.com/angelmondragon/tradein-backend/pkg/validation"
)

// change edits the decoded order in place. It returns the audit details and
// whether anything changed; an unchanged order is not written or audited.
type change func(order *models.Order) (types.JSONMap, bool, error)

func (s *Service) mutate(ctx context.Context, orderID uuid.UUID, action enums.AuditAction, actor string, apply change) (*models.Order, error) {
	ctx, span := tracer.Start(ctx, "orders."+string(action))
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", orderID.String()),
		attribute.String("order.actor", actor),
	)

	var result *models.Order
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return err
		}
		details, changed, err := apply(order)
		if err != nil {
			return err
		}
		if changed {
			if err := s.persist(ctx, repo, order, action, actor, details); err != nil {
				return err
			}
		}
		result = order
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

// persist validates and writes the order, refreshes the mirror and appends the audit entry.
func (s *Service) persist(ctx context.Context, repo Repository, order *models.Order, action enums.AuditAction, actor string, details types.JSONMap) error {
	if err := validation.Struct(order); err != nil {
		return err
	}
	if err := repo.UpdateOrder(ctx, order); err != nil {
		return err
	}
	return s.record(ctx, repo, order, action, actor, details)
}

func (s *Service) record(ctx context.Context, repo Repository, order *models.Order, action enums.AuditAction, actor string, details types.JSONMap) error {
	if order.HasUser() {
		if err := repo.UpsertMirror(ctx, models.MirrorOf(order)); err != nil {
			return err
		}
	}
	return repo.InsertAuditLog(ctx, &models.AdminAuditLog{
		ID:          uuid.New(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Action:      action,
		Actor:       actor,
		Details:     details,
		CreatedAt:   s.now(),
	})
}

func (s *Service) appendActivity(order *models.Order, actor, action string, fields map[string]any) {
	order.ActivityLogs = append(order.ActivityLogs, types.ActivityLog{
		ID:      uuid.NewString(),
		Actor:   actor,
		Action:  action,
		At:      s.now(),
		Context: fields,
	})
}

func (s *Service) setStatus(order *models.Order, status enums.OrderStatus, actor, note string) {
	order.Status = status
	order.StatusTimeline = append(order.StatusTimeline, types.StatusEntry{
		Status: status,
		Actor:  actor,
		At:     s.now(),
		Note:   note,
	})
}
