package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/types"
	"github.com/angelmondragon/tradein-backend/pkg/validation"
)

const (
	activityOrderCreated = "order.created"
	defaultCurrency      = "USD"
)

// CreateOrder stores a new trade-in submission. The order number is allocated
// inside the same transaction, so a failed insert never consumes a number.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if input.Payment.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"payment.amount": "must not be negative"})
	}
	actor := strings.TrimSpace(input.Actor)
	if actor == "" {
		actor = "system"
	}

	ctx, span := tracer.Start(ctx, "orders."+string(enums.AuditActionCreateOrder))
	defer span.End()

	var created *models.Order
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		number, err := s.allocator.Next(ctx, tx)
		if err != nil {
			return err
		}

		now := s.now()
		order := &models.Order{
			ID:           uuid.New(),
			OrderNumber:  number,
			UserID:       input.UserID,
			ShippingInfo: input.ShippingInfo,
			Device:       input.Device,
			Payment: types.Payment{
				Method:        input.Payment.Method,
				Status:        enums.PaymentStatusPending,
				Amount:        input.Payment.Amount.Round(2),
				Currency:      defaultCurrency,
				PayoutAccount: payoutAccount(input),
			},
			Labels:    types.Labels{},
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.setStatus(order, enums.OrderStatusPendingShipment, actor, "")
		s.appendActivity(order, actor, activityOrderCreated, map[string]any{"orderNumber": number})

		if err := validation.Struct(order); err != nil {
			return err
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := s.record(ctx, repo, order, enums.AuditActionCreateOrder, actor, types.JSONMap{
			"order_number": number,
			"amount":       order.Payment.Amount.String(),
			"method":       order.Payment.Method,
		}); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return created, nil
}

// DeleteOrder removes the order and its mirror. The audit trail is kept.
func (s *Service) DeleteOrder(ctx context.Context, orderID uuid.UUID, actor string) error {
	ctx, span := tracer.Start(ctx, "orders."+string(enums.AuditActionDeleteOrder))
	defer span.End()

	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := repo.DeleteOrder(ctx, orderID); err != nil {
			return err
		}
		if order.HasUser() {
			if err := repo.DeleteMirror(ctx, *order.UserID, orderID); err != nil {
				return err
			}
		}
		return repo.InsertAuditLog(ctx, &models.AdminAuditLog{
			ID:          uuid.New(),
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Action:      enums.AuditActionDeleteOrder,
			Actor:       actor,
			Details: types.JSONMap{
				"status":  order.Status,
				"version": order.Version,
			},
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// payoutAccount defaults email based payouts to the customer's shipping email.
func payoutAccount(input CreateOrderInput) string {
	account := strings.TrimSpace(input.Payment.PayoutAccount)
	if account == "" && input.Payment.Method.PaysToEmail() {
		return strings.ToLower(strings.TrimSpace(input.ShippingInfo.Email))
	}
	return account
}
