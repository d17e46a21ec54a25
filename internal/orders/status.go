package orders

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradein-backend/internal/notifications"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/types"
	"github.com/angelmondragon/tradein-backend/pkg/validation"
)

const (
	activityStatusUpdated   = "status.updated"
	activityPaymentPaid     = "payment.paid"
	activityReOfferProposed = "re_offer.proposed"
	activityCustomerPrefix  = "customer."
)

// AppendActivity appends a free-form entry to the order's activity history.
func (s *Service) AppendActivity(ctx context.Context, orderID uuid.UUID, actor string, input AppendActivityInput) (*models.Order, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	return s.mutate(ctx, orderID, enums.AuditActionAppendActivity, actor, func(order *models.Order) (types.JSONMap, bool, error) {
		s.appendActivity(order, actor, input.Action, input.Context)
		return types.JSONMap{"activity_action": input.Action}, true, nil
	})
}

// UpdateOrderStatus moves the order to input.Status and, when requested,
// notifies the customer once the change is committed.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput, actor string) (*models.Order, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var previous enums.OrderStatus
	order, err := s.mutate(ctx, orderID, enums.AuditActionUpdateOrderStatus, actor, func(order *models.Order) (types.JSONMap, bool, error) {
		previous = order.Status
		if len(input.ExpectedStatuses) > 0 && !slices.Contains(input.ExpectedStatuses, order.Status) {
			return nil, false, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed").
				WithDetails(map[string]any{"status": order.Status, "expected": input.ExpectedStatuses})
		}
		s.setStatus(order, input.Status, actor, input.Note)
		s.appendActivity(order, actor, activityStatusUpdated, map[string]any{
			"from": previous,
			"to":   input.Status,
		})
		return types.JSONMap{
			"from":   previous,
			"to":     input.Status,
			"note":   input.Note,
			"notify": input.Notify,
		}, true, nil
	})
	if err != nil {
		return nil, err
	}

	if input.Notify {
		s.notify(ctx, statusNotification(order, s.now(), input.Note))
	}
	return order, nil
}

// MarkPaymentPaid settles the customer payout. Settling twice is a no-op.
func (s *Service) MarkPaymentPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID, actor string) (*models.Order, error) {
	return s.mutate(ctx, orderID, enums.AuditActionMarkPaymentPaid, actor, func(order *models.Order) (types.JSONMap, bool, error) {
		if order.Payment.Status == enums.PaymentStatusPaid {
			return nil, false, nil
		}
		if !order.Payment.Status.CanTransitionTo(enums.PaymentStatusPaid) {
			return nil, false, pkgerrors.New(pkgerrors.CodeStateConflict, "payment was voided").
				WithDetails(map[string]any{"payment_status": order.Payment.Status})
		}
		if order.Payment.PaymentIntentID != "" && paymentIntentID != "" && order.Payment.PaymentIntentID != paymentIntentID {
			return nil, false, pkgerrors.New(pkgerrors.CodeStateConflict, "payment intent does not match order").
				WithDetails(map[string]any{"payment_intent_id": paymentIntentID})
		}

		paidAt := s.now()
		order.Payment.Status = enums.PaymentStatusPaid
		order.Payment.PaidAt = &paidAt
		if paymentIntentID != "" {
			order.Payment.PaymentIntentID = paymentIntentID
		}
		s.appendActivity(order, actor, activityPaymentPaid, map[string]any{
			"paymentIntentId": paymentIntentID,
			"amount":          order.Payment.Amount.String(),
		})
		return types.JSONMap{
			"payment_intent_id": paymentIntentID,
			"amount":            order.Payment.Amount.String(),
		}, true, nil
	})
}

// ProposeReOffer replaces the quote after inspection and parks the order until
// the customer answers.
func (s *Service) ProposeReOffer(ctx context.Context, orderID uuid.UUID, input ReOfferInput, actor string) (*models.Order, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"amount": "must be greater than zero"})
	}

	order, err := s.mutate(ctx, orderID, enums.AuditActionProposeReOffer, actor, func(order *models.Order) (types.JSONMap, bool, error) {
		switch order.Status {
		case enums.OrderStatusReceived, enums.OrderStatusInspecting, enums.OrderStatusReOfferPending:
		default:
			return nil, false, stateConflict(order.Status, "re-offer requires an inspected device")
		}

		now := s.now()
		next := &types.ReOffer{
			CurrentOffer: input.Amount.Round(2),
			Reason:       input.Reason,
			Status:       enums.ReOfferStatusPending,
			ProposedBy:   actor,
			ProposedAt:   now,
		}
		if prev := order.ReOffer; prev != nil {
			next.History = append(prev.History, types.ReOfferRevision{
				Offer:      prev.CurrentOffer,
				Reason:     prev.Reason,
				Status:     prev.Status,
				ProposedBy: prev.ProposedBy,
				ProposedAt: prev.ProposedAt,
			})
		}
		order.ReOffer = next

		if order.Status != enums.OrderStatusReOfferPending {
			s.setStatus(order, enums.OrderStatusReOfferPending, actor, input.Reason)
		}
		s.appendActivity(order, actor, activityReOfferProposed, map[string]any{
			"offer":  next.CurrentOffer.String(),
			"reason": input.Reason,
		})
		return types.JSONMap{
			"offer":          next.CurrentOffer.String(),
			"original_quote": order.Payment.Amount.String(),
			"reason":         input.Reason,
		}, true, nil
	})
	if err != nil {
		return nil, err
	}

	if input.Notify {
		n := statusNotification(order, s.now(), input.Reason)
		n.Kind = notifications.KindReOfferProposed
		n.Data = map[string]any{"offer": order.ReOffer.CurrentOffer.String()}
		s.notify(ctx, n)
	}
	return order, nil
}

// CustomerAction applies a self-service request from the order owner.
func (s *Service) CustomerAction(ctx context.Context, orderID, userID uuid.UUID, input CustomerActionInput) (*models.Order, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	snapshot, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ownedBy(snapshot, userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}

	actor := "user:" + userID.String()
	return s.mutate(ctx, orderID, enums.AuditActionCustomerAction, actor, func(order *models.Order) (types.JSONMap, bool, error) {
		if !ownedBy(order, userID) {
			return nil, false, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
		}
		from := order.Status
		if err := s.applyCustomerAction(order, input, actor); err != nil {
			return nil, false, err
		}
		s.appendActivity(order, actor, activityCustomerPrefix+string(input.Action), map[string]any{
			"note": input.Note,
		})
		return types.JSONMap{
			"action": input.Action,
			"from":   from,
			"to":     order.Status,
		}, true, nil
	})
}

func (s *Service) applyCustomerAction(order *models.Order, input CustomerActionInput, actor string) error {
	switch input.Action {
	case enums.CustomerActionCancel:
		if !order.Status.AwaitingDevice() {
			return stateConflict(order.Status, "order can no longer be cancelled")
		}
		if order.Payment.Status.CanTransitionTo(enums.PaymentStatusVoid) {
			order.Payment.Status = enums.PaymentStatusVoid
		}
		s.setStatus(order, enums.OrderStatusCancelled, actor, input.Note)

	case enums.CustomerActionRequestReturn:
		switch order.Status {
		case enums.OrderStatusReceived, enums.OrderStatusInspecting, enums.OrderStatusReOfferPending:
		default:
			return stateConflict(order.Status, "return is not available for this order")
		}
		if order.ReOffer != nil && order.ReOffer.Status == enums.ReOfferStatusPending {
			s.respondReOffer(order, enums.ReOfferStatusDeclined)
		}
		s.setStatus(order, enums.OrderStatusReturnRequested, actor, input.Note)

	case enums.CustomerActionAcceptOffer:
		if err := pendingReOffer(order); err != nil {
			return err
		}
		s.respondReOffer(order, enums.ReOfferStatusAccepted)
		order.Payment.Amount = order.ReOffer.CurrentOffer
		s.setStatus(order, enums.OrderStatusCompleted, actor, input.Note)

	case enums.CustomerActionDeclineOffer:
		if err := pendingReOffer(order); err != nil {
			return err
		}
		s.respondReOffer(order, enums.ReOfferStatusDeclined)
		s.setStatus(order, enums.OrderStatusReturnRequested, actor, input.Note)

	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown customer action")
	}
	return nil
}

func (s *Service) respondReOffer(order *models.Order, status enums.ReOfferStatus) {
	respondedAt := s.now()
	order.ReOffer.Status = status
	order.ReOffer.RespondedAt = &respondedAt
}

func pendingReOffer(order *models.Order) error {
	if order.Status != enums.OrderStatusReOfferPending || order.ReOffer == nil || order.ReOffer.Status != enums.ReOfferStatusPending {
		return stateConflict(order.Status, "no pending re-offer")
	}
	return nil
}

func ownedBy(order *models.Order, userID uuid.UUID) bool {
	return order.HasUser() && *order.UserID == userID
}

func stateConflict(status enums.OrderStatus, message string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).
		WithDetails(map[string]any{"status": status})
}

func statusNotification(order *models.Order, at time.Time, note string) notifications.Notification {
	return notifications.Notification{
		Kind:        notifications.KindOrderStatusUpdated,
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Recipient:   order.ShippingInfo.Email,
		Name:        order.ShippingInfo.FullName,
		Status:      string(order.Status),
		Note:        note,
		OccurredAt:  at,
	}
}
