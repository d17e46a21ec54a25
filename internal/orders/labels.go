package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradein-backend/internal/shipping"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/types"
)

const (
	activityLabelGenerated      = "label.generated"
	activityLabelVoided         = "label.voided"
	activityLabelTrackingUpdate = "label.tracking_updated"
)

// LabelIdempotencyKey identifies one label purchase attempt for an order version.
func LabelIdempotencyKey(order *models.Order) string {
	return fmt.Sprintf("%s:v%d", order.ID, order.Version)
}

// GenerateInboundLabel buys an inbound label and attaches it to the order.
// The carrier is called before the transaction; a label bought for an order
// whose transaction then fails is logged as orphaned unless the order already
// carries it.
func (s *Service) GenerateInboundLabel(ctx context.Context, orderID uuid.UUID, actor string) (*LabelResult, error) {
	snapshot, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if snapshot.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order no longer accepts labels").
			WithDetails(map[string]any{"status": snapshot.Status})
	}

	label, err := s.shipping.CreateInboundLabel(ctx, snapshot, LabelIdempotencyKey(snapshot))
	if err != nil {
		return nil, adapterError(err, "create inbound label")
	}

	attached := false
	order, err := s.mutate(ctx, orderID, enums.AuditActionGenerateInboundLabel, actor, func(order *models.Order) (types.JSONMap, bool, error) {
		attached = order.Labels.Has(label.ID)
		if order.Status.IsTerminal() {
			return nil, false, pkgerrors.New(pkgerrors.CodeStateConflict, "order no longer accepts labels").
				WithDetails(map[string]any{"status": order.Status})
		}
		if !order.Labels.Add(label) {
			return nil, false, pkgerrors.New(pkgerrors.CodeConflict, "label already attached").
				WithDetails(map[string]any{"label_id": label.ID})
		}
		s.appendActivity(order, actor, activityLabelGenerated, map[string]any{"labelId": label.ID})
		if order.Status == enums.OrderStatusPendingShipment {
			s.setStatus(order, enums.OrderStatusLabelGenerated, actor, "")
		}
		return types.JSONMap{
			"label_id":        label.ID,
			"tracking_number": label.TrackingNumber,
			"carrier":         label.Carrier,
		}, true, nil
	})
	if err != nil {
		if !attached {
			logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
				"label_id":        label.ID,
				"tracking_number": label.TrackingNumber,
			})
			s.logg.Error(logCtx, "orphaned shipping label: order update failed after purchase", err)
		}
		return nil, err
	}
	return &LabelResult{Label: label, Order: order}, nil
}

// VoidLabel voids the label with the carrier and then removes it from the order.
// An unknown label leaves the order untouched.
func (s *Service) VoidLabel(ctx context.Context, orderID uuid.UUID, labelID, actor string) (*models.Order, error) {
	snapshot, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	label, ok := snapshot.Labels.Find(labelID)
	if !ok {
		return nil, labelNotFound(labelID)
	}

	alreadyVoided := false
	if err := s.shipping.VoidLabel(ctx, label); err != nil {
		if !errors.Is(err, shipping.ErrAlreadyVoided) {
			return nil, adapterError(err, "void label")
		}
		alreadyVoided = true
	}

	return s.mutate(ctx, orderID, enums.AuditActionVoidLabel, actor, func(order *models.Order) (types.JSONMap, bool, error) {
		if !order.Labels.Remove(labelID) {
			return nil, false, labelNotFound(labelID)
		}
		s.appendActivity(order, actor, activityLabelVoided, map[string]any{"labelId": labelID})
		if order.Status == enums.OrderStatusLabelGenerated {
			if _, stillLabeled := shipping.LatestInbound(order.Labels); !stillLabeled {
				s.setStatus(order, enums.OrderStatusPendingShipment, actor, "inbound label voided")
			}
		}
		return types.JSONMap{
			"label_id":       labelID,
			"already_voided": alreadyVoided,
		}, true, nil
	})
}

// ApplyTrackingUpdate records a carrier status on the label and advances the
// order through in_transit and delivered. Repeated statuses are no-ops.
func (s *Service) ApplyTrackingUpdate(ctx context.Context, orderID uuid.UUID, update shipping.TrackingUpdate, actor string) (*models.Order, error) {
	if !update.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tracking status").
			WithDetails(map[string]any{"status": update.Status})
	}

	return s.mutate(ctx, orderID, enums.AuditActionApplyTrackingUpdate, actor, func(order *models.Order) (types.JSONMap, bool, error) {
		label, ok := order.Labels.Find(update.LabelID)
		if !ok {
			label, ok = order.Labels.FindByTracking(update.TrackingNumber)
		}
		if !ok {
			return nil, false, labelNotFound(update.LabelID)
		}
		if label.TrackingStatus == update.Status {
			return nil, false, nil
		}

		previous := label.TrackingStatus
		label.TrackingStatus = update.Status
		label.UpdatedAt = s.now()
		order.Labels.Replace(label)

		s.appendActivity(order, actor, activityLabelTrackingUpdate, map[string]any{
			"labelId":     label.ID,
			"status":      update.Status,
			"description": update.Description,
		})
		if label.Kind == enums.LabelKindInbound {
			if next, advance := advanceForTracking(order.Status, update.Status); advance {
				s.setStatus(order, next, actor, update.Description)
			}
		}
		return types.JSONMap{
			"label_id":        label.ID,
			"previous_status": previous,
			"status":          update.Status,
			"order_status":    order.Status,
		}, true, nil
	})
}

func advanceForTracking(current enums.OrderStatus, tracking enums.TrackingStatus) (enums.OrderStatus, bool) {
	switch tracking {
	case enums.TrackingStatusInTransit:
		if current.AwaitingDevice() {
			return enums.OrderStatusInTransit, true
		}
	case enums.TrackingStatusDelivered:
		if current.AwaitingDevice() || current == enums.OrderStatusInTransit {
			return enums.OrderStatusDelivered, true
		}
	}
	return current, false
}

func labelNotFound(labelID string) error {
	return pkgerrors.New(pkgerrors.CodeLabelNotFound, "label not found").
		WithDetails(map[string]any{"label_id": labelID})
}

// adapterError keeps typed adapter errors and wraps anything else as ADAPTER_FAILURE.
func adapterError(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeAdapter, err, message)
}
