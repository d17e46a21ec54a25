package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradein-backend/api/middleware"
	"github.com/angelmondragon/tradein-backend/api/responses"
	"github.com/angelmondragon/tradein-backend/api/validators"
	internalorders "github.com/angelmondragon/tradein-backend/internal/orders"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	"github.com/angelmondragon/tradein-backend/pkg/pagination"
)

// adminActorFallback is only used when routes are mounted without auth, as in tests.
const adminActorFallback = "admin:unknown"

type adminOrderService interface {
	ListOrders(ctx context.Context, filter internalorders.ListFilter, params pagination.Params) (*internalorders.OrderList, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListAuditLogs(ctx context.Context, orderID uuid.UUID) ([]models.AdminAuditLog, error)
	GenerateInboundLabel(ctx context.Context, orderID uuid.UUID, actor string) (*internalorders.LabelResult, error)
	VoidLabel(ctx context.Context, orderID uuid.UUID, labelID, actor string) (*models.Order, error)
	AppendActivity(ctx context.Context, orderID uuid.UUID, actor string, input internalorders.AppendActivityInput) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, input internalorders.UpdateStatusInput, actor string) (*models.Order, error)
	ProposeReOffer(ctx context.Context, orderID uuid.UUID, input internalorders.ReOfferInput, actor string) (*models.Order, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID, actor string) error
}

// AdminListOrders pages through every order, optionally narrowed by ?status=.
func AdminListOrders(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter internalorders.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").
					WithDetails(map[string]any{"field": "status"}))
				return
			}
			filter.Status = &status
		}

		list, err := svc.ListOrders(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminGetOrder(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return adminOrderHandler(svc, logg, func(r *http.Request, orderID uuid.UUID, _ string) (any, error) {
		return svc.GetOrder(r.Context(), orderID)
	})
}

func AdminOrderAudit(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return adminOrderHandler(svc, logg, func(r *http.Request, orderID uuid.UUID, _ string) (any, error) {
		logs, err := svc.ListAuditLogs(r.Context(), orderID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"audit_logs": logs}, nil
	})
}

// AdminCreateLabel buys an inbound label from the carrier.
func AdminCreateLabel(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return adminOrderHandler(svc, logg, func(r *http.Request, orderID uuid.UUID, actor string) (any, error) {
		return svc.GenerateInboundLabel(r.Context(), orderID, actor)
	})
}

func AdminVoidLabel(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return adminOrderHandler(svc, logg, func(r *http.Request, orderID uuid.UUID, actor string) (any, error) {
		labelID, err := validators.PathString(r, "labelId")
		if err != nil {
			return nil, err
		}
		return svc.VoidLabel(r.Context(), orderID, labelID, actor)
	})
}

func AdminAppendActivity(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return adminOrderHandler(svc, logg, func(r *http.Request, orderID uuid.UUID, actor string) (any, error) {
		var input internalorders.AppendActivityInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			return nil, err
		}
		return svc.AppendActivity(r.Context(), orderID, actor, input)
	})
}

func AdminUpdateStatus(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return adminOrderHandler(svc, logg, func(r *http.Request, orderID uuid.UUID, actor string) (any, error) {
		var input internalorders.UpdateStatusInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			return nil, err
		}
		return svc.UpdateOrderStatus(r.Context(), orderID, input, actor)
	})
}

func AdminReOffer(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return adminOrderHandler(svc, logg, func(r *http.Request, orderID uuid.UUID, actor string) (any, error) {
		var input internalorders.ReOfferInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			return nil, err
		}
		return svc.ProposeReOffer(r.Context(), orderID, input, actor)
	})
}

// AdminDeleteOrder removes the order and its mirror. The audit trail stays.
func AdminDeleteOrder(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return adminOrderHandler(svc, logg, func(r *http.Request, orderID uuid.UUID, actor string) (any, error) {
		if err := svc.DeleteOrder(r.Context(), orderID, actor); err != nil {
			return nil, err
		}
		return map[string]any{"deleted": true, "order_id": orderID}, nil
	})
}

type adminOrderFunc func(r *http.Request, orderID uuid.UUID, actor string) (any, error)

func adminOrderHandler(svc adminOrderService, logg *logger.Logger, fn adminOrderFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
			r = r.WithContext(ctx)
		}

		payload, err := fn(r, orderID, middleware.ActorFromContext(ctx, adminActorFallback))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}
