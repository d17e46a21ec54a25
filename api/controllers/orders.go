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
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	"github.com/angelmondragon/tradein-backend/pkg/pagination"
)

const anonymousCustomerActor = "customer:anonymous"

type orderIntake interface {
	CreateOrder(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error)
}

type customerOrders interface {
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*internalorders.UserOrderList, error)
	CustomerAction(ctx context.Context, orderID, userID uuid.UUID, input internalorders.CustomerActionInput) (*models.Order, error)
}

// CreateOrder accepts a trade-in submission from a guest or a signed-in customer.
func CreateOrder(svc orderIntake, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var input internalorders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if userID, ok := middleware.UserUUIDFromContext(r.Context()); ok {
			input.UserID = &userID
		}
		input.Actor = middleware.ActorFromContext(r.Context(), anonymousCustomerActor)

		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// MyOrders pages through the caller's order mirrors.
func MyOrders(svc customerOrders, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListUserOrders(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// MyOrderAction applies a self-service action to one of the caller's orders.
func MyOrderAction(svc customerOrders, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input internalorders.CustomerActionInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CustomerAction(r.Context(), orderID, userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
