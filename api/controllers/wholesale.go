package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/tradein-backend/api/middleware"
	"github.com/angelmondragon/tradein-backend/api/responses"
	"github.com/angelmondragon/tradein-backend/api/validators"
	"github.com/angelmondragon/tradein-backend/internal/wholesale"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
)

type wholesaleService interface {
	ListInventory(ctx context.Context) ([]models.WholesaleItem, error)
	Checkout(ctx context.Context, input wholesale.CheckoutInput) (*wholesale.CheckoutResult, error)
}

func WholesaleInventory(svc wholesaleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wholesale service unavailable"))
			return
		}
		items, err := svc.ListInventory(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// WholesaleCheckout reserves stock and returns the payment client secret.
func WholesaleCheckout(svc wholesaleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wholesale service unavailable"))
			return
		}
		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var input wholesale.CheckoutInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.UserID = userID

		result, err := svc.Checkout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
