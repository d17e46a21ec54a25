package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/tradein-backend/api/responses"
	"github.com/angelmondragon/tradein-backend/internal/webhooks"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
)

const maxWebhookBytes = 1 << 20

type webhookProcessor interface {
	Handle(ctx context.Context, provider string, body []byte, signature string) (webhooks.Result, error)
}

// Webhook verifies and applies one provider delivery. Duplicates are
// acknowledged with 200; an event still being processed elsewhere gets a 409
// so the provider redelivers it.
func Webhook(processor webhookProcessor, provider, signatureHeader string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if processor == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook processor unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		result, err := processor.Handle(ctx, provider, body, r.Header.Get(signatureHeader))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if result.InFlight {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "event is being processed").
				WithDetails(map[string]any{"event_id": result.EventID}))
			return
		}
		responses.WriteSuccess(w, result)
	}
}
