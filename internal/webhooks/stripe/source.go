package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/tradein-backend/internal/webhooks"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/tradein-backend/pkg/stripe"
)

const (
	// Provider is the webhook provider name used in routes and claim rows.
	Provider = "stripe"
	// SignatureHeader carries Stripe's timestamped signature.
	SignatureHeader = "Stripe-Signature"
)

const actor = "webhook:stripe"

type verifier interface {
	VerifyWebhookSignature(payload []byte, header string) (stripe.Event, error)
}

type orderPayments interface {
	MarkPaymentPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID, actor string) (*models.Order, error)
}

type wholesalePayments interface {
	MarkPaid(ctx context.Context, paymentIntentID string) (*models.WholesaleOrder, error)
	MarkPaymentFailed(ctx context.Context, paymentIntentID, reason string) (*models.WholesaleOrder, error)
}

// SourceParams wires the Stripe source.
type SourceParams struct {
	Verifier  verifier
	Orders    orderPayments
	Wholesale wholesalePayments
	Logger    *logger.Logger
}

// Source routes Stripe payment intent events by their metadata kind.
type Source struct {
	verifier  verifier
	orders    orderPayments
	wholesale wholesalePayments
	logg      *logger.Logger
}

// NewSource validates the dependencies.
func NewSource(params SourceParams) (*Source, error) {
	if params.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe verifier required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Wholesale == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wholesale service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Source{
		verifier:  params.Verifier,
		orders:    params.Orders,
		wholesale: params.Wholesale,
		logg:      params.Logger,
	}, nil
}

func (s *Source) Provider() string { return Provider }

// Verify checks the Stripe-Signature header and decodes the event.
func (s *Source) Verify(body []byte, signature string) (webhooks.Event, error) {
	event, err := s.verifier.VerifyWebhookSignature(body, signature)
	if err != nil {
		return webhooks.Event{}, err
	}
	return webhooks.Event{
		ID:      event.ID,
		Type:    string(event.Type),
		Payload: event,
	}, nil
}

// Apply settles trade-in payouts and wholesale payments. Other event types
// and kinds are recorded only.
func (s *Source) Apply(ctx context.Context, evt webhooks.Event) error {
	event, ok := evt.Payload.(stripe.Event)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInternal, "unexpected stripe payload")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
	default:
		return nil
	}
	if event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
	}

	kind := strings.TrimSpace(intent.Metadata[pkgstripe.MetadataKind])
	ctx = s.logg.WithFields(ctx, map[string]any{
		"payment_intent_id": intent.ID,
		"payment_kind":      kind,
	})

	switch {
	case event.Type == stripe.EventTypePaymentIntentSucceeded && kind == pkgstripe.KindTradeIn:
		orderID, err := uuid.Parse(intent.Metadata[pkgstripe.MetadataOrderID])
		if err != nil {
			s.logg.Warn(ctx, "trade-in payment intent without a valid order id")
			return nil
		}
		_, err = s.orders.MarkPaymentPaid(ctx, orderID, intent.ID, actor)
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) || pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			// A deleted order or a voided payment stays that way on redelivery.
			s.logg.Error(ctx, "trade-in payment received for an order that cannot be settled", err)
			return nil
		}
		return err

	case event.Type == stripe.EventTypePaymentIntentSucceeded && kind == pkgstripe.KindWholesale:
		_, err := s.wholesale.MarkPaid(ctx, intent.ID)
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			// Replays cannot fix a closed order; it needs a manual refund.
			s.logg.Error(ctx, "wholesale payment received for a closed order", err)
			return nil
		}
		return err

	case event.Type == stripe.EventTypePaymentIntentPaymentFailed && kind == pkgstripe.KindWholesale:
		reason := ""
		if intent.LastPaymentError != nil {
			reason = intent.LastPaymentError.Msg
		}
		_, err := s.wholesale.MarkPaymentFailed(ctx, intent.ID, reason)
		return err
	}
	return nil
}
