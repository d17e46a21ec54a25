// Package carrierwebhook applies signed carrier tracking callbacks.
package carrierwebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradein-backend/internal/shipping"
	"github.com/angelmondragon/tradein-backend/internal/webhooks"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
)

const (
	// Provider is the webhook provider name used in routes and claim rows.
	Provider = "carrier"
	// SignatureHeader carries the hex HMAC-SHA256 of the raw body.
	SignatureHeader = "X-Carrier-Signature"

	signaturePrefix = "sha256="
	actor           = "webhook:carrier"
	eventType       = "tracking.updated"
)

// Payload is the tracking callback body.
type Payload struct {
	EventID        string    `json:"event_id"`
	TrackingNumber string    `json:"tracking_number"`
	LabelID        string    `json:"label_id,omitempty"`
	StatusCode     string    `json:"status_code"`
	Description    string    `json:"description,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type trackingService interface {
	FindOrderByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error)
	ApplyTrackingUpdate(ctx context.Context, orderID uuid.UUID, update shipping.TrackingUpdate, actor string) (*models.Order, error)
}

// Source verifies and applies carrier tracking events.
type Source struct {
	secret []byte
	orders trackingService
	logg   *logger.Logger
}

// NewSource requires the shared signing secret.
func NewSource(secret string, orders trackingService, logg *logger.Logger) (*Source, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "carrier webhook secret required")
	}
	if orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Source{secret: []byte(secret), orders: orders, logg: logg}, nil
}

func (s *Source) Provider() string { return Provider }

// Sign returns the signature header value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify compares the HMAC in constant time before decoding the body.
func (s *Source) Verify(body []byte, signature string) (webhooks.Event, error) {
	provided := strings.TrimPrefix(strings.TrimSpace(signature), signaturePrefix)
	if provided == "" {
		return webhooks.Event{}, pkgerrors.New(pkgerrors.CodeInvalidSignature, "missing carrier signature")
	}
	got, err := hex.DecodeString(provided)
	if err != nil {
		return webhooks.Event{}, pkgerrors.New(pkgerrors.CodeInvalidSignature, "malformed carrier signature")
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return webhooks.Event{}, pkgerrors.New(pkgerrors.CodeInvalidSignature, "invalid carrier signature")
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return webhooks.Event{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode carrier payload")
	}
	if strings.TrimSpace(payload.TrackingNumber) == "" {
		return webhooks.Event{}, pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required")
	}
	return webhooks.Event{
		ID:      strings.TrimSpace(payload.EventID),
		Type:    eventType,
		Payload: payload,
	}, nil
}

// Apply records the tracking status on the order carrying the number. Unknown
// tracking numbers are recorded only.
func (s *Source) Apply(ctx context.Context, evt webhooks.Event) error {
	payload, ok := evt.Payload.(Payload)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInternal, "unexpected carrier payload")
	}
	ctx = s.logg.WithField(ctx, "tracking_number", payload.TrackingNumber)

	order, err := s.orders.FindOrderByTrackingNumber(ctx, payload.TrackingNumber)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(ctx, "carrier event for unknown tracking number")
			return nil
		}
		return err
	}

	_, err = s.orders.ApplyTrackingUpdate(ctx, order.ID, shipping.TrackingUpdate{
		LabelID:        payload.LabelID,
		TrackingNumber: payload.TrackingNumber,
		Status:         statusOf(payload.StatusCode),
		Description:    payload.Description,
		OccurredAt:     payload.OccurredAt,
	}, actor)
	return err
}

func statusOf(code string) enums.TrackingStatus {
	if status, err := enums.ParseTrackingStatus(strings.ToLower(strings.TrimSpace(code))); err == nil {
		return status
	}
	return shipping.StatusFromCarrierCode(code)
}
