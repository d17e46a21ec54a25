// Package shipping creates, voids and tracks carrier labels.
package shipping

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/tradein-backend/pkg/config"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	"github.com/angelmondragon/tradein-backend/pkg/types"
)

// ErrAlreadyVoided is returned when the provider reports the label was voided earlier.
var ErrAlreadyVoided = errors.New("shipping: label already voided")

// Adapter is the carrier integration used by the order core and the sweeps.
type Adapter interface {
	// CreateInboundLabel buys a label shipping the device from the customer to
	// the warehouse. Calls repeating idempotencyKey return the same label.
	CreateInboundLabel(ctx context.Context, order *models.Order, idempotencyKey string) (types.Label, error)
	VoidLabel(ctx context.Context, label types.Label) error
	// RefreshTracking returns the latest carrier status of the order's newest
	// inbound label, or nil when the order has none.
	RefreshTracking(ctx context.Context, order *models.Order) (*TrackingUpdate, error)
}

// TrackingUpdate is a carrier tracking observation for one label.
type TrackingUpdate struct {
	LabelID        string               `json:"label_id"`
	TrackingNumber string               `json:"tracking_number"`
	Status         enums.TrackingStatus `json:"status" validate:"required"`
	Description    string               `json:"description,omitempty"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

// Address is a postal address in the shape carriers expect.
type Address struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Street     string `json:"address_line1"`
	City       string `json:"city_locality"`
	State      string `json:"state_province"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country_code"`
}

// WarehouseAddress builds the receiving address from configuration.
func WarehouseAddress(cfg config.ShippingConfig) Address {
	return Address{
		Name:       cfg.WarehouseName,
		Phone:      cfg.WarehousePhone,
		Street:     cfg.WarehouseStreet,
		City:       cfg.WarehouseCity,
		State:      cfg.WarehouseState,
		PostalCode: cfg.WarehousePostal,
		Country:    cfg.WarehouseCountry,
	}
}

// CustomerAddress converts an order's shipping info to a carrier address.
func CustomerAddress(info types.ShippingInfo) Address {
	country := info.Country
	if country == "" {
		country = "US"
	}
	return Address{
		Name:       info.FullName,
		Phone:      info.Phone,
		Email:      info.Email,
		Street:     info.StreetAddress,
		City:       info.City,
		State:      info.State,
		PostalCode: info.ZipCode,
		Country:    country,
	}
}

// LatestInbound returns the most recently created inbound label.
func LatestInbound(labels types.Labels) (types.Label, bool) {
	var (
		latest types.Label
		found  bool
	)
	for _, label := range labels {
		if label.Kind != enums.LabelKindInbound {
			continue
		}
		if !found || label.CreatedAt.After(latest.CreatedAt) {
			latest = label
			found = true
		}
	}
	return latest, found
}

// New selects the ShipEngine client when an API key is configured and the
// in-memory mock otherwise.
func New(cfg config.ShippingConfig, logg *logger.Logger) (Adapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		if logg != nil {
			logg.Warn(context.Background(), "shipping api key not set; using mock shipping adapter")
		}
		return NewMock(), nil
	}
	return NewShipEngineClient(cfg.APIKey,
		WithBaseURL(cfg.BaseURL),
		WithCarrier(cfg.CarrierID, cfg.ServiceCode),
		WithShipTo(WarehouseAddress(cfg)),
		WithTimeout(cfg.Timeout),
	)
}
