package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/types"
)

const (
	defaultBaseURL        = "https://api.shipengine.com"
	defaultTimeout        = 15 * time.Second
	defaultPackageOunces  = 16.0
	responseBodyReadLimit = 1024
)

var errAPIKeyRequired = errors.New("shipengine api key is required")

// ShipEngineClient talks to the ShipEngine v1 REST API.
type ShipEngineClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	carrierID   string
	serviceCode string
	shipTo      Address
	now         func() time.Time
}

// ClientOption configures optional client behavior.
type ClientOption func(*ShipEngineClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *ShipEngineClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *ShipEngineClient) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithCarrier selects the carrier account and service level for new labels.
func WithCarrier(carrierID, serviceCode string) ClientOption {
	return func(c *ShipEngineClient) {
		c.carrierID = strings.TrimSpace(carrierID)
		if serviceCode != "" {
			c.serviceCode = serviceCode
		}
	}
}

// WithShipTo sets the receiving warehouse address.
func WithShipTo(addr Address) ClientOption {
	return func(c *ShipEngineClient) {
		c.shipTo = addr
	}
}

// WithTimeout bounds each API call.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ShipEngineClient) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewShipEngineClient builds the client given an API key.
func NewShipEngineClient(apiKey string, opts ...ClientOption) (*ShipEngineClient, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &ShipEngineClient{
		apiKey:      trimmedKey,
		baseURL:     defaultBaseURL,
		serviceCode: "usps_first_class_mail",
		httpClient:  &http.Client{Timeout: defaultTimeout},
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type labelRequest struct {
	Shipment struct {
		CarrierID          string    `json:"carrier_id,omitempty"`
		ServiceCode        string    `json:"service_code"`
		ExternalShipmentID string    `json:"external_shipment_id,omitempty"`
		ShipTo             Address   `json:"ship_to"`
		ShipFrom           Address   `json:"ship_from"`
		Packages           []pkgSpec `json:"packages"`
	} `json:"shipment"`
	LabelFormat string `json:"label_format"`
}

type pkgSpec struct {
	Weight struct {
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`
	} `json:"weight"`
}

type labelResponse struct {
	LabelID        string `json:"label_id"`
	TrackingNumber string `json:"tracking_number"`
	CarrierCode    string `json:"carrier_code"`
	ServiceCode    string `json:"service_code"`
	ShipmentID     string `json:"shipment_id"`
	LabelDownload  struct {
		PDF  string `json:"pdf"`
		Href string `json:"href"`
	} `json:"label_download"`
}

// CreateInboundLabel purchases a label from the customer to the warehouse.
// The idempotency key is sent as the external shipment id.
func (c *ShipEngineClient) CreateInboundLabel(ctx context.Context, order *models.Order, idempotencyKey string) (types.Label, error) {
	if order == nil {
		return types.Label{}, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}

	var req labelRequest
	req.LabelFormat = "pdf"
	req.Shipment.CarrierID = c.carrierID
	req.Shipment.ServiceCode = c.serviceCode
	req.Shipment.ExternalShipmentID = idempotencyKey
	req.Shipment.ShipTo = c.shipTo
	req.Shipment.ShipFrom = CustomerAddress(order.ShippingInfo)
	var pkg pkgSpec
	pkg.Weight.Value = defaultPackageOunces
	pkg.Weight.Unit = "ounce"
	req.Shipment.Packages = []pkgSpec{pkg}

	var resp labelResponse
	if err := c.do(ctx, http.MethodPost, "v1/labels", idempotencyKey, req, &resp); err != nil {
		return types.Label{}, err
	}
	if resp.LabelID == "" {
		return types.Label{}, pkgerrors.New(pkgerrors.CodeAdapter, "shipengine returned no label id")
	}

	labelURL := resp.LabelDownload.PDF
	if labelURL == "" {
		labelURL = resp.LabelDownload.Href
	}
	now := c.now()
	return types.Label{
		ID:             resp.LabelID,
		Kind:           enums.LabelKindInbound,
		Carrier:        resp.CarrierCode,
		ServiceCode:    resp.ServiceCode,
		TrackingNumber: resp.TrackingNumber,
		URL:            labelURL,
		TrackingStatus: enums.TrackingStatusPreTransit,
		Metadata: map[string]string{
			"shipment_id":  resp.ShipmentID,
			"order_number": order.OrderNumber,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

type voidResponse struct {
	Approved bool   `json:"approved"`
	Message  string `json:"message"`
}

// VoidLabel asks the carrier to void the label.
func (c *ShipEngineClient) VoidLabel(ctx context.Context, label types.Label) error {
	var resp voidResponse
	path := fmt.Sprintf("v1/labels/%s/void", url.PathEscape(label.ID))
	if err := c.do(ctx, http.MethodPut, path, "", nil, &resp); err != nil {
		return err
	}
	if resp.Approved {
		return nil
	}
	if strings.Contains(strings.ToLower(resp.Message), "already") {
		return ErrAlreadyVoided
	}
	return pkgerrors.New(pkgerrors.CodeAdapter, "label void rejected").WithDetails(map[string]any{
		"label_id": label.ID,
		"message":  resp.Message,
	})
}

type trackResponse struct {
	TrackingNumber    string `json:"tracking_number"`
	StatusCode        string `json:"status_code"`
	StatusDescription string `json:"status_description"`
	Events            []struct {
		OccurredAt time.Time `json:"occurred_at"`
	} `json:"events"`
}

// RefreshTracking fetches the tracking status of the newest inbound label.
func (c *ShipEngineClient) RefreshTracking(ctx context.Context, order *models.Order) (*TrackingUpdate, error) {
	if order == nil {
		return nil, nil
	}
	label, ok := LatestInbound(order.Labels)
	if !ok {
		return nil, nil
	}

	var resp trackResponse
	path := fmt.Sprintf("v1/labels/%s/track", url.PathEscape(label.ID))
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}

	occurred := c.now()
	if n := len(resp.Events); n > 0 && !resp.Events[0].OccurredAt.IsZero() {
		occurred = resp.Events[0].OccurredAt.UTC()
	}
	trackingNumber := resp.TrackingNumber
	if trackingNumber == "" {
		trackingNumber = label.TrackingNumber
	}
	return &TrackingUpdate{
		LabelID:        label.ID,
		TrackingNumber: trackingNumber,
		Status:         StatusFromCarrierCode(resp.StatusCode),
		Description:    resp.StatusDescription,
		OccurredAt:     occurred,
	}, nil
}

// StatusFromCarrierCode maps ShipEngine status codes onto tracking statuses.
func StatusFromCarrierCode(code string) enums.TrackingStatus {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "NY":
		return enums.TrackingStatusPreTransit
	case "AC", "IT", "AT":
		return enums.TrackingStatusInTransit
	case "DE":
		return enums.TrackingStatusDelivered
	case "EX":
		return enums.TrackingStatusException
	default:
		return enums.TrackingStatusUnknown
	}
}

func (c *ShipEngineClient) do(ctx context.Context, method, path, idempotencyKey string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeAdapter, err, "marshal shipengine request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeAdapter, err, "build shipengine request")
	}
	httpReq.Header.Set("API-Key", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeAdapter, err, "execute shipengine request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeAdapter,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"shipengine request failed")
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeAdapter, err, "decode shipengine response")
	}
	return nil
}

func (c *ShipEngineClient) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
