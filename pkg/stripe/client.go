package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/tradein-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Intent is the part of a created payment intent handed back to buyers.
type Intent struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
}

type intentCreator func(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)

// Client wraps Stripe's API client plus env-specific metadata.
type Client struct {
	api           *stripe.Client
	environment   string
	signingSecret string
	createIntent  intentCreator
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	signingSecret := strings.TrimSpace(cfg.Secret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	api := stripe.NewClient(apiKey)

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		api:           api,
		environment:   env,
		signingSecret: signingSecret,
		createIntent:  api.V1PaymentIntents.Create,
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreatePaymentIntent creates a card payment intent for amount in the major
// currency unit. Metadata is attached verbatim so webhooks can route the result.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (Intent, error) {
	if c == nil || c.createIntent == nil {
		return Intent{}, pkgerrors.New(pkgerrors.CodeDependency, "stripe client not configured")
	}
	cents, err := ToMinorUnits(amount)
	if err != nil {
		return Intent{}, err
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(cents),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	pi, err := c.createIntent(ctx, params)
	if err != nil {
		return Intent{}, pkgerrors.Wrap(pkgerrors.CodeAdapter, err, "create stripe payment intent")
	}
	return Intent{PaymentIntentID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// VerifyWebhookSignature checks the Stripe-Signature header against the
// signing secret and decodes the event. Any failure is INVALID_SIGNATURE.
func (c *Client) VerifyWebhookSignature(payload []byte, header string) (stripe.Event, error) {
	if c == nil || c.signingSecret == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeInvalidSignature, "stripe webhook secret not configured")
	}
	return VerifySignature(payload, header, c.signingSecret)
}

// VerifySignature validates a Stripe webhook payload with an explicit secret.
func VerifySignature(payload []byte, header, secret string) (stripe.Event, error) {
	if strings.TrimSpace(header) == "" || secret == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeInvalidSignature, "missing stripe signature")
	}
	event, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeInvalidSignature, err, "invalid stripe signature")
	}
	return event, nil
}

// ToMinorUnits converts a major-unit amount to a positive integer of cents.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	cents := amount.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount has more than two decimal places")
	}
	if cents.Sign() <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return cents.IntPart(), nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
