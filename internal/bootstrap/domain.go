// Package bootstrap builds the service graph shared by the api and cron-worker binaries.
package bootstrap

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/multierr"

	"github.com/angelmondragon/tradein-backend/internal/notifications"
	"github.com/angelmondragon/tradein-backend/internal/ordernumber"
	"github.com/angelmondragon/tradein-backend/internal/orders"
	"github.com/angelmondragon/tradein-backend/internal/shipping"
	"github.com/angelmondragon/tradein-backend/internal/wholesale"
	"github.com/angelmondragon/tradein-backend/pkg/config"
	"github.com/angelmondragon/tradein-backend/pkg/db"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	"github.com/angelmondragon/tradein-backend/pkg/pubsub"
	"github.com/angelmondragon/tradein-backend/pkg/stripe"
)

type DomainParams struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	// Payments overrides the Stripe client built from config.
	Payments wholesale.PaymentCreator
}

// Domain holds the adapters and services every binary needs.
type Domain struct {
	Orders    *orders.Service
	Wholesale *wholesale.Service
	Shipping  shipping.Adapter
	Stripe    *stripe.Client
	PubSub    *pubsub.Client
}

// NewDomain constructs the adapters once and injects them into the services.
func NewDomain(ctx context.Context, params DomainParams) (*Domain, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	cfg, logg := params.Config, params.Logger
	d := &Domain{}

	carrier, err := shipping.New(cfg.Shipping, logg)
	if err != nil {
		return nil, err
	}
	d.Shipping = carrier

	payments := params.Payments
	if payments == nil {
		d.Stripe, err = stripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return nil, err
		}
		payments = d.Stripe
	}

	notifier, err := d.notifier(ctx, cfg, logg)
	if err != nil {
		return nil, err
	}

	d.Orders, err = orders.NewService(orders.ServiceParams{
		Repo: orders.NewRepository(params.DB.DB()),
		Tx:   params.DB,
		Allocator: ordernumber.NewAllocator(params.DB,
			ordernumber.WithFormat(cfg.OrderNumbers.Prefix, cfg.OrderNumbers.Width),
		),
		Shipping: carrier,
		Notifier: notifier,
		Logger:   logg,
	})
	if err != nil {
		_ = d.Close()
		return nil, err
	}

	d.Wholesale, err = wholesale.NewService(wholesale.ServiceParams{
		Repo: wholesale.NewRepository(params.DB.DB()),
		Tx:   params.DB,
		Allocator: ordernumber.NewAllocator(params.DB,
			ordernumber.WithCounter(ordernumber.CounterWholesale),
			ordernumber.WithFormat(cfg.OrderNumbers.WholesalePrefix, cfg.OrderNumbers.Width),
		),
		Payments:       payments,
		Notifier:       notifier,
		Logger:         logg,
		Currency:       cfg.Wholesale.Currency,
		ReservationTTL: cfg.Wholesale.ReservationTTL,
	})
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// notifier publishes to Pub/Sub when a GCP project is configured and logs otherwise.
func (d *Domain) notifier(ctx context.Context, cfg *config.Config, logg *logger.Logger) (notifications.Notifier, error) {
	if strings.TrimSpace(cfg.GCP.ProjectID) == "" {
		logg.Warn(ctx, "gcp project not set; notifications will be logged only")
		return notifications.NewLogNotifier(logg), nil
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, err
	}
	d.PubSub = client
	notifier, err := notifications.NewPubSubNotifier(client.NotificationPublisher())
	if err != nil {
		_ = client.Close()
		d.PubSub = nil
		return nil, err
	}
	return notifier, nil
}

// Close releases the adapter connections.
func (d *Domain) Close() error {
	if d == nil {
		return nil
	}
	var err error
	if d.PubSub != nil {
		err = multierr.Append(err, d.PubSub.Close())
	}
	return err
}
