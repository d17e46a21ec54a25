// Package notifications sends customer-facing order notifications. Delivery is
// fire-and-forget: callers log failures and never roll back on them.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
)

// Kind names the notification template.
type Kind string

const (
	KindOrderStatusUpdated Kind = "order.status_updated"
	KindReOfferProposed    Kind = "order.re_offer_proposed"
	KindWholesalePaid      Kind = "wholesale.order_paid"
)

// Notification is the message published for the delivery workers.
type Notification struct {
	Kind        Kind           `json:"kind"`
	OrderID     string         `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	Recipient   string         `json:"recipient"`
	Name        string         `json:"name,omitempty"`
	Status      string         `json:"status,omitempty"`
	Note        string         `json:"note,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// PubSubNotifier publishes notifications to a Pub/Sub topic.
type PubSubNotifier struct {
	publisher topicPublisher
}

// NewPubSubNotifier wraps the notification topic publisher.
func NewPubSubNotifier(publisher *pubsub.Publisher) (*PubSubNotifier, error) {
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification publisher required")
	}
	return &PubSubNotifier{publisher: publisher}, nil
}

// Notify publishes n and waits for the server acknowledgement.
func (p *PubSubNotifier) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"kind":         string(n.Kind),
			"order_number": n.OrderNumber,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish notification")
	}
	return nil
}

// LogNotifier records notifications in the service log when no topic is configured.
type LogNotifier struct {
	logg *logger.Logger
}

// NewLogNotifier builds the fallback notifier.
func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

// Notify logs n.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	ctx = l.logg.WithFields(ctx, map[string]any{
		"kind":         n.Kind,
		"order_number": n.OrderNumber,
		"recipient":    n.Recipient,
		"status":       n.Status,
	})
	l.logg.Info(ctx, "notification recorded")
	return nil
}
