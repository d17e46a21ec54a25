// Package webhooks verifies, deduplicates and applies provider callbacks.
//
// Every delivery claims its (provider, event id) row before the effect runs.
// A processed row answers later deliveries as duplicates; a failed effect
// releases the claim so the provider's retry can reprocess it.
package webhooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	"github.com/angelmondragon/tradein-backend/pkg/metrics"
)

// SyntheticPrefix marks event ids derived from the payload.
const SyntheticPrefix = "synthetic:"

// DefaultClaimTTL is how long an unprocessed claim blocks other deliveries.
const DefaultClaimTTL = 5 * time.Minute

var tracer = otel.Tracer("github.com/angelmondragon/tradein-backend/internal/webhooks")

// Event is a verified provider event.
type Event struct {
	ID        string
	Type      string
	Synthetic bool
	// Payload is the provider-specific decoded body.
	Payload any
}

// Source verifies and applies the events of one provider.
type Source interface {
	Provider() string
	Verify(body []byte, signature string) (Event, error)
	Apply(ctx context.Context, event Event) error
}

// Result tells the caller how the delivery was handled.
type Result struct {
	Provider  string `json:"provider"`
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Duplicate bool   `json:"duplicate"`
	InFlight  bool   `json:"in_flight,omitempty"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

// ProcessorParams wires the processor.
type ProcessorParams struct {
	Store    Store
	Sources  []Source
	Logger   *logger.Logger
	Metrics  *metrics.WebhookMetrics
	ClaimTTL time.Duration
	Now      func() time.Time
}

// Processor runs the claim, apply, mark sequence for every provider.
type Processor struct {
	store    Store
	sources  map[string]Source
	logg     *logger.Logger
	metrics  *metrics.WebhookMetrics
	claimTTL time.Duration
	now      func() time.Time
}

// NewProcessor validates the params and indexes the sources by provider.
func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook store required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	sources := make(map[string]Source, len(params.Sources))
	for _, src := range params.Sources {
		if src == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(src.Provider()))
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook source provider required")
		}
		if _, dup := sources[name]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook source registered twice").
				WithDetails(map[string]any{"provider": name})
		}
		sources[name] = src
	}
	ttl := params.ClaimTTL
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Processor{
		store:    params.Store,
		sources:  sources,
		logg:     params.Logger,
		metrics:  params.Metrics,
		claimTTL: ttl,
		now:      now,
	}, nil
}

// Handle verifies the delivery, claims its event id and applies the effect once.
func (p *Processor) Handle(ctx context.Context, provider string, body []byte, signature string) (Result, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	ctx, span := tracer.Start(ctx, "webhooks.handle")
	defer span.End()
	span.SetAttributes(attribute.String("webhook.provider", provider))

	result, outcome, err := p.handle(ctx, provider, body, signature)
	p.metrics.Observe(provider, outcome)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	span.SetAttributes(
		attribute.String("webhook.event_id", result.EventID),
		attribute.Bool("webhook.duplicate", result.Duplicate),
	)
	return result, nil
}

func (p *Processor) handle(ctx context.Context, provider string, body []byte, signature string) (Result, string, error) {
	result := Result{Provider: provider}
	src, ok := p.sources[provider]
	if !ok {
		return result, metrics.WebhookRejected, pkgerrors.New(pkgerrors.CodeNotFound, "unknown webhook provider").
			WithDetails(map[string]any{"provider": provider})
	}

	event, err := src.Verify(body, signature)
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInvalidSignature, err, "webhook signature verification failed")
		}
		p.logg.Warn(p.logg.WithField(ctx, "provider", provider), "webhook rejected: "+err.Error())
		return result, metrics.WebhookRejected, err
	}

	hash := payloadHash(body)
	if strings.TrimSpace(event.ID) == "" {
		event.ID = SyntheticPrefix + hash
		event.Synthetic = true
		p.metrics.IncSynthetic(provider)
	}
	result.EventID = event.ID
	result.EventType = event.Type
	result.Synthetic = event.Synthetic

	ctx = p.logg.WithFields(ctx, map[string]any{
		"provider":   provider,
		"event_id":   event.ID,
		"event_type": event.Type,
	})
	if event.Synthetic {
		p.logg.Warn(ctx, "webhook event has no provider id; using payload hash")
	}

	now := p.now()
	outcome, err := p.store.Claim(ctx, Claim{
		Provider:    provider,
		EventID:     event.ID,
		EventType:   event.Type,
		Synthetic:   event.Synthetic,
		PayloadHash: hash,
		At:          now,
		StaleBefore: now.Add(-p.claimTTL),
	})
	if err != nil {
		return result, metrics.WebhookFailed, err
	}
	switch outcome {
	case AlreadyProcessed:
		result.Duplicate = true
		p.logg.Info(ctx, "webhook duplicate ignored")
		return result, metrics.WebhookDuplicate, nil
	case InFlight:
		result.Duplicate = true
		result.InFlight = true
		p.logg.Info(ctx, "webhook event already in flight")
		return result, metrics.WebhookInFlight, nil
	}

	if err := src.Apply(ctx, event); err != nil {
		if releaseErr := p.store.Release(ctx, provider, event.ID); releaseErr != nil {
			p.logg.Error(ctx, "release webhook claim", releaseErr)
		}
		p.logg.Error(ctx, "webhook effect failed", err)
		return result, metrics.WebhookFailed, err
	}

	if err := p.store.MarkProcessed(ctx, provider, event.ID, p.now()); err != nil {
		return result, metrics.WebhookFailed, err
	}
	p.logg.Info(ctx, "webhook processed")
	return result, metrics.WebhookProcessed, nil
}

func payloadHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
