package webhooks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tradein-backend/internal/repo"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
)

// ClaimOutcome reports what Claim found for an event id.
type ClaimOutcome int

const (
	// Claimed means the caller owns the event and must apply it.
	Claimed ClaimOutcome = iota
	// AlreadyProcessed means an earlier delivery finished the event.
	AlreadyProcessed
	// InFlight means another delivery holds a fresh claim.
	InFlight
)

// Claim describes one delivery attempting to own an event.
type Claim struct {
	Provider    string
	EventID     string
	EventType   string
	Synthetic   bool
	PayloadHash string
	At          time.Time
	// StaleBefore lets a delivery take over unprocessed claims older than it.
	StaleBefore time.Time
}

// Store persists event claims.
type Store interface {
	Claim(ctx context.Context, claim Claim) (ClaimOutcome, error)
	MarkProcessed(ctx context.Context, provider, eventID string, at time.Time) error
	Release(ctx context.Context, provider, eventID string) error
}

// DBStore keeps claims in the webhook_events table.
type DBStore struct {
	repo.Base
}

// NewDBStore builds the table-backed store.
func NewDBStore(conn *gorm.DB) *DBStore {
	return &DBStore{Base: repo.NewBase(conn)}
}

// Claim inserts the (provider, event_id) row if absent. An existing row is
// either processed, a stale claim that is taken over, or in flight.
func (s *DBStore) Claim(ctx context.Context, claim Claim) (ClaimOutcome, error) {
	row := models.WebhookEvent{
		ID:          uuid.New(),
		Provider:    claim.Provider,
		EventID:     claim.EventID,
		EventType:   claim.EventType,
		Synthetic:   claim.Synthetic,
		PayloadHash: claim.PayloadHash,
		ClaimedAt:   claim.At,
	}
	res := s.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "claim webhook event")
	}
	if res.RowsAffected == 1 {
		return Claimed, nil
	}

	var existing models.WebhookEvent
	err := s.DB(ctx).
		Where("provider = ? AND event_id = ?", claim.Provider, claim.EventID).
		Take(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Released between the insert and the read; the provider will retry.
			return InFlight, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load webhook event")
	}
	if existing.ProcessedAt != nil {
		return AlreadyProcessed, nil
	}
	if claim.StaleBefore.IsZero() || !existing.ClaimedAt.Before(claim.StaleBefore) {
		return InFlight, nil
	}

	takeover := s.DB(ctx).Model(&models.WebhookEvent{}).
		Where("id = ? AND processed_at IS NULL AND claimed_at = ?", existing.ID, existing.ClaimedAt).
		Update("claimed_at", claim.At)
	if takeover.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, takeover.Error, "take over webhook claim")
	}
	if takeover.RowsAffected == 0 {
		return InFlight, nil
	}
	return Claimed, nil
}

// MarkProcessed finalizes the claim.
func (s *DBStore) MarkProcessed(ctx context.Context, provider, eventID string, at time.Time) error {
	err := s.DB(ctx).Model(&models.WebhookEvent{}).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Update("processed_at", at).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark webhook event processed")
	}
	return nil
}

// Release drops an unprocessed claim so a provider retry can own the event.
func (s *DBStore) Release(ctx context.Context, provider, eventID string) error {
	err := s.DB(ctx).
		Where("provider = ? AND event_id = ? AND processed_at IS NULL", provider, eventID).
		Delete(&models.WebhookEvent{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release webhook claim")
	}
	return nil
}
