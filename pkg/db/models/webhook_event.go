package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent records a claimed provider event. (provider, event_id) is unique.
type WebhookEvent struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Provider    string     `gorm:"column:provider;not null" json:"provider"`
	EventID     string     `gorm:"column:event_id;not null" json:"event_id"`
	EventType   string     `gorm:"column:event_type;not null" json:"event_type"`
	Synthetic   bool       `gorm:"column:synthetic;not null;default:false" json:"synthetic"`
	PayloadHash string     `gorm:"column:payload_hash;not null" json:"payload_hash"`
	ClaimedAt   time.Time  `gorm:"column:claimed_at;not null" json:"claimed_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
}
