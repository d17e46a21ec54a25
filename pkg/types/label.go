package types

import (
	"time"

	"github.com/angelmondragon/tradein-backend/pkg/enums"
)

// Label is a carrier shipping label attached to an order.
type Label struct {
	ID             string               `json:"id" validate:"required"`
	Kind           enums.LabelKind      `json:"kind" validate:"required,enum"`
	Carrier        string               `json:"carrier"`
	ServiceCode    string               `json:"service_code,omitempty"`
	TrackingNumber string               `json:"tracking_number"`
	URL            string               `json:"url,omitempty"`
	TrackingStatus enums.TrackingStatus `json:"tracking_status,omitempty" validate:"omitempty,enum"`
	Metadata       map[string]string    `json:"metadata,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// Labels is a set keyed by Label.ID.
type Labels []Label

// Find returns the label with the given id.
func (l Labels) Find(id string) (Label, bool) {
	for _, label := range l {
		if label.ID == id {
			return label, true
		}
	}
	return Label{}, false
}

// Has reports whether a label with id exists.
func (l Labels) Has(id string) bool {
	_, ok := l.Find(id)
	return ok
}

// Add appends label unless its id is already present. It reports whether the set changed.
func (l *Labels) Add(label Label) bool {
	if l.Has(label.ID) {
		return false
	}
	*l = append(*l, label)
	return true
}

// Remove deletes the label with id. It reports whether the set changed.
func (l *Labels) Remove(id string) bool {
	out := (*l)[:0]
	removed := false
	for _, label := range *l {
		if label.ID == id {
			removed = true
			continue
		}
		out = append(out, label)
	}
	*l = out
	return removed
}

// Replace swaps the label with the same id. It reports whether a label was replaced.
func (l Labels) Replace(label Label) bool {
	for i := range l {
		if l[i].ID == label.ID {
			l[i] = label
			return true
		}
	}
	return false
}

// FindByTracking returns the label carrying trackingNumber.
func (l Labels) FindByTracking(trackingNumber string) (Label, bool) {
	for _, label := range l {
		if trackingNumber != "" && label.TrackingNumber == trackingNumber {
			return label, true
		}
	}
	return Label{}, false
}

// ActivityLog is one entry of an order's append-only activity history.
type ActivityLog struct {
	ID      string         `json:"id"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"`
	At      time.Time      `json:"at"`
	Context map[string]any `json:"context,omitempty"`
}

// ActivityLogs is ordered oldest first.
type ActivityLogs []ActivityLog
