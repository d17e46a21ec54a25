package enums

import "fmt"

// TrackingStatus is the normalized carrier tracking state of a label.
type TrackingStatus string

const (
	TrackingStatusUnknown    TrackingStatus = "unknown"
	TrackingStatusPreTransit TrackingStatus = "pre_transit"
	TrackingStatusInTransit  TrackingStatus = "in_transit"
	TrackingStatusDelivered  TrackingStatus = "delivered"
	TrackingStatusException  TrackingStatus = "exception"
)

var validTrackingStatuses = []TrackingStatus{
	TrackingStatusUnknown,
	TrackingStatusPreTransit,
	TrackingStatusInTransit,
	TrackingStatusDelivered,
	TrackingStatusException,
}

// String implements fmt.Stringer.
func (t TrackingStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TrackingStatus.
func (t TrackingStatus) IsValid() bool {
	for _, candidate := range validTrackingStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTrackingStatus converts raw input into a TrackingStatus.
func ParseTrackingStatus(value string) (TrackingStatus, error) {
	for _, candidate := range validTrackingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tracking status %q", value)
}
