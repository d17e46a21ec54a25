package enums

import "fmt"

// ReOfferStatus tracks a revised quote after device inspection.
type ReOfferStatus string

const (
	ReOfferStatusPending  ReOfferStatus = "pending"
	ReOfferStatusAccepted ReOfferStatus = "accepted"
	ReOfferStatusDeclined ReOfferStatus = "declined"
)

var validReOfferStatuses = []ReOfferStatus{
	ReOfferStatusPending,
	ReOfferStatusAccepted,
	ReOfferStatusDeclined,
}

// String implements fmt.Stringer.
func (r ReOfferStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReOfferStatus.
func (r ReOfferStatus) IsValid() bool {
	for _, candidate := range validReOfferStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReOfferStatus converts raw input into a ReOfferStatus.
func ParseReOfferStatus(value string) (ReOfferStatus, error) {
	for _, candidate := range validReOfferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid re-offer status %q", value)
}
