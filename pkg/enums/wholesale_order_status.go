package enums

import "fmt"

// WholesaleOrderStatus tracks a wholesale checkout through payment.
type WholesaleOrderStatus string

const (
	WholesaleOrderStatusPending       WholesaleOrderStatus = "pending"
	WholesaleOrderStatusPaid          WholesaleOrderStatus = "paid"
	WholesaleOrderStatusPaymentFailed WholesaleOrderStatus = "payment_failed"
	WholesaleOrderStatusExpired       WholesaleOrderStatus = "expired"
)

var validWholesaleOrderStatuses = []WholesaleOrderStatus{
	WholesaleOrderStatusPending,
	WholesaleOrderStatusPaid,
	WholesaleOrderStatusPaymentFailed,
	WholesaleOrderStatusExpired,
}

// String implements fmt.Stringer.
func (w WholesaleOrderStatus) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WholesaleOrderStatus.
func (w WholesaleOrderStatus) IsValid() bool {
	for _, candidate := range validWholesaleOrderStatuses {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWholesaleOrderStatus converts raw input into a WholesaleOrderStatus.
func ParseWholesaleOrderStatus(value string) (WholesaleOrderStatus, error) {
	for _, candidate := range validWholesaleOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wholesale order status %q", value)
}
