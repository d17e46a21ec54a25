package enums

import "fmt"

// PaymentStatus tracks the payout attached to a trade-in order.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusVoid    PaymentStatus = "void"
)

// paymentTransitions lists the statuses each status may move to.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusVoid},
	PaymentStatusPaid:    nil,
	PaymentStatusVoid:    nil,
}

func (p PaymentStatus) String() string {
	return string(p)
}

func (p PaymentStatus) IsValid() bool {
	_, ok := paymentTransitions[p]
	return ok
}

// IsSettled is true once the payout can no longer change.
func (p PaymentStatus) IsSettled() bool {
	return p.IsValid() && len(paymentTransitions[p]) == 0
}

// CanTransitionTo reports whether next is a legal move from p.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, candidate := range paymentTransitions[p] {
		if candidate == next {
			return true
		}
	}
	return false
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	status := PaymentStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid payment status %q", value)
	}
	return status, nil
}
