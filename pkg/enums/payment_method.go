package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod is how the customer wants to be paid for a device.
type PaymentMethod string

const (
	PaymentMethodPayPal PaymentMethod = "paypal"
	PaymentMethodZelle  PaymentMethod = "zelle"
	PaymentMethodCheck  PaymentMethod = "check"
	PaymentMethodCard   PaymentMethod = "card"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodPayPal,
	PaymentMethodZelle,
	PaymentMethodCheck,
	PaymentMethodCard,
}

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// PaysToEmail reports whether the payout is addressed to an email handle.
// Those methods default their payout account to the shipping email.
func (p PaymentMethod) PaysToEmail() bool {
	return p == PaymentMethodPayPal || p == PaymentMethodZelle
}

// SettlesByWebhook reports whether settlement is confirmed by a payment
// provider callback rather than by an operator.
func (p PaymentMethod) SettlesByWebhook() bool {
	return p == PaymentMethodCard
}

// ParsePaymentMethod accepts any casing and surrounding space.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	normalized := PaymentMethod(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
