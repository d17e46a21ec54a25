package enums

import "fmt"

// CustomerAction enumerates the self-service actions a customer can take on an order.
type CustomerAction string

const (
	CustomerActionCancel        CustomerAction = "cancel"
	CustomerActionRequestReturn CustomerAction = "request_return"
	CustomerActionAcceptOffer   CustomerAction = "accept_offer"
	CustomerActionDeclineOffer  CustomerAction = "decline_offer"
)

var validCustomerActions = []CustomerAction{
	CustomerActionCancel,
	CustomerActionRequestReturn,
	CustomerActionAcceptOffer,
	CustomerActionDeclineOffer,
}

// String implements fmt.Stringer.
func (c CustomerAction) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CustomerAction.
func (c CustomerAction) IsValid() bool {
	for _, candidate := range validCustomerActions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCustomerAction converts raw input into a CustomerAction.
func ParseCustomerAction(value string) (CustomerAction, error) {
	for _, candidate := range validCustomerActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid customer action %q", value)
}
