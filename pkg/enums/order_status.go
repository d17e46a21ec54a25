package enums

import "fmt"

// OrderStatus tracks a trade-in order through the fulfillment pipeline.
type OrderStatus string

const (
	OrderStatusPendingShipment OrderStatus = "pending_shipment"
	OrderStatusLabelGenerated  OrderStatus = "label_generated"
	OrderStatusInTransit       OrderStatus = "in_transit"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusReceived        OrderStatus = "received"
	OrderStatusInspecting      OrderStatus = "inspecting"
	OrderStatusReOfferPending  OrderStatus = "re_offer_pending"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusReturnRequested OrderStatus = "return_requested"
	OrderStatusReturned        OrderStatus = "returned"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingShipment,
	OrderStatusLabelGenerated,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusReceived,
	OrderStatusInspecting,
	OrderStatusReOfferPending,
	OrderStatusCompleted,
	OrderStatusReturnRequested,
	OrderStatusReturned,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into a OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// IsTerminal reports whether no further fulfillment steps follow the status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusReturned, OrderStatusCancelled:
		return true
	}
	return false
}

// AwaitingDevice reports whether the order is still waiting for the customer to ship.
func (s OrderStatus) AwaitingDevice() bool {
	return s == OrderStatusPendingShipment || s == OrderStatusLabelGenerated
}
