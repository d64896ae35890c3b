package enums

import "fmt"

// OrderStatus tracks the fulfillment outcome of a single order within a delivery run.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusPostponed OrderStatus = "postponed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusDelivered,
	OrderStatusPartial,
	OrderStatusFailed,
	OrderStatusPostponed,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// NeedsAction reports whether the driver still has to act on the order.
func (o OrderStatus) NeedsAction() bool {
	return o == OrderStatusPending || o == OrderStatusPostponed
}

// IsHandled reports whether the order reached a terminal outcome for the run.
// Postponed is not handled: it still requires a future decision.
func (o OrderStatus) IsHandled() bool {
	switch o {
	case OrderStatusDelivered, OrderStatusPartial, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
