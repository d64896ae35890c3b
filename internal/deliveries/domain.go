package deliveries

import (
	"time"

	"github.com/angelmondragon/packfinderz-driver/pkg/enums"
	"github.com/angelmondragon/packfinderz-driver/pkg/geo"
	"github.com/shopspring/decimal"
)

// Client is the shop receiving an order.
type Client struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Phone    string          `json:"phone,omitempty"`
	Address  string          `json:"address,omitempty"`
	Location *geo.Point      `json:"location,omitempty"`
	OldDebt  decimal.Decimal `json:"old_debt"`
}

// LineItem is one product line of an order.
type LineItem struct {
	ProductID         string          `json:"product_id"`
	ProductName       string          `json:"product_name,omitempty"`
	QuantityOrdered   int             `json:"quantity_ordered"`
	QuantityConfirmed *int            `json:"quantity_confirmed,omitempty"`
	QuantityDelivered int             `json:"quantity_delivered"`
	QuantityReturned  int             `json:"quantity_returned"`
	ReturnReason      string          `json:"return_reason,omitempty"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Subtotal          decimal.Decimal `json:"subtotal"`
}

// ConfirmedQuantity falls back to the ordered quantity when the warehouse
// has not confirmed the line.
func (l LineItem) ConfirmedQuantity() int {
	if l.QuantityConfirmed != nil {
		return *l.QuantityConfirmed
	}
	return l.QuantityOrdered
}

// Loaded reports whether the line went on the vehicle. A line without a
// confirmed quantity counts as loaded in full.
func (l LineItem) Loaded() bool {
	return l.QuantityConfirmed == nil || *l.QuantityConfirmed > 0
}

// Balanced reports whether delivered and returned units add up to the
// confirmed quantity.
func (l LineItem) Balanced() bool {
	return l.QuantityDelivered+l.QuantityReturned == l.ConfirmedQuantity()
}

// Order is a single client drop within a delivery run.
type Order struct {
	ID              string            `json:"id"`
	ClientID        string            `json:"client_id"`
	Client          Client            `json:"client"`
	Status          enums.OrderStatus `json:"status"`
	AmountDue       decimal.Decimal   `json:"amount_due"`
	AmountCollected decimal.Decimal   `json:"amount_collected"`
	Items           []LineItem        `json:"items"`
	Notes           string            `json:"notes,omitempty"`
	FailReason      string            `json:"fail_reason,omitempty"`
}

func (o Order) NeedsAction() bool { return o.Status.NeedsAction() }
func (o Order) IsHandled() bool   { return o.Status.IsHandled() }

// Item returns the line for productID.
func (o Order) Item(productID string) (LineItem, bool) {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return LineItem{}, false
}

// Delivery is one driver run.
type Delivery struct {
	ID             string               `json:"id"`
	Reference      string               `json:"reference"`
	Status         enums.DeliveryStatus `json:"status"`
	ScheduledFor   *time.Time           `json:"scheduled_for,omitempty"`
	Orders         []Order              `json:"orders"`
	TotalOrders    int                  `json:"total_orders"`
	DeliveredCount int                  `json:"delivered_count"`
	FailedCount    int                  `json:"failed_count"`
}

// Order returns the order with id.
func (d *Delivery) Order(id string) (Order, bool) {
	if d == nil {
		return Order{}, false
	}
	for _, order := range d.Orders {
		if order.ID == id {
			return order, true
		}
	}
	return Order{}, false
}

// PendingCount is the number of orders still needing action.
func (d *Delivery) PendingCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, order := range d.Orders {
		if order.NeedsAction() {
			n++
		}
	}
	return n
}

// FillCounters derives the run counters from the orders when the backend
// omitted them.
func (d *Delivery) FillCounters() {
	if d.TotalOrders == 0 {
		d.TotalOrders = len(d.Orders)
	}
	if d.DeliveredCount == 0 && d.FailedCount == 0 {
		for _, order := range d.Orders {
			switch order.Status {
			case enums.OrderStatusDelivered, enums.OrderStatusPartial:
				d.DeliveredCount++
			case enums.OrderStatusFailed:
				d.FailedCount++
			}
		}
	}
}
