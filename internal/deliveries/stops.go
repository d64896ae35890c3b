package deliveries

import (
	"slices"

	"github.com/angelmondragon/packfinderz-driver/internal/proximity"
)

// PendingStops lists the orders that still need the driver, in snapshot order.
func PendingStops(d *Delivery) []proximity.Stop {
	if d == nil {
		return nil
	}
	stops := make([]proximity.Stop, 0, len(d.Orders))
	for _, order := range d.Orders {
		if !order.NeedsAction() {
			continue
		}
		stop := proximity.Stop{
			OrderID:       order.ID,
			ClientName:    order.Client.Name,
			ClientPhone:   order.Client.Phone,
			ClientAddress: order.Client.Address,
		}
		if order.Client.Location != nil && order.Client.Location.Valid() {
			loc := *order.Client.Location
			stop.Location = &loc
		}
		stops = append(stops, stop)
	}
	return stops
}

// Clone deep-copies the delivery so callers cannot alter the cached snapshot.
func (d *Delivery) Clone() *Delivery {
	if d == nil {
		return nil
	}
	out := *d
	if d.ScheduledFor != nil {
		t := *d.ScheduledFor
		out.ScheduledFor = &t
	}
	out.Orders = make([]Order, len(d.Orders))
	for i, order := range d.Orders {
		order.Items = slices.Clone(order.Items)
		if order.Client.Location != nil {
			loc := *order.Client.Location
			order.Client.Location = &loc
		}
		out.Orders[i] = order
	}
	return &out
}
