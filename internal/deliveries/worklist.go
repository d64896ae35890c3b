package deliveries

import (
	"github.com/angelmondragon/packfinderz-driver/internal/proximity"
	"github.com/angelmondragon/packfinderz-driver/pkg/enums"
	"github.com/shopspring/decimal"
)

// WorklistEntry is one row of the driver's worklist.
type WorklistEntry struct {
	OrderID        string            `json:"order_id"`
	ClientName     string            `json:"client_name"`
	ClientPhone    string            `json:"client_phone,omitempty"`
	ClientAddress  string            `json:"client_address,omitempty"`
	Status         enums.OrderStatus `json:"status"`
	AmountDue      decimal.Decimal   `json:"amount_due"`
	DistanceMeters *float64          `json:"distance_meters"`
	IsNearby       bool              `json:"is_nearby"`
	IsSkipped      bool              `json:"is_skipped"`
}

type Worklist struct {
	DeliveryID string               `json:"delivery_id"`
	Reference  string               `json:"reference"`
	Status     enums.DeliveryStatus `json:"status"`
	Pending    []WorklistEntry      `json:"pending"`
	Handled    []WorklistEntry      `json:"handled"`
	Money      MoneySummary         `json:"money"`
}

// BuildWorklist joins the run with the latest proximity list. Pending
// orders follow the proximity ordering; handled orders keep snapshot order.
func BuildWorklist(d *Delivery, proximities []proximity.StoreProximity, isSkipped func(string) bool) Worklist {
	out := Worklist{Pending: []WorklistEntry{}, Handled: []WorklistEntry{}, Money: Summarize(d)}
	if d == nil {
		return out
	}
	out.DeliveryID, out.Reference, out.Status = d.ID, d.Reference, d.Status

	byOrder := make(map[string]proximity.StoreProximity, len(proximities))
	for _, p := range proximities {
		byOrder[p.OrderID] = p
	}
	for _, order := range d.Orders {
		entry := WorklistEntry{
			OrderID:       order.ID,
			ClientName:    order.Client.Name,
			ClientPhone:   order.Client.Phone,
			ClientAddress: order.Client.Address,
			Status:        order.Status,
			AmountDue:     order.AmountDue,
		}
		if !order.NeedsAction() {
			out.Handled = append(out.Handled, entry)
			continue
		}
		if p, ok := byOrder[order.ID]; ok {
			entry.DistanceMeters = p.DistanceMeters
			entry.IsNearby = p.IsNearby
		}
		if isSkipped != nil {
			entry.IsSkipped = isSkipped(order.ID)
		}
		out.Pending = append(out.Pending, entry)
	}
	out.Pending = proximity.SortByDistance(out.Pending,
		func(e WorklistEntry) (float64, bool) {
			if e.DistanceMeters == nil {
				return 0, false
			}
			return *e.DistanceMeters, true
		},
		func(e WorklistEntry) bool { return e.IsSkipped },
	)
	return out
}
