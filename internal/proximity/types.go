package proximity

import (
	"time"

	"github.com/angelmondragon/packfinderz-driver/pkg/geo"
)

// Stop is a pending delivery destination. Location is nil when the backend
// has no usable coordinates for the client.
type Stop struct {
	OrderID       string     `json:"order_id"`
	ClientName    string     `json:"client_name"`
	ClientPhone   string     `json:"client_phone,omitempty"`
	ClientAddress string     `json:"client_address,omitempty"`
	Location      *geo.Point `json:"location,omitempty"`
}

// StoreProximity is the per-sample distance of the driver to one stop.
type StoreProximity struct {
	OrderID        string   `json:"order_id"`
	ClientName     string   `json:"client_name"`
	ClientPhone    string   `json:"client_phone,omitempty"`
	ClientAddress  string   `json:"client_address,omitempty"`
	DistanceMeters *float64 `json:"distance_meters"`
	IsNearby       bool     `json:"is_nearby"`
	IsSkipped      bool     `json:"is_skipped"`
}

// HasDistance reports whether a distance could be computed.
func (p StoreProximity) HasDistance() bool {
	return p.DistanceMeters != nil
}

// Notification is an arrival alert handed to the local sink.
type Notification struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"order_id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Phone          string    `json:"phone,omitempty"`
	DistanceMeters float64   `json:"distance_meters"`
	CreatedAt      time.Time `json:"created_at"`
}
