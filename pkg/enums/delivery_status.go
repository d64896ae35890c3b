package enums

import "fmt"

// DeliveryStatus tracks the lifecycle of a driver's delivery run.
type DeliveryStatus string

const (
	DeliveryStatusPreparing  DeliveryStatus = "preparing"
	DeliveryStatusInProgress DeliveryStatus = "in_progress"
	DeliveryStatusCompleted  DeliveryStatus = "completed"
	DeliveryStatusCancelled  DeliveryStatus = "cancelled"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPreparing,
	DeliveryStatusInProgress,
	DeliveryStatusCompleted,
	DeliveryStatusCancelled,
}

// String implements fmt.Stringer.
func (d DeliveryStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsClosed reports whether the run can no longer change.
func (d DeliveryStatus) IsClosed() bool {
	return d == DeliveryStatusCompleted || d == DeliveryStatusCancelled
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
