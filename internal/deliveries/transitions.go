package deliveries

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
	"github.com/angelmondragon/packfinderz-driver/pkg/enums"
)

var orderTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusDelivered,
		enums.OrderStatusPartial,
		enums.OrderStatusFailed,
		enums.OrderStatusPostponed,
	},
	enums.OrderStatusPostponed: {
		enums.OrderStatusPostponed,
		enums.OrderStatusDelivered,
		enums.OrderStatusPartial,
		enums.OrderStatusFailed,
	},
}

// CanTransition reports whether an order may move from one status to another.
// Handled statuses are terminal.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ensureOrderTransition(order Order, to enums.OrderStatus) error {
	if CanTransition(order.Status, to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("order %s cannot move from %s to %s", order.ID, order.Status, to)).
		WithDetails(map[string]any{"order_id": order.ID, "from": order.Status, "to": to})
}

// EnsureCanStart guards preparing -> in_progress.
func EnsureCanStart(d *Delivery) error {
	if d.Status != enums.DeliveryStatusPreparing {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("delivery %s cannot start from %s", d.ID, d.Status))
	}
	return nil
}

// EnsureCanComplete guards in_progress -> completed; every order must be
// handled first.
func EnsureCanComplete(d *Delivery) error {
	if d.Status != enums.DeliveryStatusInProgress {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("delivery %s cannot complete from %s", d.ID, d.Status))
	}
	if pending := d.PendingCount(); pending > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery still has orders needing action").
			WithDetails(map[string]any{"pending_orders": pending})
	}
	return nil
}
