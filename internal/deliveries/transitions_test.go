package deliveries

import (
	"testing"

	"github.com/angelmondragon/packfinderz-driver/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to enums.OrderStatus
		want     bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusDelivered, true},
		{enums.OrderStatusPending, enums.OrderStatusPartial, true},
		{enums.OrderStatusPending, enums.OrderStatusFailed, true},
		{enums.OrderStatusPending, enums.OrderStatusPostponed, true},
		{enums.OrderStatusPostponed, enums.OrderStatusPostponed, true},
		{enums.OrderStatusPostponed, enums.OrderStatusDelivered, true},
		{enums.OrderStatusPending, enums.OrderStatusPending, false},
		{enums.OrderStatusDelivered, enums.OrderStatusFailed, false},
		{enums.OrderStatusPartial, enums.OrderStatusDelivered, false},
		{enums.OrderStatusFailed, enums.OrderStatusPostponed, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestEnsureCanComplete(t *testing.T) {
	d := &Delivery{ID: "d1", Status: enums.DeliveryStatusInProgress, Orders: []Order{
		{ID: "o1", Status: enums.OrderStatusDelivered},
		{ID: "o2", Status: enums.OrderStatusPostponed},
	}}
	err := EnsureCanComplete(d)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict with postponed order, got %v", err)
	}

	d.Orders[1].Status = enums.OrderStatusFailed
	if err := EnsureCanComplete(d); err != nil {
		t.Fatalf("expected complete allowed, got %v", err)
	}

	d.Status = enums.DeliveryStatusPreparing
	if err := EnsureCanComplete(d); err == nil {
		t.Fatalf("expected preparing delivery to be rejected")
	}
}

func TestEnsureCanStart(t *testing.T) {
	if err := EnsureCanStart(&Delivery{Status: enums.DeliveryStatusPreparing}); err != nil {
		t.Fatalf("expected start allowed: %v", err)
	}
	if err := EnsureCanStart(&Delivery{Status: enums.DeliveryStatusCompleted}); err == nil {
		t.Fatalf("expected start rejected for completed delivery")
	}
}
