package deliveries

import (
	"testing"

	"github.com/angelmondragon/packfinderz-driver/internal/proximity"
	"github.com/angelmondragon/packfinderz-driver/pkg/enums"
)

func meters(v float64) *float64 { return &v }

func TestBuildWorklistOrdersPendingByProximity(t *testing.T) {
	d := &Delivery{ID: "d1", Reference: "RUN-1", Status: enums.DeliveryStatusInProgress, Orders: []Order{
		{ID: "a", Status: enums.OrderStatusPending, Client: Client{Name: "A"}},
		{ID: "done", Status: enums.OrderStatusDelivered, Client: Client{Name: "Done"}},
		{ID: "b", Status: enums.OrderStatusPending, Client: Client{Name: "B"}},
		{ID: "c", Status: enums.OrderStatusPostponed, Client: Client{Name: "C"}},
		{ID: "d", Status: enums.OrderStatusPending, Client: Client{Name: "D"}},
	}}
	prox := []proximity.StoreProximity{
		{OrderID: "a", DistanceMeters: meters(800)},
		{OrderID: "b", DistanceMeters: meters(50), IsNearby: true},
		{OrderID: "c", DistanceMeters: meters(300), IsNearby: true},
	}
	skipped := func(id string) bool { return id == "b" }

	w := BuildWorklist(d, prox, skipped)
	var got []string
	for _, e := range w.Pending {
		got = append(got, e.OrderID)
	}
	want := []string{"c", "a", "d", "b"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if len(w.Handled) != 1 || w.Handled[0].OrderID != "done" {
		t.Fatalf("unexpected handled list %+v", w.Handled)
	}
	if w.Reference != "RUN-1" || !w.Pending[0].IsNearby {
		t.Fatalf("unexpected worklist header or flags %+v", w)
	}
}

func TestBuildWorklistWithoutDelivery(t *testing.T) {
	w := BuildWorklist(nil, nil, nil)
	if w.Pending == nil || w.Handled == nil || len(w.Pending) != 0 {
		t.Fatalf("expected empty non-nil lists, got %+v", w)
	}
}

func TestValidatePartialItemsWithoutOrder(t *testing.T) {
	if err := ValidatePartialItems(nil, nil); err == nil {
		t.Fatalf("expected empty item list rejected")
	}
	items := []PartialItem{
		{ProductID: "p1", QuantityDelivered: 1, QuantityReturned: 2, ReturnReason: "expired"},
		{ProductID: "p2", QuantityDelivered: 4},
	}
	if err := ValidatePartialItems(nil, items); err != nil {
		t.Fatalf("expected valid items, got %v", err)
	}
	dup := append(items, PartialItem{ProductID: "p2", QuantityDelivered: 1})
	if err := ValidatePartialItems(nil, dup); err == nil {
		t.Fatalf("expected duplicate product rejected")
	}
}
