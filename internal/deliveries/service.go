package deliveries

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/angelmondragon/packfinderz-driver/internal/proximity"
	"github.com/angelmondragon/packfinderz-driver/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
	"github.com/shopspring/decimal"
)

// Backend is the remote delivery API.
type Backend interface {
	ActiveDelivery(ctx context.Context) (*Delivery, error)
	Deliveries(ctx context.Context) ([]Delivery, error)
	StartDelivery(ctx context.Context, deliveryID string) error
	CompleteDelivery(ctx context.Context, deliveryID string) error
	DeliverOrder(ctx context.Context, input DeliverInput) error
	PartialDeliverOrder(ctx context.Context, input PartialDeliverInput) error
	FailOrder(ctx context.Context, input FailInput) error
	PostponeOrder(ctx context.Context, input PostponeInput) error
}

// StopSink receives the pending stops after every refresh.
type StopSink interface {
	SetStops(stops []proximity.Stop)
}

// Service is the delivery run state machine. It never mutates the cached
// snapshot in place: every successful mutation is followed by a re-fetch.
type Service interface {
	Refresh(ctx context.Context) (*Delivery, error)
	Current() *Delivery
	History(ctx context.Context) ([]Delivery, error)
	Start(ctx context.Context, deliveryID string) (*Delivery, error)
	Complete(ctx context.Context, deliveryID string) (*Delivery, error)
	Deliver(ctx context.Context, input DeliverInput) (*Delivery, error)
	PartialDeliver(ctx context.Context, input PartialDeliverInput) (*Delivery, error)
	Fail(ctx context.Context, input FailInput) (*Delivery, error)
	Postpone(ctx context.Context, input PostponeInput) (*Delivery, error)
	Money(orderID string, oldDebt, amountCollected *decimal.Decimal) (Reconciliation, error)
}

// DeliverInput records a full delivery. A nil AmountCollected means the
// full amount due was collected.
type DeliverInput struct {
	DeliveryID      string
	OrderID         string
	AmountCollected *decimal.Decimal
}

// PartialItem is the driver's count for one returned or short line.
type PartialItem struct {
	ProductID         string `json:"product_id"`
	QuantityDelivered int    `json:"quantity_delivered"`
	QuantityReturned  int    `json:"quantity_returned"`
	ReturnReason      string `json:"return_reason,omitempty"`
}

type PartialDeliverInput struct {
	DeliveryID      string
	OrderID         string
	Items           []PartialItem
	AmountCollected *decimal.Decimal
}

// FailInput carries either a vocabulary code or free text.
type FailInput struct {
	DeliveryID string
	OrderID    string
	Reason     string
}

type PostponeInput struct {
	DeliveryID string
	OrderID    string
	Notes      string
}

// ServiceParams wire the delivery service.
type ServiceParams struct {
	Logger  *logger.Logger
	Backend Backend
	Stops   StopSink
}

type service struct {
	logg    *logger.Logger
	backend Backend
	stops   StopSink

	// refreshMu keeps the fetch, the snapshot swap and the stop publication
	// of one refresh together, so the engine never trails Current().
	refreshMu sync.Mutex

	mu      sync.RWMutex
	current *Delivery
}

func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery backend required")
	}
	return &service{
		logg:    params.Logger,
		backend: params.Backend,
		stops:   params.Stops,
	}, nil
}

func (s *service) Refresh(ctx context.Context) (*Delivery, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	delivery, err := s.backend.ActiveDelivery(ctx)
	if err != nil {
		s.logg.Error(ctx, "active delivery refresh failed", err)
		return nil, err
	}
	if delivery != nil {
		delivery.FillCounters()
	}

	s.mu.Lock()
	s.current = delivery
	s.mu.Unlock()

	if s.stops != nil {
		s.stops.SetStops(PendingStops(delivery))
	}
	if delivery != nil {
		ctx = s.logg.WithDeliveryID(ctx, delivery.ID)
		ctx = s.logg.WithField(ctx, "pending_orders", delivery.PendingCount())
	}
	s.logg.Info(ctx, "active delivery refreshed")
	return delivery.Clone(), nil
}

func (s *service) Current() *Delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

func (s *service) History(ctx context.Context) ([]Delivery, error) {
	list, err := s.backend.Deliveries(ctx)
	if err != nil {
		s.logg.Error(ctx, "delivery history failed", err)
		return nil, err
	}
	for i := range list {
		list[i].FillCounters()
	}
	return list, nil
}

func (s *service) Start(ctx context.Context, deliveryID string) (*Delivery, error) {
	if err := requireID("delivery id", deliveryID); err != nil {
		return nil, err
	}
	ctx = s.logg.WithDeliveryID(ctx, deliveryID)
	if current := s.snapshotFor(deliveryID); current != nil {
		if err := EnsureCanStart(current); err != nil {
			return nil, err
		}
	}
	if err := s.backend.StartDelivery(ctx, deliveryID); err != nil {
		s.logg.Error(ctx, "start delivery failed", err)
		return nil, err
	}
	s.logg.Info(ctx, "delivery started")
	return s.refreshAfter(ctx), nil
}

func (s *service) Complete(ctx context.Context, deliveryID string) (*Delivery, error) {
	if err := requireID("delivery id", deliveryID); err != nil {
		return nil, err
	}
	ctx = s.logg.WithDeliveryID(ctx, deliveryID)
	if current := s.snapshotFor(deliveryID); current != nil {
		if err := EnsureCanComplete(current); err != nil {
			return nil, err
		}
	}
	if err := s.backend.CompleteDelivery(ctx, deliveryID); err != nil {
		s.logg.Error(ctx, "complete delivery failed", err)
		return nil, err
	}
	s.logg.Info(ctx, "delivery completed")
	return s.refreshAfter(ctx), nil
}

func (s *service) Deliver(ctx context.Context, input DeliverInput) (*Delivery, error) {
	ctx, err := s.guardOrder(ctx, input.DeliveryID, input.OrderID, enums.OrderStatusDelivered)
	if err != nil {
		return nil, err
	}
	if err := requireNonNegative(input.AmountCollected); err != nil {
		return nil, err
	}
	if err := s.backend.DeliverOrder(ctx, input); err != nil {
		s.logg.Error(ctx, "deliver order failed", err)
		return nil, err
	}
	s.logg.Info(ctx, "order delivered")
	return s.refreshAfter(ctx), nil
}

func (s *service) PartialDeliver(ctx context.Context, input PartialDeliverInput) (*Delivery, error) {
	ctx, err := s.guardOrder(ctx, input.DeliveryID, input.OrderID, enums.OrderStatusPartial)
	if err != nil {
		return nil, err
	}
	if err := requireNonNegative(input.AmountCollected); err != nil {
		return nil, err
	}
	var order *Order
	if current := s.snapshotFor(input.DeliveryID); current != nil {
		if found, ok := current.Order(input.OrderID); ok {
			order = &found
		}
	}
	if err := ValidatePartialItems(order, input.Items); err != nil {
		return nil, err
	}
	if err := s.backend.PartialDeliverOrder(ctx, input); err != nil {
		s.logg.Error(ctx, "partial delivery failed", err)
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "items", len(input.Items)), "order partially delivered")
	return s.refreshAfter(ctx), nil
}

func (s *service) Fail(ctx context.Context, input FailInput) (*Delivery, error) {
	ctx, err := s.guardOrder(ctx, input.DeliveryID, input.OrderID, enums.OrderStatusFailed)
	if err != nil {
		return nil, err
	}
	reason, err := NormalizeFailReason(input.Reason)
	if err != nil {
		return nil, err
	}
	input.Reason = reason
	if err := s.backend.FailOrder(ctx, input); err != nil {
		s.logg.Error(ctx, "fail order failed", err)
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "reason", reason), "order failed")
	return s.refreshAfter(ctx), nil
}

func (s *service) Postpone(ctx context.Context, input PostponeInput) (*Delivery, error) {
	ctx, err := s.guardOrder(ctx, input.DeliveryID, input.OrderID, enums.OrderStatusPostponed)
	if err != nil {
		return nil, err
	}
	input.Notes = strings.TrimSpace(input.Notes)
	if err := s.backend.PostponeOrder(ctx, input); err != nil {
		s.logg.Error(ctx, "postpone order failed", err)
		return nil, err
	}
	s.logg.Info(ctx, "order postponed")
	return s.refreshAfter(ctx), nil
}

// Money reconciles one order of the current run. Defaults: the client's
// carried debt and the amount due.
func (s *service) Money(orderID string, oldDebt, amountCollected *decimal.Decimal) (Reconciliation, error) {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()
	order, ok := current.Order(orderID)
	if !ok {
		return Reconciliation{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not in the active delivery")
	}
	debt := order.Client.OldDebt
	if oldDebt != nil {
		debt = *oldDebt
	}
	collected := order.AmountDue
	if order.IsHandled() {
		collected = order.AmountCollected
	}
	if amountCollected != nil {
		collected = *amountCollected
	}
	return ReconcileOrder(order, debt, collected), nil
}

func (s *service) snapshotFor(deliveryID string) *Delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.current.ID != deliveryID {
		return nil
	}
	return s.current
}

func (s *service) guardOrder(ctx context.Context, deliveryID, orderID string, to enums.OrderStatus) (context.Context, error) {
	if err := requireID("delivery id", deliveryID); err != nil {
		return ctx, err
	}
	if err := requireID("order id", orderID); err != nil {
		return ctx, err
	}
	ctx = s.logg.WithDeliveryID(ctx, deliveryID)
	ctx = s.logg.WithOrderID(ctx, orderID)

	current := s.snapshotFor(deliveryID)
	if current == nil {
		return ctx, nil
	}
	if current.Status != enums.DeliveryStatusInProgress {
		return ctx, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("delivery %s is %s; start it before handling orders", current.ID, current.Status))
	}
	order, ok := current.Order(orderID)
	if !ok {
		return ctx, pkgerrors.New(pkgerrors.CodeNotFound, "order not in the active delivery")
	}
	return ctx, ensureOrderTransition(order, to)
}

// refreshAfter re-fetches after a successful mutation. A failed re-fetch is
// logged and the previous snapshot returned; the mutation itself stands.
func (s *service) refreshAfter(ctx context.Context) *Delivery {
	delivery, err := s.Refresh(ctx)
	if err != nil {
		s.logg.Warn(ctx, "re-fetch after mutation failed; serving previous snapshot")
		return s.Current()
	}
	return delivery
}

func requireID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" required")
	}
	return nil
}

func requireNonNegative(amount *decimal.Decimal) error {
	if amount != nil && amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount collected must not be negative")
	}
	return nil
}
