package proximity

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/angelmondragon/packfinderz-driver/internal/location"
	"github.com/angelmondragon/packfinderz-driver/pkg/geo"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
	"github.com/angelmondragon/packfinderz-driver/pkg/metrics"
	"github.com/google/uuid"
)

const (
	DefaultRadiusMeters  = 600.0
	DefaultReleaseMeters = 1000.0
	defaultBuffer        = 8
)

// Notifier is the local notification sink.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// EngineParams configure the proximity engine.
type EngineParams struct {
	Logger        *logger.Logger
	Registry      *SkipRegistry
	Notifier      Notifier
	Metrics       *metrics.TrackingMetrics
	RadiusMeters  float64
	ReleaseMeters float64
	Buffer        int
	Now           func() time.Time
}

// Engine measures each sample against the pending stops, raises one alert
// per arrival and publishes the ordered proximity list.
// Engine state is guarded by the registry mutex.
type Engine struct {
	logg     *logger.Logger
	registry *SkipRegistry
	notifier Notifier
	metrics  *metrics.TrackingMetrics
	radius   float64
	release  float64
	buffer   int
	now      func() time.Time

	mu        *sync.Mutex
	stops     []Stop
	lastPoint *geo.Point
	latest    []StoreProximity
	subs      map[int]chan []StoreProximity
	nextID    int
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewSkipRegistry()
	}
	radius := params.RadiusMeters
	if radius <= 0 {
		radius = DefaultRadiusMeters
	}
	release := params.ReleaseMeters
	if release <= 0 {
		release = DefaultReleaseMeters
	}
	if release < radius {
		return nil, fmt.Errorf("release radius %.0fm must not be below proximity radius %.0fm", release, radius)
	}
	buffer := params.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		logg:     params.Logger,
		registry: registry,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		radius:   radius,
		release:  release,
		buffer:   buffer,
		now:      now,
		mu:       &registry.mu,
		subs:     make(map[int]chan []StoreProximity),
	}, nil
}

// Registry exposes the skip bookkeeping shared with the engine.
func (e *Engine) Registry() *SkipRegistry {
	return e.registry
}

// SetStops replaces the pending stops wholesale and prunes skips for orders
// that are no longer pending. The published list is rebuilt against the
// last known position without raising alerts.
func (e *Engine) SetStops(stops []Stop) {
	ids := make([]string, 0, len(stops))
	for _, stop := range stops {
		ids = append(ids, stop.OrderID)
	}
	e.registry.Prune(ids)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stops = append([]Stop(nil), stops...)
	if e.lastPoint != nil {
		e.latest, _ = e.evaluateLocked(*e.lastPoint, false)
	} else {
		e.latest = e.unlocatedLocked()
	}
	e.broadcastLocked(e.latest)
}

// Stops returns a copy of the pending stops.
func (e *Engine) Stops() []Stop {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Stop(nil), e.stops...)
}

// Skip moves the order to the bottom of the list and suppresses its alert.
func (e *Engine) Skip(orderID string) {
	e.registry.Skip(orderID)
	e.refreshSkipFlags()
}

// Unskip restores normal ordering for the order.
func (e *Engine) Unskip(orderID string) {
	e.registry.Unskip(orderID)
	e.refreshSkipFlags()
}

func (e *Engine) IsSkipped(orderID string) bool {
	return e.registry.IsSkipped(orderID)
}

// ClearNotified forgets every alert; called when tracking stops.
func (e *Engine) ClearNotified() {
	e.registry.ClearNotified()
}

// Evaluate measures point against every pending stop, emits alerts for new
// arrivals and publishes the ordered list.
func (e *Engine) Evaluate(ctx context.Context, point geo.Point) []StoreProximity {
	start := e.now()
	e.mu.Lock()
	p := point
	e.lastPoint = &p
	list, alerts := e.evaluateLocked(point, true)
	e.latest = list
	e.broadcastLocked(list)
	e.mu.Unlock()
	e.metrics.ObserveEvaluation(e.now().Sub(start))

	for _, alert := range alerts {
		e.emit(ctx, alert)
	}
	return append([]StoreProximity(nil), list...)
}

// Latest returns the most recently published list.
func (e *Engine) Latest() []StoreProximity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]StoreProximity(nil), e.latest...)
}

// Subscribe registers a consumer of published lists. Slow consumers lose
// the oldest list.
func (e *Engine) Subscribe() (<-chan []StoreProximity, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan []StoreProximity, e.buffer)
	id := e.nextID
	e.nextID++
	e.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if sub, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(sub)
			}
		})
	}
}

// Close closes every subscriber channel.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
}

// Run evaluates samples until ctx is canceled or the channel closes.
func (e *Engine) Run(ctx context.Context, samples <-chan location.Sample) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-samples:
			if !ok {
				return nil
			}
			e.Evaluate(ctx, sample.Point())
		}
	}
}

func (e *Engine) evaluateLocked(point geo.Point, notify bool) ([]StoreProximity, []Notification) {
	list := make([]StoreProximity, 0, len(e.stops))
	var alerts []Notification
	for _, stop := range e.stops {
		entry := StoreProximity{
			OrderID:       stop.OrderID,
			ClientName:    stop.ClientName,
			ClientPhone:   stop.ClientPhone,
			ClientAddress: stop.ClientAddress,
			IsSkipped:     e.registry.isSkippedLocked(stop.OrderID),
		}
		if stop.Location == nil || !stop.Location.Valid() {
			list = append(list, entry)
			continue
		}
		distance := geo.Distance(point, *stop.Location)
		entry.DistanceMeters = &distance
		entry.IsNearby = distance <= e.radius
		list = append(list, entry)

		if !notify {
			continue
		}
		switch {
		case entry.IsNearby && !entry.IsSkipped && !e.registry.isNotifiedLocked(stop.OrderID, *stop.Location):
			e.registry.markNotifiedLocked(stop.OrderID, *stop.Location)
			alerts = append(alerts, e.notificationFor(stop, distance))
		case distance > e.release:
			e.registry.releaseLocked(stop.OrderID)
		}
	}
	return SortProximities(list), alerts
}

func (e *Engine) unlocatedLocked() []StoreProximity {
	list := make([]StoreProximity, 0, len(e.stops))
	for _, stop := range e.stops {
		list = append(list, StoreProximity{
			OrderID:       stop.OrderID,
			ClientName:    stop.ClientName,
			ClientPhone:   stop.ClientPhone,
			ClientAddress: stop.ClientAddress,
			IsSkipped:     e.registry.isSkippedLocked(stop.OrderID),
		})
	}
	return SortProximities(list)
}

func (e *Engine) refreshSkipFlags() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.latest) == 0 {
		return
	}
	list := make([]StoreProximity, len(e.latest))
	for i, entry := range e.latest {
		entry.IsSkipped = e.registry.isSkippedLocked(entry.OrderID)
		list[i] = entry
	}
	e.latest = SortProximities(list)
	e.broadcastLocked(e.latest)
}

func (e *Engine) notificationFor(stop Stop, distance float64) Notification {
	meters := int(math.Round(distance))
	body := fmt.Sprintf("%d m away", meters)
	if stop.ClientAddress != "" {
		body = fmt.Sprintf("%s, %s", body, stop.ClientAddress)
	}
	if stop.ClientPhone != "" {
		body = fmt.Sprintf("%s. Tap to call %s", body, stop.ClientPhone)
	}
	return Notification{
		ID:             uuid.NewString(),
		OrderID:        stop.OrderID,
		Title:          fmt.Sprintf("Arriving at %s", stop.ClientName),
		Body:           body,
		Phone:          stop.ClientPhone,
		DistanceMeters: distance,
		CreatedAt:      e.now().UTC(),
	}
}

func (e *Engine) emit(ctx context.Context, n Notification) {
	e.metrics.IncNotification()
	nctx := e.logg.WithFields(ctx, map[string]any{
		"order_id":        n.OrderID,
		"distance_meters": math.Round(n.DistanceMeters),
	})
	if e.notifier == nil {
		e.logg.Info(nctx, "arrival alert raised without a sink")
		return
	}
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logg.Error(nctx, "arrival notification failed", err)
	}
}

func (e *Engine) broadcastLocked(list []StoreProximity) {
	for _, ch := range e.subs {
		snapshot := append([]StoreProximity(nil), list...)
		select {
		case ch <- snapshot:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}
