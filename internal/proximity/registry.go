package proximity

import (
	"sync"

	"github.com/angelmondragon/packfinderz-driver/pkg/geo"
)

type notifiedEntry struct {
	at  geo.Point
	any bool
}

// SkipRegistry tracks stops the driver skipped and stops already alerted.
// Alerts are remembered per order and coordinates, so a stop that moves
// re-arms. A skipped stop counts as alerted wherever it is.
type SkipRegistry struct {
	mu       sync.Mutex
	skipped  map[string]struct{}
	notified map[string]notifiedEntry
}

func NewSkipRegistry() *SkipRegistry {
	return &SkipRegistry{
		skipped:  make(map[string]struct{}),
		notified: make(map[string]notifiedEntry),
	}
}

// Skip marks the order skipped and suppresses its alert. Idempotent.
func (r *SkipRegistry) Skip(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped[orderID] = struct{}{}
	r.notified[orderID] = notifiedEntry{any: true}
}

// Unskip returns the order to the normal ordering. It does not re-arm the
// alert; that happens once the driver leaves the release radius.
func (r *SkipRegistry) Unskip(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.skipped, orderID)
}

func (r *SkipRegistry) IsSkipped(orderID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isSkippedLocked(orderID)
}

// Skipped returns the skipped order ids in no particular order.
func (r *SkipRegistry) Skipped() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.skipped))
	for id := range r.skipped {
		out = append(out, id)
	}
	return out
}

// Prune drops skipped ids that are no longer pending.
func (r *SkipRegistry) Prune(current []string) {
	keep := make(map[string]struct{}, len(current))
	for _, id := range current {
		keep[id] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.skipped {
		if _, ok := keep[id]; !ok {
			delete(r.skipped, id)
		}
	}
}

// ClearNotified forgets every alert.
func (r *SkipRegistry) ClearNotified() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.notified)
}

// IsNotified reports whether an alert for the order at point is on record.
func (r *SkipRegistry) IsNotified(orderID string, point geo.Point) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isNotifiedLocked(orderID, point)
}

func (r *SkipRegistry) isSkippedLocked(orderID string) bool {
	_, ok := r.skipped[orderID]
	return ok
}

func (r *SkipRegistry) isNotifiedLocked(orderID string, point geo.Point) bool {
	entry, ok := r.notified[orderID]
	if !ok {
		return false
	}
	return entry.any || entry.at == point
}

func (r *SkipRegistry) markNotifiedLocked(orderID string, point geo.Point) {
	r.notified[orderID] = notifiedEntry{at: point}
}

func (r *SkipRegistry) releaseLocked(orderID string) {
	delete(r.notified, orderID)
}
