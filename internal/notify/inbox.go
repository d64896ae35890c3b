package notify

import (
	"context"
	"sync"

	"github.com/angelmondragon/packfinderz-driver/internal/proximity"
	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
)

const defaultInboxCapacity = 100

// Item is an inbox entry.
type Item struct {
	proximity.Notification
	Read bool `json:"read"`
}

// Inbox keeps the most recent alerts for the host shell to poll. The oldest
// entry is evicted once capacity is reached.
type Inbox struct {
	mu       sync.Mutex
	capacity int
	items    []Item
}

func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = defaultInboxCapacity
	}
	return &Inbox{capacity: capacity}
}

func (i *Inbox) Notify(_ context.Context, n proximity.Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.items) == i.capacity {
		i.items = append(i.items[:0], i.items[1:]...)
	}
	i.items = append(i.items, Item{Notification: n})
	return nil
}

// List returns entries newest first. A non-positive limit returns all.
func (i *Inbox) List(unreadOnly bool, limit int) []Item {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]Item, 0, len(i.items))
	for idx := len(i.items) - 1; idx >= 0; idx-- {
		item := i.items[idx]
		if unreadOnly && item.Read {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (i *Inbox) MarkRead(id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for idx := range i.items {
		if i.items[idx].ID == id {
			i.items[idx].Read = true
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
}

// MarkAllRead returns how many entries changed.
func (i *Inbox) MarkAllRead() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	changed := 0
	for idx := range i.items {
		if !i.items[idx].Read {
			i.items[idx].Read = true
			changed++
		}
	}
	return changed
}
