package location

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/angelmondragon/packfinderz-driver/pkg/geo"
)

var ErrAlreadySubscribed = errors.New("location source already has a subscriber")

// StreamOptions are the platform subscription settings.
type StreamOptions struct {
	DistanceFilterMeters float64
	HighAccuracy         bool
}

// Update is either a sample or a stream error. Errors do not end the stream.
type Update struct {
	Sample Sample
	Err    error
}

// Source is the platform location stream. The channel closes when ctx is done.
type Source interface {
	Subscribe(ctx context.Context, opts StreamOptions) (<-chan Update, error)
}

// PermissionChecker reports whether location permission is granted and services are on.
type PermissionChecker interface {
	LocationAvailable(ctx context.Context) (bool, error)
}

// Pusher reports the driver position to the backend.
type Pusher interface {
	PushLocation(ctx context.Context, point geo.Point) error
}

// NotifiedResetter forgets every arrival alert already shown.
type NotifiedResetter interface {
	ClearNotified()
}

// PermissionFlag is a PermissionChecker whose state the host shell sets.
type PermissionFlag struct {
	granted atomic.Bool
}

func NewPermissionFlag(granted bool) *PermissionFlag {
	p := &PermissionFlag{}
	p.granted.Store(granted)
	return p
}

func (p *PermissionFlag) Set(granted bool) {
	p.granted.Store(granted)
}

func (p *PermissionFlag) LocationAvailable(context.Context) (bool, error) {
	return p.granted.Load(), nil
}
