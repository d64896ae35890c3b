package controllers

import (
	"context"

	"github.com/angelmondragon/packfinderz-driver/internal/location"
	"github.com/angelmondragon/packfinderz-driver/internal/notify"
	"github.com/angelmondragon/packfinderz-driver/internal/proximity"
	"github.com/angelmondragon/packfinderz-driver/internal/session"
)

// ProximityView is the slice of the proximity engine the HTTP layer needs.
type ProximityView interface {
	Latest() []proximity.StoreProximity
	Skip(orderID string)
	Unskip(orderID string)
	IsSkipped(orderID string) bool
}

// TrackingControl starts and stops location tracking.
type TrackingControl interface {
	Start(ctx context.Context) bool
	Stop()
	Running() bool
	LastSample() (location.Sample, bool)
	SpeedKmh(sample location.Sample) float64
}

// PermissionSetter records the OS permission state reported by the host.
type PermissionSetter interface {
	Set(granted bool)
}

// SampleSink accepts GPS fixes forwarded by the host shell.
type SampleSink interface {
	Publish(sample location.Sample) bool
	PublishError(err error) bool
}

// NotificationInbox is the polled notification store.
type NotificationInbox interface {
	List(unreadOnly bool, limit int) []notify.Item
	MarkRead(id string) error
	MarkAllRead() int
}

// SessionService handles login state.
type SessionService interface {
	Login(ctx context.Context, email, password string) (*session.Session, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*session.Session, error)
}

var (
	_ ProximityView     = (*proximity.Engine)(nil)
	_ TrackingControl   = (*location.Tracker)(nil)
	_ PermissionSetter  = (*location.PermissionFlag)(nil)
	_ SampleSink        = (*location.ChannelSource)(nil)
	_ NotificationInbox = (*notify.Inbox)(nil)
	_ SessionService    = (*session.Service)(nil)
)
