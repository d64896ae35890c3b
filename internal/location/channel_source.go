package location

import (
	"context"
	"sync"

	"github.com/angelmondragon/packfinderz-driver/pkg/geo"
)

const defaultSourceBuffer = 32

// ChannelSource is a Source fed by the host shell, one sample at a time.
// It applies the subscriber's distance filter the way the platform would.
type ChannelSource struct {
	mu      sync.Mutex
	buffer  int
	updates chan Update
	done    <-chan struct{}
	filter  float64
	last    *geo.Point
}

func NewChannelSource(buffer int) *ChannelSource {
	if buffer <= 0 {
		buffer = defaultSourceBuffer
	}
	return &ChannelSource{buffer: buffer}
}

func (c *ChannelSource) Subscribe(ctx context.Context, opts StreamOptions) (<-chan Update, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeLocked() {
		return nil, ErrAlreadySubscribed
	}
	c.detachLocked()

	ch := make(chan Update, c.buffer)
	c.updates = ch
	c.done = ctx.Done()
	c.filter = opts.DistanceFilterMeters
	c.last = nil

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.updates == ch {
			c.detachLocked()
		}
	}()
	return ch, nil
}

// Publish hands a sample to the active subscriber. It returns false when
// nobody is listening or the buffer is full. Samples inside the distance
// filter are consumed without being forwarded.
func (c *ChannelSource) Publish(sample Sample) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() {
		return false
	}
	point := sample.Point()
	if c.filter > 0 && c.last != nil && geo.Distance(*c.last, point) < c.filter {
		return true
	}
	select {
	case c.updates <- Update{Sample: sample}:
		c.last = &point
		return true
	default:
		return false
	}
}

// PublishError forwards a platform stream error.
func (c *ChannelSource) PublishError(err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() {
		return false
	}
	select {
	case c.updates <- Update{Err: err}:
		return true
	default:
		return false
	}
}

// Active reports whether a tracker is currently subscribed.
func (c *ChannelSource) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked()
}

func (c *ChannelSource) activeLocked() bool {
	if c.updates == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *ChannelSource) detachLocked() {
	if c.updates == nil {
		return
	}
	close(c.updates)
	c.updates = nil
	c.done = nil
}
