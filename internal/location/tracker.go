package location

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/packfinderz-driver/pkg/config"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
	"github.com/angelmondragon/packfinderz-driver/pkg/metrics"
)

const (
	defaultPushInterval = 10 * time.Second
	defaultBuffer       = 8
)

// TrackerParams configure the tracker.
type TrackerParams struct {
	Logger       *logger.Logger
	Source       Source
	Permissions  PermissionChecker
	Pusher       Pusher
	Resetter     NotifiedResetter
	Cache        SampleCache
	Metrics      *metrics.TrackingMetrics
	PushInterval time.Duration
	// DistanceFilterMeters is forwarded to the platform subscription.
	DistanceFilterMeters float64
	Buffer               int
	// SpeedFilter defaults to DefaultSpeedFilter when zero.
	SpeedFilter SpeedFilter
	// Timeout bounds permission checks, pushes and cache writes.
	Timeout time.Duration
}

// Tracker ingests the platform location stream, caches the latest sample,
// fans it out to subscribers and pushes it to the backend on a fixed cadence.
type Tracker struct {
	logg        *logger.Logger
	source      Source
	permissions PermissionChecker
	pusher      Pusher
	resetter    NotifiedResetter
	cache       SampleCache
	metrics     *metrics.TrackingMetrics
	interval    time.Duration
	streamOpts  StreamOptions
	buffer      int
	speed       SpeedFilter
	timeout     time.Duration
	newTicker   func(time.Duration) Ticker

	mu      sync.Mutex
	last    Sample
	hasLast bool
	// fresh is set once a fix has come through the stream. A sample restored
	// from the cache is reported by LastSample but never pushed.
	fresh bool
	subs    map[int]chan Sample
	nextID  int
	closed  bool

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTracker builds a tracker. Pusher, Resetter and Cache are optional.
func NewTracker(params TrackerParams) (*Tracker, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Source == nil {
		return nil, fmt.Errorf("location source required")
	}
	if params.Permissions == nil {
		return nil, fmt.Errorf("permission checker required")
	}
	interval := params.PushInterval
	if interval <= 0 {
		interval = defaultPushInterval
	}
	buffer := params.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	speed := params.SpeedFilter
	if speed == (SpeedFilter{}) {
		speed = DefaultSpeedFilter()
	}
	return &Tracker{
		logg:        params.Logger,
		source:      params.Source,
		permissions: params.Permissions,
		pusher:      params.Pusher,
		resetter:    params.Resetter,
		cache:       params.Cache,
		metrics:     params.Metrics,
		interval:    interval,
		streamOpts: StreamOptions{
			DistanceFilterMeters: params.DistanceFilterMeters,
			HighAccuracy:         true,
		},
		buffer:    buffer,
		speed:     speed,
		timeout:   timeout,
		newTicker: newRealTicker,
		subs:      make(map[int]chan Sample),
	}, nil
}

// Start subscribes to the platform stream and starts the push loop. It
// returns false without error when location is unavailable. Calling Start
// on a running tracker is a no-op.
func (t *Tracker) Start(ctx context.Context) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.cancel != nil {
		return true
	}

	if !t.locationAvailable(ctx) {
		t.logg.Warn(ctx, "location unavailable; tracking not started")
		return false
	}
	t.restoreLast(ctx)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	updates, err := t.source.Subscribe(runCtx, t.streamOpts)
	if err != nil {
		cancel()
		t.logg.Error(ctx, "location subscription failed; tracking not started", err)
		return false
	}
	t.cancel = cancel
	t.wg.Add(2)
	go t.readStream(runCtx, updates)
	go t.pushLoop(runCtx)
	t.logg.Info(t.logg.WithField(ctx, "push_interval", t.interval.String()), "location tracking started")
	return true
}

// Stop cancels the stream reader and push loop and forgets shown alerts.
// It is safe to call repeatedly or before Start.
func (t *Tracker) Stop() {
	t.runMu.Lock()
	cancel := t.cancel
	t.cancel = nil
	if cancel != nil {
		cancel()
		t.wg.Wait()
	}
	t.runMu.Unlock()

	if t.resetter != nil {
		t.resetter.ClearNotified()
	}
	if cancel != nil {
		t.logg.Info(context.Background(), "location tracking stopped")
	}
}

// Running reports whether Start succeeded and Stop has not been called since.
func (t *Tracker) Running() bool {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	return t.cancel != nil
}

// Close stops tracking and closes every subscriber channel.
func (t *Tracker) Close() {
	t.Stop()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}

// LastSample returns the most recent accepted sample.
func (t *Tracker) LastSample() (Sample, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.hasLast
}

// SpeedKmh is the displayable speed of s under the tracker's filter.
func (t *Tracker) SpeedKmh(s Sample) float64 {
	return t.speed.Kmh(s)
}

// Subscribe registers a consumer of accepted samples. A slow consumer loses
// its oldest buffered sample rather than blocking ingestion.
func (t *Tracker) Subscribe() (<-chan Sample, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan Sample, t.buffer)
	if t.closed {
		close(ch)
		return ch, func() {}
	}
	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if sub, ok := t.subs[id]; ok {
				delete(t.subs, id)
				close(sub)
			}
		})
	}
}

func (t *Tracker) locationAvailable(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	ok, err := t.permissions.LocationAvailable(checkCtx)
	if err != nil {
		t.logg.Warn(t.logg.WithField(ctx, "error", err.Error()), "location permission check failed")
		return false
	}
	return ok
}

func (t *Tracker) restoreLast(ctx context.Context) {
	if t.cache == nil {
		return
	}
	t.mu.Lock()
	has := t.hasLast
	t.mu.Unlock()
	if has {
		return
	}
	loadCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	sample, ok, err := t.cache.Load(loadCtx)
	if err != nil {
		t.logg.Warn(t.logg.WithField(ctx, "error", err.Error()), "cached location unavailable")
		return
	}
	if !ok {
		return
	}
	t.mu.Lock()
	if !t.hasLast {
		t.last, t.hasLast = sample, true
	}
	t.mu.Unlock()
}

func (t *Tracker) readStream(ctx context.Context, updates <-chan Update) {
	defer t.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				t.logg.Info(ctx, "location stream closed")
				return
			}
			if update.Err != nil {
				t.logg.Warn(t.logg.WithField(ctx, "error", update.Err.Error()), "location stream error")
				continue
			}
			t.ingest(ctx, update.Sample)
		}
	}
}

func (t *Tracker) ingest(ctx context.Context, sample Sample) {
	if !sample.Point().Valid() {
		t.metrics.IncSample(false)
		t.logg.Debug(t.logg.WithLocation(ctx, sample.Latitude, sample.Longitude), "location sample rejected")
		return
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}
	t.metrics.IncSample(true)
	t.logg.Debug(t.logg.WithLocation(ctx, sample.Latitude, sample.Longitude), "location sample accepted")

	t.mu.Lock()
	defer t.mu.Unlock()
	t.last, t.hasLast, t.fresh = sample, true, true
	for _, ch := range t.subs {
		offer(ch, sample)
	}
}

func offer(ch chan Sample, sample Sample) {
	select {
	case ch <- sample:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- sample:
	default:
	}
}

func (t *Tracker) pushLoop(ctx context.Context) {
	defer t.wg.Done()
	ticker := t.newTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			t.pushLatest(ctx)
		}
	}
}

func (t *Tracker) pushLatest(ctx context.Context) {
	t.mu.Lock()
	sample, ok := t.last, t.hasLast && t.fresh
	t.mu.Unlock()
	if !ok {
		return
	}
	if t.pusher != nil {
		pushCtx, cancel := context.WithTimeout(ctx, t.timeout)
		err := t.pusher.PushLocation(pushCtx, sample.Point())
		cancel()
		t.metrics.IncPush(err == nil)
		if err != nil {
			t.logg.Warn(t.logg.WithField(ctx, "error", err.Error()), "location push failed; retrying next tick")
		}
	}
	if t.cache != nil {
		saveCtx, cancel := context.WithTimeout(ctx, t.timeout)
		err := t.cache.Save(saveCtx, sample)
		cancel()
		if err != nil {
			t.logg.Warn(t.logg.WithField(ctx, "error", err.Error()), "location cache write failed")
		}
	}
}
