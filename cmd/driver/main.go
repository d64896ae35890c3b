package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/packfinderz-driver/api/routes"
	"github.com/angelmondragon/packfinderz-driver/internal/backend"
	"github.com/angelmondragon/packfinderz-driver/internal/deliveries"
	"github.com/angelmondragon/packfinderz-driver/internal/location"
	"github.com/angelmondragon/packfinderz-driver/internal/notify"
	"github.com/angelmondragon/packfinderz-driver/internal/proximity"
	"github.com/angelmondragon/packfinderz-driver/internal/session"
	"github.com/angelmondragon/packfinderz-driver/pkg/config"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
	"github.com/angelmondragon/packfinderz-driver/pkg/metrics"
	"github.com/angelmondragon/packfinderz-driver/pkg/redis"
)

const (
	serviceName   = "driver"
	inboxCapacity = 50
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName:  serviceName,
		Level:        logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:    cfg.App.LogWarnStack,
		DebugSampleN: cfg.App.LogDebugSample,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": cfg.HTTP.Addr,
	})

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	trackingMetrics := metrics.NewTrackingMetrics(registry)

	sessionStore, err := session.NewStore(redisClient, cfg.Session.TTL)
	requireResource(ctx, logg, "session store", err)

	backendClient, err := backend.NewClient(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithLogger(logg),
		backend.WithMetrics(trackingMetrics),
		backend.WithTokenSource(sessionStore),
	)
	requireResource(ctx, logg, "backend client", err)

	sessions, err := session.NewService(backendClient, sessionStore, logg)
	requireResource(ctx, logg, "session service", err)

	inbox := notify.NewInbox(inboxCapacity)
	engine, err := proximity.NewEngine(proximity.EngineParams{
		Logger:        logg,
		Notifier:      notify.Fanout{notify.NewLogSink(logg), inbox},
		Metrics:       trackingMetrics,
		RadiusMeters:  cfg.Tracking.ProximityRadiusMeters,
		ReleaseMeters: cfg.Tracking.ReleaseRadiusMeters(),
		Buffer:        cfg.Tracking.BroadcastBuffer,
	})
	requireResource(ctx, logg, "proximity engine", err)
	defer engine.Close()

	hostSource := location.NewChannelSource(cfg.Tracking.BroadcastBuffer)
	source, err := trackingSource(cfg.Tracking, hostSource)
	requireResource(ctx, logg, "location source", err)

	permissions := location.NewPermissionFlag(true)
	speedFilter := location.SpeedFilter{
		MinSpeedMPS:       cfg.Tracking.MinSpeedMPS,
		MaxAccuracyMeters: cfg.Tracking.MaxAccuracyMeters,
	}
	tracker, err := location.NewTracker(location.TrackerParams{
		Logger:               logg,
		Source:               source,
		Permissions:          permissions,
		Pusher:               backendClient,
		Resetter:             engine,
		Cache:                location.NewRedisSampleCache(redisClient, cfg.Session.TTL),
		Metrics:              trackingMetrics,
		PushInterval:         cfg.Tracking.PushInterval,
		DistanceFilterMeters: cfg.Tracking.DistanceFilterMeters,
		Buffer:               cfg.Tracking.BroadcastBuffer,
		SpeedFilter:          speedFilter,
		Timeout:              cfg.Backend.Timeout,
	})
	requireResource(ctx, logg, "location tracker", err)
	defer tracker.Close()

	deliveryService, err := deliveries.NewService(deliveries.ServiceParams{
		Logger:  logg,
		Backend: backendClient,
		Stops:   engine,
	})
	requireResource(ctx, logg, "delivery service", err)

	server := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Redis:         redisClient,
			Gatherer:      registry,
			Sessions:      sessions,
			Deliveries:    deliveryService,
			Proximity:     engine,
			Tracker:       tracker,
			Permissions:   permissions,
			Samples:       hostSource,
			Notifications: inbox,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	samples, unsubscribe := tracker.Subscribe()
	defer unsubscribe()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return engine.Run(groupCtx, samples)
	})
	group.Go(func() error {
		logg.Info(groupCtx, "starting driver api")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("driver api: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		tracker.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(groupCtx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "driver stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "driver shut down gracefully")
}

// trackingSource replays a recorded track when one is configured, otherwise
// fixes come from the host shell.
func trackingSource(cfg config.TrackingConfig, host *location.ChannelSource) (location.Source, error) {
	if cfg.ReplayFile == "" {
		return host, nil
	}
	f, err := os.Open(cfg.ReplayFile)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	defer f.Close()
	samples, _, err := location.DecodeTrack(f)
	if err != nil {
		return nil, err
	}
	return location.NewReplaySource(samples, cfg.ReplayInterval), nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
