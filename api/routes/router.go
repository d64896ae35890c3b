package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/packfinderz-driver/api/controllers"
	"github.com/angelmondragon/packfinderz-driver/api/middleware"
	"github.com/angelmondragon/packfinderz-driver/internal/deliveries"
	"github.com/angelmondragon/packfinderz-driver/pkg/config"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
	"github.com/angelmondragon/packfinderz-driver/pkg/redis"
)

// Dependencies are the services the local API exposes to the host shell.
type Dependencies struct {
	Redis         *redis.Client
	Gatherer      prometheus.Gatherer
	Sessions      controllers.SessionService
	Deliveries    deliveries.Service
	Proximity     controllers.ProximityView
	Tracker       controllers.TrackingControl
	Permissions   controllers.PermissionSetter
	Samples       controllers.SampleSink
	Notifications controllers.NotificationInbox
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)

	var cache redis.Pinger
	if deps.Redis != nil {
		cache = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, cache))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	loginPolicy := middleware.LoginRateLimitPolicy{
		Window:     cfg.Login.Window,
		IPLimit:    cfg.Login.IPLimit,
		EmailLimit: cfg.Login.EmailLimit,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			if deps.Redis != nil {
				r.With(middleware.LoginRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.SessionLogin(deps.Sessions, logg))
			} else {
				r.Post("/login", controllers.SessionLogin(deps.Sessions, logg))
			}
			r.Post("/logout", controllers.SessionLogout(deps.Sessions, deps.Tracker, logg))
			r.Get("/", controllers.SessionCurrent(deps.Sessions, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(deps.Sessions, logg))
			if deps.Redis != nil {
				r.Use(middleware.Idempotency(deps.Redis, cfg.HTTP.IdempotencyTTL, logg))
			}

			r.Route("/delivery", func(r chi.Router) {
				r.Get("/", controllers.DeliveryCurrent(deps.Deliveries, logg))
				r.Post("/refresh", controllers.DeliveryRefresh(deps.Deliveries, logg))
				r.Post("/start", controllers.DeliveryStart(deps.Deliveries, logg))
				r.Post("/complete", controllers.DeliveryComplete(deps.Deliveries, logg))
			})
			r.Get("/deliveries/history", controllers.DeliveryHistory(deps.Deliveries, logg))
			r.Get("/worklist", controllers.Worklist(deps.Deliveries, deps.Proximity, logg))

			r.Route("/orders/{orderId}", func(r chi.Router) {
				r.Post("/deliver", controllers.OrderDeliver(deps.Deliveries, logg))
				r.Post("/partial", controllers.OrderPartial(deps.Deliveries, logg))
				r.Post("/fail", controllers.OrderFail(deps.Deliveries, logg))
				r.Post("/postpone", controllers.OrderPostpone(deps.Deliveries, logg))
				r.Post("/skip", controllers.OrderSkip(deps.Proximity, logg))
				r.Post("/unskip", controllers.OrderUnskip(deps.Proximity, logg))
				r.Get("/money", controllers.OrderMoney(deps.Deliveries, logg))
			})

			r.Route("/location", func(r chi.Router) {
				r.Post("/samples", controllers.LocationSample(deps.Samples, logg))
				r.Post("/errors", controllers.LocationStreamError(deps.Samples, logg))
				r.Get("/last", controllers.LocationLast(deps.Tracker, logg))
			})

			r.Route("/tracking", func(r chi.Router) {
				r.Get("/", controllers.TrackingStatus(deps.Tracker, logg))
				r.Post("/start", controllers.TrackingStart(deps.Tracker, deps.Permissions, logg))
				r.Post("/stop", controllers.TrackingStop(deps.Tracker, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			})
		})
	})

	return r
}
