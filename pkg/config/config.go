package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Tracking TrackingConfig
	Redis    RedisConfig
	Session  SessionConfig
	HTTP     HTTPConfig
	Login    LoginRateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Backend.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Tracking.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env            string `envconfig:"PFDRIVER_APP_ENV" required:"true"`
	LogLevel       string `envconfig:"PFDRIVER_LOG_LEVEL" default:"info"`
	LogWarnStack   bool   `envconfig:"PFDRIVER_LOG_WARN_STACK" default:"false"`
	LogDebugSample uint32 `envconfig:"PFDRIVER_LOG_DEBUG_SAMPLE" default:"1"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BackendConfig points the driver at the delivery backend.
type BackendConfig struct {
	BaseURL string        `envconfig:"PFDRIVER_BACKEND_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"PFDRIVER_BACKEND_TIMEOUT" default:"30s"`
}

func (b *BackendConfig) validate() error {
	trimmed := strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", EnvBackendBaseURL, b.BaseURL)
	}
	b.BaseURL = trimmed
	if b.Timeout <= 0 {
		b.Timeout = DefaultRequestTimeout
	}
	return nil
}

// TrackingConfig holds the location and proximity tuning knobs.
type TrackingConfig struct {
	PushInterval          time.Duration `envconfig:"PFDRIVER_TRACKING_PUSH_INTERVAL" default:"10s"`
	DistanceFilterMeters  float64       `envconfig:"PFDRIVER_TRACKING_DISTANCE_FILTER_METERS" default:"10"`
	ProximityRadiusMeters float64       `envconfig:"PFDRIVER_TRACKING_PROXIMITY_RADIUS_METERS" default:"600"`
	HysteresisMeters      float64       `envconfig:"PFDRIVER_TRACKING_HYSTERESIS_METERS" default:"400"`
	MinSpeedMPS           float64       `envconfig:"PFDRIVER_TRACKING_MIN_SPEED_MPS" default:"1.5"`
	MaxAccuracyMeters     float64       `envconfig:"PFDRIVER_TRACKING_MAX_ACCURACY_METERS" default:"20"`
	BroadcastBuffer       int           `envconfig:"PFDRIVER_TRACKING_BROADCAST_BUFFER" default:"8"`
	ReplayFile            string        `envconfig:"PFDRIVER_TRACKING_REPLAY_FILE"`
	ReplayInterval        time.Duration `envconfig:"PFDRIVER_TRACKING_REPLAY_INTERVAL" default:"1s"`
}

// Validate rejects tuning values the engine cannot work with.
func (t TrackingConfig) Validate() error {
	switch {
	case t.PushInterval <= 0:
		return fmt.Errorf("%s must be positive", EnvTrackingPushInterval)
	case t.ProximityRadiusMeters <= 0:
		return fmt.Errorf("%s must be positive", EnvTrackingProximityRadius)
	case t.HysteresisMeters < 0:
		return fmt.Errorf("%s must not be negative", EnvTrackingHysteresis)
	case t.DistanceFilterMeters < 0:
		return fmt.Errorf("%s must not be negative", EnvTrackingDistanceFilter)
	case t.BroadcastBuffer <= 0:
		return fmt.Errorf("%s must be positive", EnvTrackingBroadcastBuffer)
	}
	return nil
}

// ReleaseRadiusMeters is the distance past which an alerted stop re-arms.
func (t TrackingConfig) ReleaseRadiusMeters() float64 {
	return t.ProximityRadiusMeters + t.HysteresisMeters
}

type RedisConfig struct {
	URL          string        `envconfig:"PFDRIVER_REDIS_URL"`
	Address      string        `envconfig:"PFDRIVER_REDIS_ADDR" default:"127.0.0.1:6379"`
	Password     string        `envconfig:"PFDRIVER_REDIS_PASSWORD"`
	DB           int           `envconfig:"PFDRIVER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PFDRIVER_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"PFDRIVER_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"PFDRIVER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PFDRIVER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PFDRIVER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig controls how long the cached backend session is kept.
type SessionConfig struct {
	TTL time.Duration `envconfig:"PFDRIVER_SESSION_TTL" default:"720h"`
}

// HTTPConfig is the local API the host shell talks to.
type HTTPConfig struct {
	Addr            string        `envconfig:"PFDRIVER_HTTP_ADDR" default:"127.0.0.1:8787"`
	ReadTimeout     time.Duration `envconfig:"PFDRIVER_HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"PFDRIVER_HTTP_WRITE_TIMEOUT" default:"40s"`
	ShutdownTimeout time.Duration `envconfig:"PFDRIVER_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	AllowedOrigins  []string      `envconfig:"PFDRIVER_HTTP_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	IdempotencyTTL  time.Duration `envconfig:"PFDRIVER_HTTP_IDEMPOTENCY_TTL" default:"24h"`
}

// LoginRateLimitConfig throttles local login attempts before they reach the backend.
type LoginRateLimitConfig struct {
	Window     time.Duration `envconfig:"PFDRIVER_LOGIN_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit    int           `envconfig:"PFDRIVER_LOGIN_RATE_LIMIT_IP" default:"20"`
	EmailLimit int           `envconfig:"PFDRIVER_LOGIN_RATE_LIMIT_EMAIL" default:"5"`
}
