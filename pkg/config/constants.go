package config

import "time"

const (
	EnvPrefix = "PFDRIVER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DefaultRequestTimeout = 30 * time.Second

	EnvAppEnv                  = "PFDRIVER_APP_ENV"
	EnvLogLevel                = "PFDRIVER_LOG_LEVEL"
	EnvBackendBaseURL          = "PFDRIVER_BACKEND_BASE_URL"
	EnvBackendTimeout          = "PFDRIVER_BACKEND_TIMEOUT"
	EnvTrackingPushInterval    = "PFDRIVER_TRACKING_PUSH_INTERVAL"
	EnvTrackingDistanceFilter  = "PFDRIVER_TRACKING_DISTANCE_FILTER_METERS"
	EnvTrackingProximityRadius = "PFDRIVER_TRACKING_PROXIMITY_RADIUS_METERS"
	EnvTrackingHysteresis      = "PFDRIVER_TRACKING_HYSTERESIS_METERS"
	EnvTrackingBroadcastBuffer = "PFDRIVER_TRACKING_BROADCAST_BUFFER"
	EnvRedisURL                = "PFDRIVER_REDIS_URL"
	EnvHTTPAddr                = "PFDRIVER_HTTP_ADDR"
)
