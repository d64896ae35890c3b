package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "prod" {
		t.Fatalf("expected App.Env to be prod, got %q", cfg.App.Env)
	}
	if cfg.App.LogDebugSample != 1 {
		t.Fatalf("expected debug sampling off by default, got %d", cfg.App.LogDebugSample)
	}
	if cfg.Backend.BaseURL != "https://api.example.test/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 30*time.Second {
		t.Fatalf("expected default 30s backend timeout, got %v", cfg.Backend.Timeout)
	}
	if cfg.Tracking.PushInterval != 10*time.Second {
		t.Fatalf("expected 10s push interval, got %v", cfg.Tracking.PushInterval)
	}
	if cfg.Tracking.ProximityRadiusMeters != 600 || cfg.Tracking.ReleaseRadiusMeters() != 1000 {
		t.Fatalf("unexpected proximity tuning %+v", cfg.Tracking)
	}
	if cfg.Tracking.MinSpeedMPS != 1.5 || cfg.Tracking.MaxAccuracyMeters != 20 {
		t.Fatalf("unexpected speed filter tuning %+v", cfg.Tracking)
	}
	if cfg.HTTP.Addr != "127.0.0.1:8787" {
		t.Fatalf("unexpected http addr %q", cfg.HTTP.Addr)
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 || cfg.HTTP.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("unexpected http defaults %+v", cfg.HTTP)
	}
	if cfg.Login.Window != time.Minute || cfg.Login.EmailLimit != 5 {
		t.Fatalf("unexpected login rate limit defaults %+v", cfg.Login)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsRelativeBackendURL(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvBackendBaseURL, "/api")
	if _, err := Load(); err == nil {
		t.Fatal("expected relative backend url to be rejected")
	}
}

func TestTrackingValidate(t *testing.T) {
	base := TrackingConfig{
		PushInterval:          time.Second,
		ProximityRadiusMeters: 600,
		HysteresisMeters:      400,
		BroadcastBuffer:       1,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	bad := base
	bad.ProximityRadiusMeters = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected zero radius to fail")
	}
	bad = base
	bad.PushInterval = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected zero interval to fail")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "prod")
	t.Setenv(EnvBackendBaseURL, "https://api.example.test/v1/")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}
}
