package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/angelmondragon/packfinderz-driver/internal/location"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
)

type replayConfig struct {
	File     string        `envconfig:"PFREPLAY_FILE" required:"true"`
	BaseURL  string        `envconfig:"PFREPLAY_BASE_URL" default:"http://127.0.0.1:8787"`
	Interval time.Duration `envconfig:"PFREPLAY_INTERVAL" default:"1s"`
	Loop     bool          `envconfig:"PFREPLAY_LOOP" default:"false"`
	LogLevel string        `envconfig:"PFREPLAY_LOG_LEVEL" default:"info"`
}

type samplePayload struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

func main() {
	_ = godotenv.Load()

	var cfg replayConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logger.New(logger.Options{ServiceName: "replay"}).Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{ServiceName: "replay", Level: logger.ParseLevel(cfg.LogLevel)})

	f, err := os.Open(cfg.File)
	if err != nil {
		logg.Error(context.Background(), "failed to open track", err)
		os.Exit(1)
	}
	samples, skipped, err := location.DecodeTrack(f)
	f.Close()
	if err != nil {
		logg.Error(context.Background(), "failed to decode track", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"file":    cfg.File,
		"samples": len(samples),
		"skipped": skipped,
	})
	logg.Info(ctx, "replaying track")

	client := &http.Client{Timeout: 10 * time.Second}
	endpoint := cfg.BaseURL + "/api/v1/location/samples"
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		for i, sample := range samples {
			select {
			case <-ctx.Done():
				logg.Info(ctx, "replay interrupted")
				return
			case <-ticker.C:
			}
			if err := post(ctx, client, endpoint, sample); err != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{"index": i, "error": err.Error()}), "sample rejected")
				continue
			}
			logg.Debug(logg.WithField(ctx, "index", i), "sample sent")
		}
		if !cfg.Loop {
			break
		}
	}
	logg.Info(ctx, "replay finished")
}

func post(ctx context.Context, client *http.Client, endpoint string, sample location.Sample) error {
	body, err := json.Marshal(samplePayload{
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
		Speed:     sample.RawSpeed,
		Accuracy:  sample.Accuracy,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env struct {
		Data struct {
			Accepted bool `json:"accepted"`
		} `json:"data"`
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("driver api returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Data.Accepted {
		return errors.New("tracking is not running")
	}
	return nil
}
