package location

import (
	"math"
	"time"

	"github.com/angelmondragon/packfinderz-driver/pkg/geo"
)

const (
	metersPerSecondToKmh = 3.6

	DefaultMinSpeedMPS       = 1.5
	DefaultMaxAccuracyMeters = 20
)

// Sample is one platform GPS fix. Values are never mutated after ingestion.
type Sample struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	RawSpeed  float64   `json:"speed"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// Point returns the sample coordinates.
func (s Sample) Point() geo.Point {
	return geo.Point{Lat: s.Latitude, Lng: s.Longitude}
}

// FilteredSpeedKmh applies the default speed filter.
func (s Sample) FilteredSpeedKmh() float64 {
	return DefaultSpeedFilter().Kmh(s)
}

// SpeedFilter suppresses GPS speed jitter while parked or when the fix is poor.
type SpeedFilter struct {
	MinSpeedMPS       float64
	MaxAccuracyMeters float64
}

func DefaultSpeedFilter() SpeedFilter {
	return SpeedFilter{MinSpeedMPS: DefaultMinSpeedMPS, MaxAccuracyMeters: DefaultMaxAccuracyMeters}
}

// Kmh returns the displayable speed, or 0 when the reading should not be trusted.
func (f SpeedFilter) Kmh(s Sample) float64 {
	if math.IsNaN(s.RawSpeed) || s.RawSpeed < 0 || s.RawSpeed < f.MinSpeedMPS {
		return 0
	}
	if s.Accuracy > f.MaxAccuracyMeters {
		return 0
	}
	return s.RawSpeed * metersPerSecondToKmh
}
