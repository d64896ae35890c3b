package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/angelmondragon/packfinderz-driver/api/responses"
	"github.com/angelmondragon/packfinderz-driver/api/validators"
	"github.com/angelmondragon/packfinderz-driver/internal/location"
	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
)

type sampleBody struct {
	Latitude  *float64   `json:"latitude" validate:"required,latitude"`
	Longitude *float64   `json:"longitude" validate:"required,longitude"`
	Speed     float64    `json:"speed"`
	Accuracy  float64    `json:"accuracy" validate:"gte=0"`
	Timestamp *time.Time `json:"timestamp"`
}

type streamErrorBody struct {
	Message string `json:"message" validate:"required"`
}

type sampleResult struct {
	Accepted bool `json:"accepted"`
}

// LocationSample forwards one platform fix to the tracker's stream. A fix
// arriving while tracking is stopped is reported as not accepted.
func LocationSample(sink SampleSink, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sink == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "location stream unavailable"))
			return
		}
		var body sampleBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sample := location.Sample{
			Latitude:  *body.Latitude,
			Longitude: *body.Longitude,
			RawSpeed:  body.Speed,
			Accuracy:  body.Accuracy,
			Timestamp: time.Now().UTC(),
		}
		if body.Timestamp != nil {
			sample.Timestamp = body.Timestamp.UTC()
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, sampleResult{Accepted: sink.Publish(sample)})
	}
}

// LocationStreamError relays a platform stream failure so the tracker logs it.
func LocationStreamError(sink SampleSink, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sink == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "location stream unavailable"))
			return
		}
		var body streamErrorBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		accepted := sink.PublishError(errors.New(validators.SanitizeString(body.Message, maxReasonLen)))
		responses.WriteSuccessStatus(w, http.StatusAccepted, sampleResult{Accepted: accepted})
	}
}

type lastSampleResult struct {
	location.Sample
	SpeedKmh float64 `json:"speed_kmh"`
}

// LocationLast returns the most recent accepted fix with the filtered speed.
func LocationLast(tracker TrackingControl, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tracker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker unavailable"))
			return
		}
		sample, ok := tracker.LastSample()
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no location sample yet"))
			return
		}
		responses.WriteSuccess(w, lastSampleResult{Sample: sample, SpeedKmh: tracker.SpeedKmh(sample)})
	}
}
