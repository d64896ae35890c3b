package controllers

import (
	"net/http"

	"github.com/angelmondragon/packfinderz-driver/api/responses"
	"github.com/angelmondragon/packfinderz-driver/api/validators"
	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
)

type trackingStartBody struct {
	PermissionGranted *bool `json:"permission_granted"`
}

type trackingStatus struct {
	Running bool `json:"running"`
}

// TrackingStart records the permission state the host reports, then starts
// tracking. Running is false when location is unavailable.
func TrackingStart(tracker TrackingControl, permissions PermissionSetter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tracker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker unavailable"))
			return
		}
		var body trackingStartBody
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.PermissionGranted != nil && permissions != nil {
			permissions.Set(*body.PermissionGranted)
		}
		responses.WriteSuccess(w, trackingStatus{Running: tracker.Start(r.Context())})
	}
}

func TrackingStop(tracker TrackingControl, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tracker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker unavailable"))
			return
		}
		tracker.Stop()
		responses.WriteSuccess(w, trackingStatus{Running: tracker.Running()})
	}
}

func TrackingStatus(tracker TrackingControl, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tracker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker unavailable"))
			return
		}
		responses.WriteSuccess(w, trackingStatus{Running: tracker.Running()})
	}
}
