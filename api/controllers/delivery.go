package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/packfinderz-driver/api/responses"
	"github.com/angelmondragon/packfinderz-driver/api/validators"
	"github.com/angelmondragon/packfinderz-driver/internal/deliveries"
	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
)

type deliveryActionBody struct {
	DeliveryID string `json:"delivery_id"`
}

// DeliveryCurrent returns the cached snapshot without a network call.
func DeliveryCurrent(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		responses.WriteSuccess(w, svc.Current())
	}
}

func DeliveryRefresh(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		delivery, err := svc.Refresh(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

func DeliveryStart(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return deliveryAction(svc, logg, deliveries.Service.Start)
}

func DeliveryComplete(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return deliveryAction(svc, logg, deliveries.Service.Complete)
}

type deliveryTransition func(deliveries.Service, context.Context, string) (*deliveries.Delivery, error)

func deliveryAction(svc deliveries.Service, logg *logger.Logger, action deliveryTransition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		var body deliveryActionBody
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deliveryID := strings.TrimSpace(body.DeliveryID)
		if deliveryID == "" {
			id, err := activeDeliveryID(r.Context(), svc)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			deliveryID = id
		}
		delivery, err := action(svc, r.Context(), deliveryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

func DeliveryHistory(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		list, err := svc.History(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMeta(w, list, map[string]int{"count": len(list)})
	}
}

// Worklist joins the cached run with the latest proximity list.
func Worklist(svc deliveries.Service, prox ProximityView, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || prox == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "worklist unavailable"))
			return
		}
		current := svc.Current()
		if current == nil {
			refreshed, err := svc.Refresh(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			current = refreshed
		}
		responses.WriteSuccess(w, deliveries.BuildWorklist(current, prox.Latest(), prox.IsSkipped))
	}
}

// activeDeliveryID prefers the cached snapshot and falls back to a refresh.
func activeDeliveryID(ctx context.Context, svc deliveries.Service) (string, error) {
	if current := svc.Current(); current != nil {
		return current.ID, nil
	}
	refreshed, err := svc.Refresh(ctx)
	if err != nil {
		return "", err
	}
	if refreshed == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "no active delivery")
	}
	return refreshed.ID, nil
}
