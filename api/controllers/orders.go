package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-driver/api/responses"
	"github.com/angelmondragon/packfinderz-driver/api/validators"
	"github.com/angelmondragon/packfinderz-driver/internal/deliveries"
	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
)

const (
	maxNotesLen  = 500
	maxReasonLen = 200
)

type deliverBody struct {
	AmountCollected *decimal.Decimal `json:"amount_collected"`
}

type partialItemBody struct {
	ProductID         string `json:"product_id" validate:"required"`
	QuantityDelivered int    `json:"quantity_delivered" validate:"gte=0"`
	QuantityReturned  int    `json:"quantity_returned" validate:"gte=0"`
	ReturnReason      string `json:"return_reason"`
}

type partialBody struct {
	Items           []partialItemBody `json:"items" validate:"required,min=1,dive"`
	AmountCollected *decimal.Decimal  `json:"amount_collected"`
}

type failBody struct {
	Reason string `json:"reason" validate:"required"`
}

type postponeBody struct {
	Notes string `json:"notes"`
}

func OrderDeliver(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deliveryID, orderID, ok := orderTarget(w, r, svc, logg)
		if !ok {
			return
		}
		var body deliverBody
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delivery, err := svc.Deliver(r.Context(), deliveries.DeliverInput{
			DeliveryID:      deliveryID,
			OrderID:         orderID,
			AmountCollected: body.AmountCollected,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

func OrderPartial(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deliveryID, orderID, ok := orderTarget(w, r, svc, logg)
		if !ok {
			return
		}
		var body partialBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]deliveries.PartialItem, 0, len(body.Items))
		for _, item := range body.Items {
			items = append(items, deliveries.PartialItem{
				ProductID:         strings.TrimSpace(item.ProductID),
				QuantityDelivered: item.QuantityDelivered,
				QuantityReturned:  item.QuantityReturned,
				ReturnReason:      validators.SanitizeString(item.ReturnReason, maxReasonLen),
			})
		}
		delivery, err := svc.PartialDeliver(r.Context(), deliveries.PartialDeliverInput{
			DeliveryID:      deliveryID,
			OrderID:         orderID,
			Items:           items,
			AmountCollected: body.AmountCollected,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

func OrderFail(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deliveryID, orderID, ok := orderTarget(w, r, svc, logg)
		if !ok {
			return
		}
		var body failBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delivery, err := svc.Fail(r.Context(), deliveries.FailInput{
			DeliveryID: deliveryID,
			OrderID:    orderID,
			Reason:     validators.SanitizeString(body.Reason, maxReasonLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

func OrderPostpone(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deliveryID, orderID, ok := orderTarget(w, r, svc, logg)
		if !ok {
			return
		}
		var body postponeBody
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delivery, err := svc.Postpone(r.Context(), deliveries.PostponeInput{
			DeliveryID: deliveryID,
			OrderID:    orderID,
			Notes:      validators.SanitizeString(body.Notes, maxNotesLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

// OrderSkip pushes the stop to the bottom of the list and silences its alert.
func OrderSkip(prox ProximityView, logg *logger.Logger) http.HandlerFunc {
	return skipAction(prox, logg, true)
}

func OrderUnskip(prox ProximityView, logg *logger.Logger) http.HandlerFunc {
	return skipAction(prox, logg, false)
}

func skipAction(prox ProximityView, logg *logger.Logger, skip bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if prox == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "proximity engine unavailable"))
			return
		}
		orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
		if orderID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id required"))
			return
		}
		if skip {
			prox.Skip(orderID)
		} else {
			prox.Unskip(orderID)
		}
		responses.WriteSuccess(w, prox.Latest())
	}
}

// OrderMoney previews the reconciliation for the values the driver typed.
func OrderMoney(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
		oldDebt, err := validators.ParseQueryDecimal(r, "old_debt")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		collected, err := validators.ParseQueryDecimal(r, "amount_collected")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Money(orderID, oldDebt, collected)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func orderTarget(w http.ResponseWriter, r *http.Request, svc deliveries.Service, logg *logger.Logger) (string, string, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
		return "", "", false
	}
	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id required"))
		return "", "", false
	}
	deliveryID, err := activeDeliveryID(r.Context(), svc)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return "", "", false
	}
	return deliveryID, orderID, true
}
