package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/packfinderz-driver/api/responses"
	"github.com/angelmondragon/packfinderz-driver/api/validators"
	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// ListNotifications returns arrival alerts, newest first.
func ListNotifications(inbox NotificationInbox, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if inbox == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultNotificationLimit, 1, maxNotificationLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unread_only")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := inbox.List(unreadOnly, limit)
		responses.WriteSuccessMeta(w, items, map[string]int{"count": len(items)})
	}
}

func MarkNotificationRead(inbox NotificationInbox, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if inbox == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications unavailable"))
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "notificationId"))
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "notification id required"))
			return
		}
		if err := inbox.MarkRead(id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

func MarkAllNotificationsRead(inbox NotificationInbox, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if inbox == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications unavailable"))
			return
		}
		responses.WriteSuccess(w, map[string]int{"updated": inbox.MarkAllRead()})
	}
}
