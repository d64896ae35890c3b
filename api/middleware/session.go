package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/packfinderz-driver/api/responses"
	"github.com/angelmondragon/packfinderz-driver/internal/session"
	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
)

// SessionReader loads the cached driver session.
type SessionReader interface {
	Current(ctx context.Context) (*session.Session, error)
}

// RequireSession rejects requests while the driver is logged out so the host
// shell can route to the login screen before any backend call is attempted.
func RequireSession(sessions SessionReader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions == nil {
				next.ServeHTTP(w, r)
				return
			}
			sess, err := sessions.Current(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if sess == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required"))
				return
			}

			ctx := WithUserID(r.Context(), sess.User.ID)
			if logg != nil {
				ctx = logg.WithField(ctx, "user_id", sess.User.ID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
