package logout

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"auth_backend/internal/auth"
	"auth_backend/internal/lib/api/cookies"
	resp "auth_backend/internal/lib/api/response"
	sl "auth_backend/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

func New(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		// Logout is idempotent: a missing or mangled cookie still clears
		// the client state with 204.
		if cookie, err := r.Cookie(cookies.SessionID); err == nil {
			sessionID, err := uuid.Parse(cookie.Value)
			if err == nil {
				ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
				defer cancel()

				if err := authService.Logout(ctx, sessionID); err != nil {
					log.Error("failed to logout user", sl.Err(err))

					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, resp.Error("Internal error"))

					return
				}
			}
		}

		log.Info("user logged out successfully")

		cookies.ClearSession(w)

		w.WriteHeader(http.StatusNoContent)
	}
}
