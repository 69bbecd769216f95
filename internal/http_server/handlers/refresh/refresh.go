package refresh

import (
	"context"
	"errors"
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

type Response struct {
	resp.Response
	AccessToken string `json:"access_token"`
}

func New(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		sessionCookie, err := r.Cookie(cookies.SessionID)
		if err != nil {
			log.Warn("missing session cookie")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Session not found"))

			return
		}

		refreshCookie, err := r.Cookie(cookies.RefreshToken)
		if err != nil {
			log.Warn("missing refresh token cookie")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Session not found"))

			return
		}

		sessionID, err := uuid.Parse(sessionCookie.Value)
		if err != nil {
			log.Warn("malformed session id", sl.Err(err))

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Session not found"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		session, err := authService.Refresh(ctx, sessionID, refreshCookie.Value)
		if err != nil {
			if errors.Is(err, auth.ErrSessionNotFound) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Session not found"))

				return
			}
			if errors.Is(err, auth.ErrSessionExpired) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Session token expired"))

				return
			}

			log.Error("failed to refresh session", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Session refreshed successfully")

		cookies.SetSession(w, session)

		render.JSON(w, r, Response{
			Response:    resp.OK(),
			AccessToken: session.AccessToken,
		})
	}
}
