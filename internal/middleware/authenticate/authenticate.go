package authenticate

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	resp "auth_backend/internal/lib/api/response"
	"auth_backend/internal/models"

	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type contextKey struct{}

var userIDKey contextKey

type SessionProvider interface {
	SessionByAccessToken(ctx context.Context, accessToken string) (models.Session, error)
}

// New checks the bearer access token against the session store and puts the
// owning user id into the request context.
func New(log *slog.Logger, sessions SessionProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Missing access token"))

				return
			}

			session, err := sessions.SessionByAccessToken(r.Context(), token)
			if err != nil {
				log.Warn("access token did not resolve to a session")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid access token"))

				return
			}

			if time.Now().After(session.AccessTokenExpiresAt) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Access token expired"))

				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id placed by the middleware.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}

	token := strings.TrimPrefix(header, prefix)
	if token == "" {
		return "", false
	}

	return token, true
}
