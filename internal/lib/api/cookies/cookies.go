package cookies

import (
	"net/http"
	"time"

	"auth_backend/internal/models"
)

const (
	SessionID    = "sessionId"
	RefreshToken = "refreshToken"
)

// SetSession writes the httpOnly session cookies. Both cookies live as long
// as the refresh token does.
func SetSession(w http.ResponseWriter, session models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionID,
		Value:    session.ID.String(),
		Path:     "/",
		Expires:  session.RefreshTokenExpiresAt,
		HttpOnly: true,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshToken,
		Value:    session.RefreshToken,
		Path:     "/",
		Expires:  session.RefreshTokenExpiresAt,
		HttpOnly: true,
	})
}

// ClearSession expires both session cookies.
func ClearSession(w http.ResponseWriter) {
	for _, name := range []string{SessionID, RefreshToken} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
}
