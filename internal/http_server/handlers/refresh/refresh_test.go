package refresh_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auth_backend/internal/auth"
	"auth_backend/internal/http_server/handlers/refresh"
	"auth_backend/internal/lib/tokens"
	"auth_backend/internal/models"
	"auth_backend/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sessionStub holds a single session keyed by id + refresh token.
type sessionStub struct {
	session *models.Session
	rotated *models.Session
}

func (s *sessionStub) ReplaceSessionForUser(context.Context, models.Session) error { return nil }

func (s *sessionStub) RotateSession(_ context.Context, oldID uuid.UUID, refreshToken string, next models.Session) error {
	if s.session == nil || s.session.ID != oldID || s.session.RefreshToken != refreshToken {
		return storage.ErrSessionNotFound
	}
	s.session = nil
	s.rotated = &next
	return nil
}

func (s *sessionStub) SessionByIDAndRefreshToken(_ context.Context, id uuid.UUID, refreshToken string) (models.Session, error) {
	if s.session == nil || s.session.ID != id || s.session.RefreshToken != refreshToken {
		return models.Session{}, storage.ErrSessionNotFound
	}
	return *s.session, nil
}

func (s *sessionStub) DeleteSession(context.Context, uuid.UUID) error { return nil }

func (s *sessionStub) DeleteSessionsForUser(context.Context, uuid.UUID) error { return nil }

type userStub struct{}

func (userStub) SaveUser(context.Context, models.User) error { return nil }

func (userStub) UserByEmail(context.Context, string) (models.User, error) {
	return models.User{}, storage.ErrUserNotFound
}

func (userStub) UserByIDAndEmail(context.Context, uuid.UUID, string) (models.User, error) {
	return models.User{}, storage.ErrUserNotFound
}

func (userStub) UpdatePassword(context.Context, uuid.UUID, []byte) error { return nil }

type noopNotifier struct{}

func (noopNotifier) SendResetEmail(context.Context, string, string, string) error { return nil }

func newHandler(t *testing.T, session *models.Session) (http.HandlerFunc, *sessionStub) {
	t.Helper()

	stub := &sessionStub{session: session}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := tokens.NewIssuer(15*time.Minute, 24*time.Hour, 15*time.Minute, "secret")
	authService := auth.New(log, userStub{}, stub, noopNotifier{}, issuer)

	return refresh.New(log, authService), stub
}

func liveSession() *models.Session {
	now := time.Now()
	return &models.Session{
		ID:                    uuid.New(),
		UserID:                uuid.New(),
		AccessToken:           "old-access",
		RefreshToken:          "old-refresh",
		AccessTokenExpiresAt:  now.Add(15 * time.Minute),
		RefreshTokenExpiresAt: now.Add(24 * time.Hour),
	}
}

func doRefresh(handler http.HandlerFunc, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRefresh_Success(t *testing.T) {
	session := liveSession()
	handler, stub := newHandler(t, session)

	rec := doRefresh(handler,
		&http.Cookie{Name: "sessionId", Value: session.ID.String()},
		&http.Cookie{Name: "refreshToken", Value: session.RefreshToken},
	)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.rotated)
	assert.NotEqual(t, "old-refresh", stub.rotated.RefreshToken)

	var rotatedCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refreshToken" {
			rotatedCookie = c
		}
	}
	require.NotNil(t, rotatedCookie)
	assert.Equal(t, stub.rotated.RefreshToken, rotatedCookie.Value)
}

func TestRefresh_MissingCookies(t *testing.T) {
	handler, _ := newHandler(t, liveSession())

	rec := doRefresh(handler)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_StaleToken(t *testing.T) {
	session := liveSession()
	handler, _ := newHandler(t, session)

	rec := doRefresh(handler,
		&http.Cookie{Name: "sessionId", Value: session.ID.String()},
		&http.Cookie{Name: "refreshToken", Value: "already-rotated"},
	)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	session := liveSession()
	session.RefreshTokenExpiresAt = time.Now().Add(-time.Hour)
	handler, stub := newHandler(t, session)

	rec := doRefresh(handler,
		&http.Cookie{Name: "sessionId", Value: session.ID.String()},
		&http.Cookie{Name: "refreshToken", Value: session.RefreshToken},
	)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, stub.rotated)
}
