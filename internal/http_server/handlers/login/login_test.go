package login_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auth_backend/internal/auth"
	"auth_backend/internal/http_server/handlers/login"
	"auth_backend/internal/lib/tokens"
	"auth_backend/internal/models"
	"auth_backend/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// stubStore serves one known user and records the replaced session.
type stubStore struct {
	user     models.User
	replaced *models.Session
}

func (s *stubStore) SaveUser(context.Context, models.User) error { return nil }

func (s *stubStore) UserByEmail(_ context.Context, email string) (models.User, error) {
	if email != s.user.Email {
		return models.User{}, storage.ErrUserNotFound
	}
	return s.user, nil
}

func (s *stubStore) UserByIDAndEmail(context.Context, uuid.UUID, string) (models.User, error) {
	return models.User{}, storage.ErrUserNotFound
}

func (s *stubStore) UpdatePassword(context.Context, uuid.UUID, []byte) error { return nil }

func (s *stubStore) ReplaceSessionForUser(_ context.Context, session models.Session) error {
	s.replaced = &session
	return nil
}

func (s *stubStore) RotateSession(context.Context, uuid.UUID, string, models.Session) error {
	return storage.ErrSessionNotFound
}

func (s *stubStore) SessionByIDAndRefreshToken(context.Context, uuid.UUID, string) (models.Session, error) {
	return models.Session{}, storage.ErrSessionNotFound
}

func (s *stubStore) DeleteSession(context.Context, uuid.UUID) error { return nil }

func (s *stubStore) DeleteSessionsForUser(context.Context, uuid.UUID) error { return nil }

type noopNotifier struct{}

func (noopNotifier) SendResetEmail(context.Context, string, string, string) error { return nil }

func newHandler(t *testing.T) (http.HandlerFunc, *stubStore) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.DefaultCost)
	require.NoError(t, err)

	store := &stubStore{user: models.User{
		ID:       uuid.New(),
		Name:     "Alice",
		Email:    "a@x.com",
		PassHash: hash,
	}}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := tokens.NewIssuer(15*time.Minute, 24*time.Hour, 15*time.Minute, "secret")
	authService := auth.New(log, store, store, noopNotifier{}, issuer)

	return login.New(log, validator.New(), authService), store
}

func doLogin(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestLogin_Success(t *testing.T) {
	handler, store := newHandler(t)

	rec := doLogin(handler, `{"email":"a@x.com","password":"password1"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp login.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.AccessToken)

	require.NotNil(t, store.replaced)
	assert.Equal(t, resp.AccessToken, store.replaced.AccessToken)

	cookies := rec.Result().Cookies()
	names := map[string]*http.Cookie{}
	for _, c := range cookies {
		names[c.Name] = c
	}

	require.Contains(t, names, "sessionId")
	require.Contains(t, names, "refreshToken")
	assert.True(t, names["sessionId"].HttpOnly)
	assert.True(t, names["refreshToken"].HttpOnly)
	assert.Equal(t, store.replaced.RefreshToken, names["refreshToken"].Value)
}

func TestLogin_UserNotFound(t *testing.T) {
	handler, _ := newHandler(t)

	rec := doLogin(handler, `{"email":"ghost@x.com","password":"password1"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	handler, store := newHandler(t)

	rec := doLogin(handler, `{"email":"a@x.com","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, store.replaced)
}

func TestLogin_InvalidBody(t *testing.T) {
	handler, _ := newHandler(t)

	rec := doLogin(handler, `{"email":"not-an-email","password":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
