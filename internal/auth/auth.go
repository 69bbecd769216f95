package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sl "auth_backend/internal/lib/logger"
	"auth_backend/internal/lib/tokens"
	"auth_backend/internal/models"
	"auth_backend/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailInUse          = errors.New("email in use")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExpired      = errors.New("session token expired")
	ErrInvalidResetToken   = tokens.ErrInvalidResetToken
	ErrEmailDeliveryFailed = errors.New("failed to send the email")
)

type Auth struct {
	log      *slog.Logger
	users    UserStore
	sessions SessionStore
	notifier Notifier
	issuer   *tokens.Issuer
}

type UserStore interface {
	SaveUser(ctx context.Context, user models.User) error
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByIDAndEmail(ctx context.Context, id uuid.UUID, email string) (models.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passHash []byte) error
}

type SessionStore interface {
	ReplaceSessionForUser(ctx context.Context, session models.Session) error
	RotateSession(ctx context.Context, oldID uuid.UUID, refreshToken string, next models.Session) error
	SessionByIDAndRefreshToken(ctx context.Context, id uuid.UUID, refreshToken string) (models.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	DeleteSessionsForUser(ctx context.Context, userID uuid.UUID) error
}

// Notifier dispatches a rendered password-reset notification.
type Notifier interface {
	SendResetEmail(ctx context.Context, recipient, name, resetToken string) error
}

func New(
	log *slog.Logger,
	users UserStore,
	sessions SessionStore,
	notifier Notifier,
	issuer *tokens.Issuer,
) *Auth {
	return &Auth{
		log:      log,
		users:    users,
		sessions: sessions,
		notifier: notifier,
		issuer:   issuer,
	}
}

// Register creates a user with a bcrypt-hashed password. No session is created.
func (a *Auth) Register(ctx context.Context, name, email, password string) (models.User, error) {
	const op = "auth.Register"

	log := a.log.With(slog.String("op", op))

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		PassHash:  passHash,
		CreatedAt: time.Now(),
	}

	if err := a.users.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("email already registered")
			return models.User{}, ErrEmailInUse
		}

		log.Error("failed to save user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("uid", user.ID.String()))

	return user, nil
}

// Login verifies credentials and opens a session, superseding any prior one
// for the same user.
func (a *Auth) Login(ctx context.Context, email, password string) (models.Session, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return models.Session{}, ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		return models.Session{}, ErrInvalidCredentials
	}

	session, err := a.newSession(user.ID)
	if err != nil {
		log.Error("failed to issue session tokens", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sessions.ReplaceSessionForUser(ctx, session); err != nil {
		log.Error("failed to save session", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.String("uid", user.ID.String()))

	return session, nil
}

// Logout deletes the session if present. Deleting an unknown id is a no-op.
func (a *Auth) Logout(ctx context.Context, sessionID uuid.UUID) error {
	const op = "auth.Logout"

	log := a.log.With(slog.String("op", op))

	if err := a.sessions.DeleteSession(ctx, sessionID); err != nil {
		log.Error("failed to delete session", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("logout successful")

	return nil
}

// Refresh rotates a session: the refresh token is single-use, and reuse after
// rotation yields ErrSessionNotFound.
func (a *Auth) Refresh(ctx context.Context, sessionID uuid.UUID, refreshToken string) (models.Session, error) {
	const op = "auth.Refresh"

	log := a.log.With(slog.String("op", op))

	session, err := a.sessions.SessionByIDAndRefreshToken(ctx, sessionID, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			log.Warn("session not found")
			return models.Session{}, ErrSessionNotFound
		}

		log.Error("failed to get session", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	if time.Now().After(session.RefreshTokenExpiresAt) {
		log.Warn("refresh token expired")
		return models.Session{}, ErrSessionExpired
	}

	next, err := a.newSession(session.UserID)
	if err != nil {
		log.Error("failed to issue session tokens", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sessions.RotateSession(ctx, sessionID, refreshToken, next); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			log.Warn("session rotated concurrently")
			return models.Session{}, ErrSessionNotFound
		}

		log.Error("failed to rotate session", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("session refreshed", slog.String("uid", session.UserID.String()))

	return next, nil
}

// RequestPasswordReset emails a reset link. The issued token is not rolled
// back when delivery fails, so it stays valid until its TTL runs out.
func (a *Auth) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "auth.RequestPasswordReset"

	log := a.log.With(slog.String("op", op))

	user, err := a.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	resetToken, err := a.issuer.ResetToken(user.ID, user.Email)
	if err != nil {
		log.Error("failed to issue reset token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.notifier.SendResetEmail(ctx, user.Email, user.Name, resetToken); err != nil {
		log.Error("failed to dispatch reset email", sl.Err(err))
		return ErrEmailDeliveryFailed
	}

	log.Info("reset email dispatched", slog.String("uid", user.ID.String()))

	return nil
}

// ResetPassword verifies the reset token, stores the new hash and force-logs
// the user out everywhere.
func (a *Auth) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	const op = "auth.ResetPassword"

	log := a.log.With(slog.String("op", op))

	userID, email, err := a.issuer.ParseResetToken(resetToken)
	if err != nil {
		log.Warn("invalid reset token")
		return ErrInvalidResetToken
	}

	user, err := a.users.UserByIDAndEmail(ctx, userID, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user from reset token not found")
			return ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.users.UpdatePassword(ctx, user.ID, passHash); err != nil {
		log.Error("failed to update password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sessions.DeleteSessionsForUser(ctx, user.ID); err != nil {
		log.Error("failed to delete user sessions", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password reset", slog.String("uid", user.ID.String()))

	return nil
}

func (a *Auth) newSession(userID uuid.UUID) (models.Session, error) {
	st, err := a.issuer.SessionTokens()
	if err != nil {
		return models.Session{}, err
	}

	return models.Session{
		ID:                    uuid.New(),
		UserID:                userID,
		AccessToken:           st.AccessToken,
		RefreshToken:          st.RefreshToken,
		AccessTokenExpiresAt:  st.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: st.RefreshTokenExpiresAt,
	}, nil
}
