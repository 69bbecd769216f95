package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidResetToken covers every reset-token verification failure:
// malformed, wrong signature, expired. Callers must not learn which.
var ErrInvalidResetToken = errors.New("invalid or expired token")

const opaqueTokenBytes = 30

// Issuer generates opaque session tokens and signed password-reset tokens.
type Issuer struct {
	accessTTL   time.Duration
	refreshTTL  time.Duration
	resetTTL    time.Duration
	resetSecret []byte
}

type SessionTokens struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
}

type resetClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

func NewIssuer(accessTTL, refreshTTL, resetTTL time.Duration, resetSecret string) *Issuer {
	return &Issuer{
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		resetTTL:    resetTTL,
		resetSecret: []byte(resetSecret),
	}
}

// SessionTokens issues a fresh access/refresh pair. No side effects.
func (i *Issuer) SessionTokens() (SessionTokens, error) {
	const op = "tokens.SessionTokens"

	accessToken, err := opaqueToken()
	if err != nil {
		return SessionTokens{}, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := opaqueToken()
	if err != nil {
		return SessionTokens{}, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()

	return SessionTokens{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  now.Add(i.accessTTL),
		RefreshTokenExpiresAt: now.Add(i.refreshTTL),
	}, nil
}

// ResetToken issues a self-contained signed token proving email ownership.
func (i *Issuer) ResetToken(userID uuid.UUID, email string) (string, error) {
	const op = "tokens.ResetToken"

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, resetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(i.resetTTL)),
		},
		Email: email,
	})

	signed, err := token.SignedString(i.resetSecret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// ParseResetToken validates signature and expiry and returns the embedded
// user id and email.
func (i *Issuer) ParseResetToken(tokenStr string) (uuid.UUID, string, error) {
	claims := &resetClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidResetToken
		}
		return i.resetSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, "", ErrInvalidResetToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", ErrInvalidResetToken
	}

	return userID, claims.Email, nil
}

func opaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}
