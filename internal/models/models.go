package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	PassHash  []byte
	CreatedAt time.Time
}

type Session struct {
	ID                    uuid.UUID
	UserID                uuid.UUID
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
}

type ContactType string

const (
	ContactTypeWork     ContactType = "work"
	ContactTypeHome     ContactType = "home"
	ContactTypePersonal ContactType = "personal"
)

type Contact struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        string
	PhoneNumber string
	Email       string
	IsFavourite bool
	ContactType ContactType
}

// ContactFilter narrows a contact listing. Nil fields mean "no constraint".
type ContactFilter struct {
	ContactType *ContactType
	IsFavourite *bool
}

type EmailMessage struct {
	Email   string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}
