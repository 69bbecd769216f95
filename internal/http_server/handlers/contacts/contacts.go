package contacts

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	resp "auth_backend/internal/lib/api/response"
	sl "auth_backend/internal/lib/logger"
	"auth_backend/internal/middleware/authenticate"
	"auth_backend/internal/models"
	"auth_backend/internal/storage"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type Contact struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	IsFavourite bool   `json:"is_favourite"`
	ContactType string `json:"contact_type"`
}

type ListResponse struct {
	resp.Response
	Contacts []Contact `json:"contacts"`
}

type GetResponse struct {
	resp.Response
	Contact Contact `json:"contact"`
}

type ContactProvider interface {
	Contacts(ctx context.Context, userID uuid.UUID, filter models.ContactFilter) ([]models.Contact, error)
	ContactByID(ctx context.Context, userID, contactID uuid.UUID) (models.Contact, error)
}

func NewList(
	log *slog.Logger,
	provider ContactProvider,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.contacts.NewList"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, ok := authenticate.UserID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		filter := parseFilterParams(r.URL.Query())

		contacts, err := provider.Contacts(r.Context(), userID, filter)
		if err != nil {
			log.Error("failed to list contacts", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		out := make([]Contact, 0, len(contacts))
		for _, c := range contacts {
			out = append(out, toContact(c))
		}

		render.JSON(w, r, ListResponse{
			Response: resp.OK(),
			Contacts: out,
		})
	}
}

func NewByID(
	log *slog.Logger,
	provider ContactProvider,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.contacts.NewByID"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, ok := authenticate.UserID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		contactID, err := uuid.Parse(chi.URLParam(r, "contactID"))
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Contact not found"))

			return
		}

		contact, err := provider.ContactByID(r.Context(), userID, contactID)
		if err != nil {
			if errors.Is(err, storage.ErrContactNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Contact not found"))

				return
			}

			log.Error("failed to get contact", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, GetResponse{
			Response: resp.OK(),
			Contact:  toContact(contact),
		})
	}
}

// parseFilterParams ignores anything that is not a recognized contact type or
// a literal true/false, rather than rejecting the request.
func parseFilterParams(query url.Values) models.ContactFilter {
	var filter models.ContactFilter

	switch ct := models.ContactType(query.Get("type")); ct {
	case models.ContactTypeWork, models.ContactTypeHome, models.ContactTypePersonal:
		filter.ContactType = &ct
	}

	switch query.Get("isFavourite") {
	case "true":
		v := true
		filter.IsFavourite = &v
	case "false":
		v := false
		filter.IsFavourite = &v
	}

	return filter
}

func toContact(c models.Contact) Contact {
	return Contact{
		ID:          c.ID.String(),
		Name:        c.Name,
		PhoneNumber: c.PhoneNumber,
		Email:       c.Email,
		IsFavourite: c.IsFavourite,
		ContactType: string(c.ContactType),
	}
}
