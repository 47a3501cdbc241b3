package researchers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdantlab/floralog/internal/httputil"
	"github.com/verdantlab/floralog/internal/models"
	"github.com/verdantlab/floralog/pkg/session"
)

// IdentityRevoker deletes the external auth identity linked to a researcher.
// The default deployment passes nil: identity removal is the managed auth
// provider's concern and happens out of band.
type IdentityRevoker interface {
	Revoke(ctx context.Context, authID string) error
}

// Shape guarantees the invariants of the client-facing researcher record:
// contact is always a mapping, never null.
func Shape(record models.Researcher) models.Researcher {
	if record.Contact == nil {
		record.Contact = models.JSONMap{}
	}
	return record
}

// ShapeAll applies Shape to every record.
func ShapeAll(records []models.Researcher) []models.Researcher {
	shaped := make([]models.Researcher, len(records))
	for i, record := range records {
		shaped[i] = Shape(record)
	}
	return shaped
}

// writeRequest is the body accepted by create and update.
type writeRequest struct {
	FullName    string         `json:"full_name"`
	Affiliation *string        `json:"affiliation"`
	Contact     models.JSONMap `json:"contact"`
	AuthID      *string        `json:"auth_id"`
}

// listHandler returns a handler that lists researchers, optionally filtered
// by the q free-text parameter.
func listHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := store.List(r.URL.Query().Get("q"))
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, ShapeAll(records))
	}
}

// createHandler returns a handler that registers a researcher.
func createHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body writeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if body.FullName == "" {
			httputil.WriteError(w, http.StatusBadRequest, "full_name is required")
			return
		}

		contact := body.Contact
		if contact == nil {
			contact = models.JSONMap{}
		}

		record := &models.Researcher{
			ResearcherID: uuid.New().String(),
			FullName:     body.FullName,
			Affiliation:  body.Affiliation,
			Contact:      contact,
			AuthID:       body.AuthID,
		}
		if err := store.Create(record); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, Shape(*record))
	}
}

// getHandler returns a handler that reads one researcher by id.
func getHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := store.Get(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if record == nil {
			httputil.WriteError(w, http.StatusNotFound, "researcher not found")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, Shape(*record))
	}
}

// updateHandler returns a handler that replaces a researcher's profile.
func updateHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body writeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if body.FullName == "" {
			httputil.WriteError(w, http.StatusBadRequest, "full_name is required")
			return
		}

		contact := body.Contact
		if contact == nil {
			contact = models.JSONMap{}
		}

		record := &models.Researcher{
			ResearcherID: chi.URLParam(r, "id"),
			FullName:     body.FullName,
			Affiliation:  body.Affiliation,
			Contact:      contact,
		}
		if err := store.Update(record); err != nil {
			if err == gorm.ErrRecordNotFound {
				httputil.WriteError(w, http.StatusNotFound, "researcher not found")
				return
			}
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		updated, err := store.Get(record.ResearcherID)
		if err != nil || updated == nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to reload researcher")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, Shape(*updated))
	}
}

// deleteHandler returns a handler that removes a researcher. When the caller
// deletes their own profile, the linked external identity is revoked as well.
func deleteHandler(store *Store, revoker IdentityRevoker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		record, err := store.Get(id)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if record == nil {
			httputil.WriteError(w, http.StatusNotFound, "researcher not found")
			return
		}

		if _, err := store.Delete(id); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if revoker != nil && record.AuthID != nil &&
			*record.AuthID == session.AuthIDFromContext(r.Context()) {
			if err := revoker.Revoke(r.Context(), *record.AuthID); err != nil {
				httputil.WriteError(w, http.StatusBadGateway, fmt.Sprintf("researcher deleted but identity revocation failed: %v", err))
				return
			}
		}

		httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Researcher deleted successfully"})
	}
}

// meHandler returns a handler that reads the researcher linked to the
// caller's identity.
func meHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authID := session.AuthIDFromContext(r.Context())
		if authID == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		record, err := store.GetByAuthID(authID)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if record == nil {
			httputil.WriteError(w, http.StatusNotFound, "researcher not found")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, Shape(*record))
	}
}
