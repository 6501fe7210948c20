// Package handlers holds the HTTP handlers for the REST API.
package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/isdelr/taskflow-api/internal/api/respond"
	"github.com/isdelr/taskflow-api/internal/auth"
	"github.com/isdelr/taskflow-api/internal/models"
	"github.com/isdelr/taskflow-api/internal/services"
	"github.com/isdelr/taskflow-api/internal/validation"
	"github.com/rs/zerolog/hlog"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 10 << 10

// decodeBody reads a JSON or form-encoded request body into dst. On failure
// it has already written the response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	var err error
	if isForm(r) {
		err = decodeForm(r, dst)
	} else {
		err = json.NewDecoder(r.Body).Decode(dst)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, "Request body too large.")
			return false
		}
		respond.Error(w, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}

func isForm(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}

// decodeForm maps form fields onto dst through its json tags, so absent
// fields stay absent. Only the first value of a repeated key is used.
func decodeForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	fields := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		fields[key] = values[0]
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// currentUser returns the user attached by the auth guard.
func currentUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		hlog.FromRequest(r).Error().Msg("Could not retrieve user from context")
		respond.Error(w, http.StatusInternalServerError, "Server error.")
	}
	return user, ok
}

// writeServiceError maps service errors to responses. notFound is the
// message used for services.ErrNotFound.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		respond.Fail(w, http.StatusBadRequest, respond.M{"errors": verr.Fields})
	case errors.Is(err, services.ErrNotFound):
		respond.Error(w, http.StatusNotFound, notFound)
	case errors.Is(err, services.ErrDuplicateEmail):
		respond.Error(w, http.StatusBadRequest, "Email already registered.")
	case errors.Is(err, services.ErrIncorrectPassword):
		respond.Error(w, http.StatusBadRequest, "Current password is incorrect.")
	case errors.Is(err, services.ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, "Invalid email or password.")
	default:
		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		respond.Error(w, http.StatusInternalServerError, "Server error.")
	}
}
