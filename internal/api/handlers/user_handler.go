package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/isdelr/taskflow-api/internal/api/respond"
	"github.com/isdelr/taskflow-api/internal/auth"
	"github.com/isdelr/taskflow-api/internal/models"
	"github.com/isdelr/taskflow-api/internal/services"
	"github.com/isdelr/taskflow-api/internal/validation"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

const userNotFound = "User not found"

// UserHandler handles HTTP requests for accounts and profiles.
type UserHandler struct {
	service services.UserServiceProvider
	tokens  *auth.TokenIssuer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, tokens *auth.TokenIssuer) *UserHandler {
	return &UserHandler{service: service, tokens: tokens}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	user, err := h.service.CreateUser(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		respond.Error(w, http.StatusInternalServerError, "Server error.")
		return
	}

	respond.JSON(w, http.StatusCreated, respond.M{
		"message": "Account created successfully.",
		"token":   token,
		"user":    user,
	})
}

// Login handles user authentication and JWT generation.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	creds := models.Credentials{Email: models.NormalizeEmail(payload.Email), Password: payload.Password}
	if err := validation.Struct(creds); err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), creds.Email, creds.Password)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("req_id", middleware.GetReqID(r.Context())).Msg("Failed authentication attempt")
		writeServiceError(w, r, err, userNotFound)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		respond.Error(w, http.StatusInternalServerError, "Server error.")
		return
	}

	respond.JSON(w, http.StatusOK, respond.M{
		"message": "Logged in successfully.",
		"token":   token,
		"user":    user,
	})
}

// GetMe returns the user resolved from the bearer token.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, respond.M{"user": user})
}

// GetProfile returns the caller's stored profile.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	current, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUserByID(r.Context(), current.ID)
	if err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}
	respond.JSON(w, http.StatusOK, respond.M{"user": user})
}

// UpdateProfile handles updating the caller's name and avatar.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	current, ok := currentUser(w, r)
	if !ok {
		return
	}

	var payload models.ProfileUpdate
	if !decodeBody(w, r, &payload) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), current.ID, payload)
	if err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}

	respond.JSON(w, http.StatusOK, respond.M{
		"message": "Profile updated successfully.",
		"user":    user,
	})
}

// ChangePassword handles changing the caller's password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	current, ok := currentUser(w, r)
	if !ok {
		return
	}

	var payload models.PasswordChange
	if !decodeBody(w, r, &payload) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), current.ID, payload.CurrentPassword, payload.NewPassword); err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}

	respond.Message(w, http.StatusOK, "Password changed successfully.")
}
