package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/isdelr/taskflow-api/internal/api/respond"
	"github.com/isdelr/taskflow-api/internal/models"
	"github.com/isdelr/taskflow-api/internal/services"
	"github.com/rs/zerolog/log"
)

// ErrUserGone is returned when a valid token names a user that no longer exists.
var ErrUserGone = errors.New("user not found")

// UserLookup resolves a token subject to a live user.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

type contextKey string

const userContextKey = contextKey("user")

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the user attached by Guard.Middleware.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// Guard authenticates requests carrying a bearer token.
type Guard struct {
	tokens *TokenIssuer
	users  UserLookup
}

// NewGuard creates a Guard.
func NewGuard(tokens *TokenIssuer, users UserLookup) *Guard {
	return &Guard{tokens: tokens, users: users}
}

// Authenticate verifies a raw token and resolves it to a user. Lookup
// failures other than a missing user are returned unchanged.
func (g *Guard) Authenticate(ctx context.Context, token string) (models.User, error) {
	userID, err := g.tokens.Verify(token)
	if err != nil {
		return models.User{}, err
	}
	user, err := g.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return models.User{}, ErrUserGone
		}
		return models.User{}, err
	}
	return user, nil
}

// Middleware protects routes. On success the resolved user is available via
// UserFromContext.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r.Header.Get("Authorization"))
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}

		user, err := g.Authenticate(r.Context(), token)
		if err != nil {
			status, message := FailureResponse(err)
			if status == http.StatusInternalServerError {
				log.Error().Err(err).Msg("Failed to resolve user for token")
			}
			respond.Error(w, status, message)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// FailureResponse maps an Authenticate error to the status and message sent
// to the client.
func FailureResponse(err error) (int, string) {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired."
	case errors.Is(err, ErrUserGone):
		return http.StatusUnauthorized, "User not found. Token invalid."
	case errors.Is(err, ErrTokenInvalid):
		return http.StatusUnauthorized, "Invalid token."
	default:
		return http.StatusInternalServerError, "Server error."
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
