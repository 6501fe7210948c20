package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/taskflow-api/internal/models"
	"github.com/isdelr/taskflow-api/internal/validation"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt work factor for stored passwords.
const DefaultHashCost = 12

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByEmailWithSecret(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, name, email, password string) (models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (models.User, error)
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (models.User, error)
	ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error
	DeleteUser(ctx context.Context, id string) error
	VerifySecret(user models.User, candidate string) bool
}

// UserService provides business logic for user management. Passwords are
// hashed only in CreateUser and ChangePassword.
type UserService struct {
	db       *sql.DB
	events   EventServiceProvider
	hashCost int
	now      func() time.Time
}

// UserOption configures a UserService.
type UserOption func(*UserService)

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) UserOption {
	return func(s *UserService) {
		s.hashCost = cost
	}
}

// NewUserService creates a new UserService. events may be nil.
func NewUserService(db *sql.DB, events EventServiceProvider, opts ...UserOption) *UserService {
	s := &UserService{db: db, events: events, hashCost: DefaultHashCost, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const userColumns = "id, name, email, avatar, created_at, updated_at"

// GetUserByID retrieves a single user by their ID, without the password hash.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Avatar, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return user, nil
}

// GetUserByEmailWithSecret retrieves a single user by their email, including
// the password hash. Only authentication flows should call it.
func (s *UserService) GetUserByEmailWithSecret(ctx context.Context, email string) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+", password_hash FROM users WHERE email = ?", models.NormalizeEmail(email))
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Avatar, &user.CreatedAt, &user.UpdatedAt, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// CreateUser validates the registration, hashes the password and stores the
// user. A taken email yields ErrDuplicateEmail.
func (s *UserService) CreateUser(ctx context.Context, name, email, password string) (models.User, error) {
	reg := models.Registration{
		Name:     strings.TrimSpace(name),
		Email:    models.NormalizeEmail(email),
		Password: password,
	}
	if err := validation.Struct(reg); err != nil {
		return models.User{}, err
	}

	hash, err := s.hash(reg.Password, "password")
	if err != nil {
		return models.User{}, err
	}

	now := s.now().UTC()
	user := models.User{
		ID:        uuid.New().String(),
		Name:      reg.Name,
		Email:     reg.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, avatar, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Email, hash, user.Avatar, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	s.record(ctx, user.ID, models.EventUserRegistered, "info", "Account created.")
	return user, nil
}

// AuthenticateUser verifies a user's credentials. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *UserService) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.GetUserByEmailWithSecret(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if !s.VerifySecret(user, password) {
		return models.User{}, ErrInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

// VerifySecret compares candidate against the user's stored hash.
func (s *UserService) VerifySecret(user models.User, candidate string) bool {
	if user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(candidate)) == nil
}

// UpdateProfile changes name and/or avatar. The password hash is never touched.
func (s *UserService) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (models.User, error) {
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		update.Name = &name
	}
	if err := validation.Struct(update); err != nil {
		return models.User{}, err
	}

	sets := []string{"updated_at = ?"}
	args := []any{s.now().UTC()}
	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Avatar != nil {
		sets = append(sets, "avatar = ?")
		args = append(args, *update.Avatar)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return models.User{}, fmt.Errorf("update user %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.User{}, ErrNotFound
	}

	s.record(ctx, id, models.EventUserProfileUpdated, "info", "Profile updated.")
	return s.GetUserByID(ctx, id)
}

// ChangePassword verifies the current password, then hashes and sets a new one.
func (s *UserService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	change := models.PasswordChange{CurrentPassword: currentPassword, NewPassword: newPassword}
	if err := validation.Struct(change); err != nil {
		return err
	}

	var storedHash string
	err := s.db.QueryRowContext(ctx, "SELECT password_hash FROM users WHERE id = ?", id).Scan(&storedHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load password hash: %w", err)
	}

	if !s.VerifySecret(models.User{PasswordHash: storedHash}, currentPassword) {
		return ErrIncorrectPassword
	}

	hash, err := s.hash(newPassword, "newPassword")
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, "UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?", hash, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.record(ctx, id, models.EventUserPasswordChanged, "warn", "Password changed.")
	return nil
}

// DeleteUser removes a user. Their tasks and events go with them through the
// ON DELETE CASCADE foreign keys.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserService) hash(password, field string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", validation.New(field, validation.Label(field)+" must be at most 72 bytes")
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *UserService) record(ctx context.Context, userID, eventType, level, message string) {
	if s.events == nil {
		return
	}
	if err := s.events.CreateEvent(ctx, userID, eventType, level, message, nil); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("event", eventType).Msg("Failed to record event")
	}
}
