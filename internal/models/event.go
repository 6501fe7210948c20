package models

import "time"

// Event represents a loggable action in a user's activity feed.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Type      string    `json:"type"`  // e.g., "task.created", "user.password_changed"
	Level     string    `json:"level"` // "info" or "warn"
	Message   string    `json:"message"`
	TaskID    *string   `json:"taskId,omitempty"` // Nullable for account-level events
	CreatedAt time.Time `json:"createdAt"`
}

// Event types recorded by the services.
const (
	EventUserRegistered      = "user.registered"
	EventUserProfileUpdated  = "user.profile_updated"
	EventUserPasswordChanged = "user.password_changed"
	EventTaskCreated         = "task.created"
	EventTaskUpdated         = "task.updated"
	EventTaskDeleted         = "task.deleted"
	EventTasksOverdue        = "tasks.overdue"
)
