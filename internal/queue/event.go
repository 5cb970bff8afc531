// Package queue defines the user lifecycle events exchanged over RabbitMQ,
// the publisher used by the services and the audit consumer.
package queue

import "time"

// Event types.
const (
	EventRegistered      = "user.registered"
	EventCreated         = "user.created"
	EventProfileUpdated  = "user.profile_updated"
	EventPasswordChanged = "user.password_changed"
	EventDeleted         = "user.deleted"
	EventRolesGranted    = "user.roles_granted"
	EventRolesRevoked    = "user.roles_revoked"
	EventLoggedOut       = "user.logged_out"
)

// UserEvent is published after a user record or its credentials change.
// It carries enough for an audit trail without querying the store.
// ActorID is empty when the user acted on their own account.
type UserEvent struct {
	Type       string   `json:"type"`
	UserID     string   `json:"user_id"`
	Email      string   `json:"email"`
	Roles      []string `json:"roles,omitempty"`
	ActorID    string   `json:"actor_id,omitempty"`
	OccurredAt string   `json:"occurred_at"`
}

// NewUserEvent stamps an event with the current UTC time.
func NewUserEvent(typ, userID, email string) UserEvent {
	return UserEvent{Type: typ, UserID: userID, Email: email, OccurredAt: time.Now().UTC().Format(time.RFC3339)}
}
