package domain

import "time"

// AuthEventType identifies an audit event
type AuthEventType string

const (
	EventUserRegistered    AuthEventType = "user.registered"
	EventUserLoggedIn      AuthEventType = "user.logged_in"
	EventUserLoggedOut     AuthEventType = "user.logged_out"
	EventUserLoggedOutAll  AuthEventType = "user.logged_out_all"
	EventUserDeactivated   AuthEventType = "user.deactivated"
	EventRoleAssigned      AuthEventType = "role.assigned"
	EventRoleUnassigned    AuthEventType = "role.unassigned"
	EventRoleDeleted       AuthEventType = "role.deleted"
	EventPermissionGranted AuthEventType = "permission.granted"
	EventPermissionRevoked AuthEventType = "permission.revoked"
	EventPermissionDeleted AuthEventType = "permission.deleted"
)

// AuthEvent is an audit record published after a state change
type AuthEvent struct {
	ID         string            `json:"id"`
	Type       AuthEventType     `json:"type"`
	UserID     string            `json:"user_id,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Key is the partition key: events for one user stay ordered
func (e *AuthEvent) Key() string {
	if e.UserID != "" {
		return e.UserID
	}
	return string(e.Type)
}
