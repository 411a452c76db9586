package domain

import "time"

// Well-known role names
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Well-known permission keys
const (
	PermUsersRead  = "users:read"
	PermUsersWrite = "users:write"
	PermRolesWrite = "roles:write"
)

// Role is a named bundle of permissions
type Role struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Permissions []*Permission `json:"permissions,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Permission is an atomic (resource, action) capability
type Permission struct {
	ID          string    `json:"id"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PermissionKey renders a (resource, action) pair as "resource:action"
func PermissionKey(resource, action string) string {
	return resource + ":" + action
}

// Key returns the "resource:action" form
func (p *Permission) Key() string {
	return PermissionKey(p.Resource, p.Action)
}

// Identity is a resolved, active user with roles and their permissions loaded
type Identity struct {
	User  *User
	Roles []*Role
}

// RoleNames returns the set of assigned role names
func (i *Identity) RoleNames() map[string]struct{} {
	names := make(map[string]struct{}, len(i.Roles))
	for _, r := range i.Roles {
		names[r.Name] = struct{}{}
	}
	return names
}

// PermissionKeys returns the union of permission keys over all roles
func (i *Identity) PermissionKeys() map[string]struct{} {
	keys := make(map[string]struct{})
	for _, r := range i.Roles {
		for _, p := range r.Permissions {
			keys[p.Key()] = struct{}{}
		}
	}
	return keys
}
