package dto

import (
	"time"

	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 100
)

// CreateUserRequest is the admin user-creation payload
type CreateUserRequest = RegisterRequest

// UpdateUserRequest is a partial update; nil fields are left untouched
type UpdateUserRequest struct {
	FirstName  *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName   *string `json:"last_name" binding:"omitempty,min=1,max=100"`
	MiddleName *string `json:"middle_name" binding:"omitempty,max=100"`
}

// IsEmpty reports whether no field is present
func (r *UpdateUserRequest) IsEmpty() bool {
	return r.FirstName == nil && r.LastName == nil && r.MiddleName == nil
}

// ListQuery is the skip/limit pagination query
type ListQuery struct {
	Skip  int `form:"skip" binding:"omitempty,min=0"`
	Limit int `form:"limit" binding:"omitempty,min=0,max=100"`
}

// Normalize applies defaults
func (q *ListQuery) Normalize() {
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.Limit <= 0 || q.Limit > MaxListLimit {
		q.Limit = DefaultListLimit
	}
}

// UserResponse represents user data in response
type UserResponse struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	MiddleName *string `json:"middle_name,omitempty"`
	IsActive   bool    `json:"is_active"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// NewUserResponse maps a domain user, never including the password digest
func NewUserResponse(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		MiddleName: u.MiddleName,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  u.UpdatedAt.Format(time.RFC3339),
	}
}

// NewUserResponses maps a slice of users
func NewUserResponses(users []*domain.User) []*UserResponse {
	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out
}

// MeResponse is the current user with effective roles and permissions
type MeResponse struct {
	UserResponse
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}
