package dto

import (
	"strings"
	"testing"
	"time"

	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
)

func TestRegisterRequest_ValidateEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{name: "valid", email: "alice@x.com", want: true},
		{name: "plus addressing", email: "alice+rbac@example.org", want: true},
		{name: "missing at", email: "alice.x.com", want: false},
		{name: "missing tld", email: "alice@x", want: false},
		{name: "spaces", email: "al ice@x.com", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &RegisterRequest{Email: tt.email}
			got, _ := req.ValidateEmail()
			if got != tt.want {
				t.Errorf("ValidateEmail() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegisterRequest_NormalizeAndValidate(t *testing.T) {
	middle := "  Q  "
	req := &RegisterRequest{
		Email:      "  Alice@X.com ",
		FirstName:  " Alice ",
		LastName:   "Smith",
		MiddleName: &middle,
	}
	req.Normalize()

	if req.Email != "alice@x.com" {
		t.Errorf("Email = %q", req.Email)
	}
	if req.FirstName != "Alice" || *req.MiddleName != "Q" {
		t.Errorf("names not trimmed: %q %q", req.FirstName, *req.MiddleName)
	}
	if ok, msg := req.Validate(); !ok {
		t.Errorf("Validate() = false, %s", msg)
	}

	blank := &RegisterRequest{Email: "bob@x.com", FirstName: "   ", LastName: "Lee"}
	blank.Normalize()
	if ok, _ := blank.Validate(); ok {
		t.Error("Validate() accepted a blank first name")
	}
}

func TestRegisterRequest_ValidatePasswordBytes(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"72 ascii bytes", strings.Repeat("a", 72), true},
		{"36 two-byte runes", strings.Repeat("п", 36), true},
		{"40 two-byte runes", strings.Repeat("п", 40), false},
		{"73 ascii bytes", strings.Repeat("a", 73), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := RegisterRequest{Email: "alice@x.com", Password: tt.password, FirstName: "Alice", LastName: "Smith"}
			if got, msg := req.Validate(); got != tt.want {
				t.Errorf("Validate() = %v (%s), want %v", got, msg, tt.want)
			}
		})
	}
}

func TestLoginRequest_Identifier(t *testing.T) {
	tests := []struct {
		name string
		req  LoginRequest
		want string
	}{
		{"email wins", LoginRequest{Email: "Alice@x.com", Username: "other@x.com"}, "alice@x.com"},
		{"username fallback", LoginRequest{Username: " bob@x.com "}, "bob@x.com"},
		{"neither", LoginRequest{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Identifier(); got != tt.want {
				t.Errorf("Identifier() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListQuery_Normalize(t *testing.T) {
	tests := []struct {
		name      string
		in        ListQuery
		wantSkip  int
		wantLimit int
	}{
		{"defaults", ListQuery{}, 0, 100},
		{"explicit", ListQuery{Skip: 20, Limit: 10}, 20, 10},
		{"over max", ListQuery{Limit: 500}, 0, 100},
		{"negative skip", ListQuery{Skip: -3, Limit: 5}, 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.in
			q.Normalize()
			if q.Skip != tt.wantSkip || q.Limit != tt.wantLimit {
				t.Errorf("Normalize() = (%d, %d), want (%d, %d)", q.Skip, q.Limit, tt.wantSkip, tt.wantLimit)
			}
		})
	}
}

func TestUpdateUserRequest_IsEmpty(t *testing.T) {
	if !(&UpdateUserRequest{}).IsEmpty() {
		t.Error("empty patch reported as non-empty")
	}
	name := "Al"
	if (&UpdateUserRequest{FirstName: &name}).IsEmpty() {
		t.Error("patch with first_name reported as empty")
	}
}

func TestNewRoleResponse(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	role := &domain.Role{
		ID:   "r-1",
		Name: "admin",
		Permissions: []*domain.Permission{
			{ID: "p-1", Resource: "roles", Action: "write", CreatedAt: now, UpdatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	resp := NewRoleResponse(role)
	if resp.Name != "admin" || resp.CreatedAt != "2025-03-01T12:00:00Z" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.Permissions) != 1 || resp.Permissions[0].Key != "roles:write" {
		t.Errorf("permissions = %+v", resp.Permissions)
	}

	bare := NewRoleResponse(&domain.Role{ID: "r-2", Name: "user"})
	if bare.Permissions != nil {
		t.Errorf("expected no permissions, got %+v", bare.Permissions)
	}
}
