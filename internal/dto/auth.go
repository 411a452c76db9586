package dto

import (
	"regexp"
	"strings"
)

// MaxPasswordBytes is the bcrypt input limit; it counts bytes, not characters
const MaxPasswordBytes = 72

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email      string  `json:"email" binding:"required,email"`
	Password   string  `json:"password" binding:"required,min=6,max=72"`
	FirstName  string  `json:"first_name" binding:"required,min=1,max=100"`
	LastName   string  `json:"last_name" binding:"required,min=1,max=100"`
	MiddleName *string `json:"middle_name,omitempty" binding:"omitempty,max=100"`
}

// Normalize trims whitespace and lowercases the email
func (r *RegisterRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if r.MiddleName != nil {
		m := strings.TrimSpace(*r.MiddleName)
		r.MiddleName = &m
	}
}

// ValidateEmail validates email format more strictly than the binding tag
func (r *RegisterRequest) ValidateEmail() (bool, string) {
	if !emailRegex.MatchString(r.Email) {
		return false, "Invalid email format"
	}
	return true, ""
}

// Validate runs the checks binding tags cannot express
func (r *RegisterRequest) Validate() (bool, string) {
	if ok, msg := r.ValidateEmail(); !ok {
		return false, msg
	}
	if r.FirstName == "" || r.LastName == "" {
		return false, "First and last name must not be blank"
	}
	if len(r.Password) > MaxPasswordBytes {
		return false, "Password must not exceed 72 bytes"
	}
	return true, ""
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LoginRequest represents login request. Username is accepted as an alias of
// Email for OAuth2 password-form clients.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Identifier returns the login email, preferring Email over Username
func (r *LoginRequest) Identifier() string {
	if r.Email != "" {
		return NormalizeEmail(r.Email)
	}
	return NormalizeEmail(r.Username)
}

// RefreshTokenRequest represents refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest represents logout request
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse is returned by login
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AccessTokenResponse is returned by refresh. Refresh tokens are not rotated.
type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// MessageResponse carries a plain status message
type MessageResponse struct {
	Message string `json:"message"`
}

// LogoutAllResponse reports how many refresh tokens were revoked
type LogoutAllResponse struct {
	Message string `json:"message"`
	Revoked int64  `json:"revoked"`
}
