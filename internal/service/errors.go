package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUnauthorized       = errors.New("could not validate credentials")
	ErrTokenRevoked       = fmt.Errorf("%w: token has been revoked", ErrUnauthorized)
	ErrInactiveUser       = errors.New("inactive user")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrRoleExists         = errors.New("role already exists")
	ErrPermissionExists   = errors.New("permission already exists")
	ErrNotFound           = errors.New("not found")
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrRoleNotFound       = fmt.Errorf("role %w", ErrNotFound)
	ErrPermissionNotFound = fmt.Errorf("permission %w", ErrNotFound)
	ErrInvalidInput       = errors.New("invalid input")
)

// Token codec errors; every one of them is an authentication failure to callers
var (
	ErrTokenMalformed   = errors.New("token is malformed")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrTokenExpired     = errors.New("token has expired")
)
