package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
	"github.com/prohmpiriya/rbac-auth-service/internal/dto"
	"github.com/prohmpiriya/rbac-auth-service/internal/repository"
)

// UserService defines user management operations
type UserService interface {
	List(ctx context.Context, skip, limit int) ([]*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, req *dto.CreateUserRequest) (*domain.User, error)
	Update(ctx context.Context, id string, patch *dto.UpdateUserRequest) (*domain.User, error)
	// Deactivate soft-deletes a user; the row and its email stay reserved
	Deactivate(ctx context.Context, id string) error
}

// userService implements UserService
type userService struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	events   EventPublisher
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, hasher PasswordHasher, events EventPublisher) UserService {
	if events == nil {
		events = NewNoOpEventPublisher()
	}
	return &userService{
		userRepo: userRepo,
		hasher:   hasher,
		events:   events,
	}
}

// List returns a page of users
func (s *userService) List(ctx context.Context, skip, limit int) ([]*domain.User, error) {
	users, err := s.userRepo.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Get returns a user by id
func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Create creates an active user on behalf of an administrator
func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest) (*domain.User, error) {
	user, err := createUser(ctx, s.userRepo, s.hasher, req)
	if err != nil {
		return nil, err
	}
	publishBestEffort(ctx, s.events, newAuthEvent(domain.EventUserRegistered, user.ID, user.Email,
		map[string]string{"created_by": "admin"}))
	return user, nil
}

// Update applies a partial profile update
func (s *userService) Update(ctx context.Context, id string, patch *dto.UpdateUserRequest) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyUserPatch(user, patch); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func applyUserPatch(user *domain.User, patch *dto.UpdateUserRequest) error {
	if patch == nil {
		return nil
	}
	if patch.FirstName != nil {
		v := strings.TrimSpace(*patch.FirstName)
		if v == "" {
			return fmt.Errorf("%w: first name must not be blank", ErrInvalidInput)
		}
		user.FirstName = v
	}
	if patch.LastName != nil {
		v := strings.TrimSpace(*patch.LastName)
		if v == "" {
			return fmt.Errorf("%w: last name must not be blank", ErrInvalidInput)
		}
		user.LastName = v
	}
	if patch.MiddleName != nil {
		v := strings.TrimSpace(*patch.MiddleName)
		if v == "" {
			user.MiddleName = nil
		} else {
			user.MiddleName = &v
		}
	}
	return nil
}

// Deactivate flips is_active to false
func (s *userService) Deactivate(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return nil
	}
	if err := s.userRepo.SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	publishBestEffort(ctx, s.events, newAuthEvent(domain.EventUserDeactivated, user.ID, user.Email, nil))
	return nil
}
