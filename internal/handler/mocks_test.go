package handler

import (
	"context"

	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
	"github.com/prohmpiriya/rbac-auth-service/internal/dto"
	"github.com/stretchr/testify/mock"
)

type mockSessionService struct{ mock.Mock }

func (m *mockSessionService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*dto.UserResponse)
	return resp, args.Error(1)
}

func (m *mockSessionService) Login(ctx context.Context, email, password string) (*dto.TokenResponse, error) {
	args := m.Called(ctx, email, password)
	resp, _ := args.Get(0).(*dto.TokenResponse)
	return resp, args.Error(1)
}

func (m *mockSessionService) Refresh(ctx context.Context, refreshToken string) (*dto.AccessTokenResponse, error) {
	args := m.Called(ctx, refreshToken)
	resp, _ := args.Get(0).(*dto.AccessTokenResponse)
	return resp, args.Error(1)
}

func (m *mockSessionService) Logout(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func (m *mockSessionService) LogoutAll(ctx context.Context, user *domain.User) (int64, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(int64), args.Error(1)
}

type mockUserService struct{ mock.Mock }

func (m *mockUserService) List(ctx context.Context, skip, limit int) ([]*domain.User, error) {
	args := m.Called(ctx, skip, limit)
	users, _ := args.Get(0).([]*domain.User)
	return users, args.Error(1)
}

func (m *mockUserService) Get(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUserService) Create(ctx context.Context, req *dto.CreateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUserService) Update(ctx context.Context, id string, patch *dto.UpdateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, id, patch)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUserService) Deactivate(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockRBACService struct{ mock.Mock }

func (m *mockRBACService) CreateRole(ctx context.Context, req *dto.CreateRoleRequest) (*domain.Role, error) {
	args := m.Called(ctx, req)
	role, _ := args.Get(0).(*domain.Role)
	return role, args.Error(1)
}

func (m *mockRBACService) GetRole(ctx context.Context, id string) (*domain.Role, error) {
	args := m.Called(ctx, id)
	role, _ := args.Get(0).(*domain.Role)
	return role, args.Error(1)
}

func (m *mockRBACService) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	args := m.Called(ctx)
	roles, _ := args.Get(0).([]*domain.Role)
	return roles, args.Error(1)
}

func (m *mockRBACService) UpdateRole(ctx context.Context, id string, patch *dto.UpdateRoleRequest) (*domain.Role, error) {
	args := m.Called(ctx, id, patch)
	role, _ := args.Get(0).(*domain.Role)
	return role, args.Error(1)
}

func (m *mockRBACService) DeleteRole(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRBACService) CreatePermission(ctx context.Context, req *dto.CreatePermissionRequest) (*domain.Permission, error) {
	args := m.Called(ctx, req)
	perm, _ := args.Get(0).(*domain.Permission)
	return perm, args.Error(1)
}

func (m *mockRBACService) GetPermission(ctx context.Context, id string) (*domain.Permission, error) {
	args := m.Called(ctx, id)
	perm, _ := args.Get(0).(*domain.Permission)
	return perm, args.Error(1)
}

func (m *mockRBACService) ListPermissions(ctx context.Context) ([]*domain.Permission, error) {
	args := m.Called(ctx)
	perms, _ := args.Get(0).([]*domain.Permission)
	return perms, args.Error(1)
}

func (m *mockRBACService) UpdatePermission(ctx context.Context, id string, patch *dto.UpdatePermissionRequest) (*domain.Permission, error) {
	args := m.Called(ctx, id, patch)
	perm, _ := args.Get(0).(*domain.Permission)
	return perm, args.Error(1)
}

func (m *mockRBACService) DeletePermission(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRBACService) AssignRole(ctx context.Context, userID, roleID string) error {
	return m.Called(ctx, userID, roleID).Error(0)
}

func (m *mockRBACService) UnassignRole(ctx context.Context, userID, roleID string) error {
	return m.Called(ctx, userID, roleID).Error(0)
}

func (m *mockRBACService) GrantPermission(ctx context.Context, roleID, permissionID string) error {
	return m.Called(ctx, roleID, permissionID).Error(0)
}

func (m *mockRBACService) RevokePermission(ctx context.Context, roleID, permissionID string) error {
	return m.Called(ctx, roleID, permissionID).Error(0)
}

func (m *mockRBACService) EnsureAdmin(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }
