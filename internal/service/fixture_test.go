package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
	"github.com/prohmpiriya/rbac-auth-service/internal/dto"
	"github.com/prohmpiriya/rbac-auth-service/pkg/metrics"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key"

// fakeClock is a settable time source shared by codec and tests
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store    *memStore
	clock    *fakeClock
	codec    *JWTCodec
	hasher   PasswordHasher
	events   *recordingPublisher
	sessions SessionService
	resolver IdentityResolver
	rbac     RBACService
	users    UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	clock := &fakeClock{now: time.Now()}
	codec, err := NewJWTCodec(&JWTCodecConfig{Secret: testSecret, Algorithm: "HS256"}, WithClock(clock.Now))
	require.NoError(t, err)

	hasher := NewBcryptHasher(bcrypt.MinCost)
	events := &recordingPublisher{}

	return &fixture{
		store:    store,
		clock:    clock,
		codec:    codec,
		hasher:   hasher,
		events:   events,
		sessions: NewSessionService(store.userRepo(), store.tokenRepo(), hasher, codec, events, metrics.New("test"), nil),
		resolver: NewIdentityResolver(codec, store.userRepo(), store.roleRepo(), store.tokenRepo()),
		rbac:     NewRBACService(store.userRepo(), store.roleRepo(), store.permRepo(), events),
		users:    NewUserService(store.userRepo(), hasher, events),
	}
}

func registerRequest(email, password string) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: "Alice",
		LastName:  "Smith",
	}
}

// registerAndLogin creates a user and returns their tokens
func (f *fixture) registerAndLogin(t *testing.T, email string) (*dto.UserResponse, *dto.TokenResponse) {
	t.Helper()
	ctx := context.Background()

	user, err := f.sessions.Register(ctx, registerRequest(email, "password123"))
	require.NoError(t, err)

	tokens, err := f.sessions.Login(ctx, email, "password123")
	require.NoError(t, err)
	return user, tokens
}

// grant creates role and permission if needed and links them
func (f *fixture) grant(t *testing.T, roleName, resource, action string) *domain.Role {
	t.Helper()
	ctx := context.Background()

	role, err := f.store.roleRepo().GetByName(ctx, roleName)
	require.NoError(t, err)
	if role == nil {
		role, err = f.rbac.CreateRole(ctx, &dto.CreateRoleRequest{Name: roleName})
		require.NoError(t, err)
	}
	if resource == "" {
		return role
	}

	perm, err := f.store.permRepo().GetByResourceAction(ctx, resource, action)
	require.NoError(t, err)
	if perm == nil {
		perm, err = f.rbac.CreatePermission(ctx, &dto.CreatePermissionRequest{Resource: resource, Action: action})
		require.NoError(t, err)
	}
	require.NoError(t, f.rbac.GrantPermission(ctx, role.ID, perm.ID))
	return role
}
