package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
	"github.com/prohmpiriya/rbac-auth-service/internal/repository"
)

// memStore backs every mock repository so associations stay consistent
type memStore struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	emails    map[string]string
	roles     map[string]*domain.Role
	perms     map[string]*domain.Permission
	userRoles map[string]map[string]bool
	rolePerms map[string]map[string]bool
	tokens    map[string]*domain.RefreshToken

	createUserError error
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[string]*domain.User),
		emails:    make(map[string]string),
		roles:     make(map[string]*domain.Role),
		perms:     make(map[string]*domain.Permission),
		userRoles: make(map[string]map[string]bool),
		rolePerms: make(map[string]map[string]bool),
		tokens:    make(map[string]*domain.RefreshToken),
	}
}

func (s *memStore) userRepo() *mockUserRepository { return &mockUserRepository{s} }
func (s *memStore) roleRepo() *mockRoleRepository { return &mockRoleRepository{s} }
func (s *memStore) permRepo() *mockPermissionRepository { return &mockPermissionRepository{s} }
func (s *memStore) tokenRepo() *mockRefreshTokenRepository { return &mockRefreshTokenRepository{s} }

// mockUserRepository is a mock implementation of UserRepository
type mockUserRepository struct{ s *memStore }

func (r *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createUserError != nil {
		return r.s.createUserError
	}
	if _, ok := r.s.emails[user.Email]; ok {
		return repository.ErrDuplicate
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	cp := *user
	r.s.users[user.ID] = &cp
	r.s.emails[user.Email] = user.ID
	return nil
}

func (r *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	id, ok := r.s.emails[email]
	r.s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *mockUserRepository) List(ctx context.Context, skip, limit int) ([]*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]*domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	if skip >= len(all) {
		return []*domain.User{}, nil
	}
	end := skip + limit
	if end > len(all) {
		end = len(all)
	}
	return all[skip:end], nil
}

func (r *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; ok {
		user.UpdatedAt = time.Now()
		cp := *user
		r.s.users[user.ID] = &cp
	}
	return nil
}

func (r *mockUserRepository) SetActive(ctx context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		u.IsActive = active
	}
	return nil
}

func (r *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.emails[email]
	return ok, nil
}

// mockRoleRepository is a mock implementation of RoleRepository
type mockRoleRepository struct{ s *memStore }

func (r *mockRoleRepository) Create(ctx context.Context, role *domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.roles {
		if existing.Name == role.Name {
			return repository.ErrDuplicate
		}
	}
	cp := *role
	r.s.roles[role.ID] = &cp
	return nil
}

func (r *mockRoleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if role, ok := r.s.roles[id]; ok {
		cp := *role
		cp.Permissions = nil
		return &cp, nil
	}
	return nil, nil
}

func (r *mockRoleRepository) GetByIDWithPermissions(ctx context.Context, id string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[id]; !ok {
		return nil, nil
	}
	return r.s.withPermissions(id), nil
}

func (r *mockRoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, role := range r.s.roles {
		if role.Name == name {
			cp := *role
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *mockRoleRepository) List(ctx context.Context) ([]*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Role, 0, len(r.s.roles))
	for id := range r.s.roles {
		out = append(out, r.s.withPermissions(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *mockRoleRepository) Update(ctx context.Context, role *domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.roles {
		if id != role.ID && existing.Name == role.Name {
			return repository.ErrDuplicate
		}
	}
	if _, ok := r.s.roles[role.ID]; ok {
		cp := *role
		cp.Permissions = nil
		r.s.roles[role.ID] = &cp
	}
	return nil
}

func (r *mockRoleRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[id]; !ok {
		return false, nil
	}
	delete(r.s.roles, id)
	delete(r.s.rolePerms, id)
	for _, set := range r.s.userRoles {
		delete(set, id)
	}
	return true, nil
}

func (r *mockRoleRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Role, 0)
	for roleID := range r.s.userRoles[userID] {
		out = append(out, r.s.withPermissions(roleID))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *mockRoleRepository) AssignToUser(ctx context.Context, userID, roleID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[userID]; !ok {
		return false, repository.ErrReferenceNotFound
	}
	if _, ok := r.s.roles[roleID]; !ok {
		return false, repository.ErrReferenceNotFound
	}
	return addToSet(r.s.userRoles, userID, roleID), nil
}

func (r *mockRoleRepository) UnassignFromUser(ctx context.Context, userID, roleID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return removeFromSet(r.s.userRoles, userID, roleID), nil
}

func (r *mockRoleRepository) GrantPermission(ctx context.Context, roleID, permissionID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[roleID]; !ok {
		return false, repository.ErrReferenceNotFound
	}
	if _, ok := r.s.perms[permissionID]; !ok {
		return false, repository.ErrReferenceNotFound
	}
	return addToSet(r.s.rolePerms, roleID, permissionID), nil
}

func (r *mockRoleRepository) RevokePermission(ctx context.Context, roleID, permissionID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return removeFromSet(r.s.rolePerms, roleID, permissionID), nil
}

// withPermissions must be called with mu held
func (s *memStore) withPermissions(roleID string) *domain.Role {
	cp := *s.roles[roleID]
	cp.Permissions = []*domain.Permission{}
	for permID := range s.rolePerms[roleID] {
		p := *s.perms[permID]
		cp.Permissions = append(cp.Permissions, &p)
	}
	sort.Slice(cp.Permissions, func(i, j int) bool { return cp.Permissions[i].Key() < cp.Permissions[j].Key() })
	return &cp
}

// mockPermissionRepository is a mock implementation of PermissionRepository
type mockPermissionRepository struct{ s *memStore }

func (r *mockPermissionRepository) Create(ctx context.Context, perm *domain.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.perms {
		if existing.Key() == perm.Key() {
			return repository.ErrDuplicate
		}
	}
	cp := *perm
	r.s.perms[perm.ID] = &cp
	return nil
}

func (r *mockPermissionRepository) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.perms[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *mockPermissionRepository) GetByResourceAction(ctx context.Context, resource, action string) (*domain.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.perms {
		if p.Resource == resource && p.Action == action {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *mockPermissionRepository) List(ctx context.Context) ([]*domain.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Permission, 0, len(r.s.perms))
	for _, p := range r.s.perms {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (r *mockPermissionRepository) Update(ctx context.Context, perm *domain.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.perms[perm.ID]; ok {
		cp := *perm
		r.s.perms[perm.ID] = &cp
	}
	return nil
}

func (r *mockPermissionRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.perms[id]; !ok {
		return false, nil
	}
	delete(r.s.perms, id)
	for _, set := range r.s.rolePerms {
		delete(set, id)
	}
	return true, nil
}

// mockRefreshTokenRepository is a mock implementation of RefreshTokenRepository
type mockRefreshTokenRepository struct{ s *memStore }

func (r *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tokens[token.Token]; ok {
		return repository.ErrDuplicate
	}
	token.CreatedAt = time.Now()
	cp := *token
	r.s.tokens[token.Token] = &cp
	return nil
}

func (r *mockRefreshTokenRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tokens[token]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (r *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[token]
	if !ok || t.Revoked {
		return false, nil
	}
	t.Revoked = true
	return true, nil
}

func (r *mockRefreshTokenRepository) IsActive(ctx context.Context, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[token]
	return ok && !t.Revoked, nil
}

func (r *mockRefreshTokenRepository) HasActiveForUser(ctx context.Context, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tokens {
		if t.UserID == userID && !t.Revoked {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.tokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			n++
		}
	}
	return n, nil
}

func addToSet(m map[string]map[string]bool, key, member string) bool {
	if m[key] == nil {
		m[key] = make(map[string]bool)
	}
	if m[key][member] {
		return false
	}
	m[key][member] = true
	return true
}

func removeFromSet(m map[string]map[string]bool, key, member string) bool {
	if !m[key][member] {
		return false
	}
	delete(m[key], member)
	return true
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.AuthEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event *domain.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []domain.AuthEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.AuthEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
