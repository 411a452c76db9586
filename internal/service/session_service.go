package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
	"github.com/prohmpiriya/rbac-auth-service/internal/dto"
	"github.com/prohmpiriya/rbac-auth-service/internal/repository"
	"github.com/prohmpiriya/rbac-auth-service/pkg/logger"
	"github.com/prohmpiriya/rbac-auth-service/pkg/metrics"
	"go.uber.org/zap"
)

const TokenTypeBearer = "bearer"

// SessionServiceConfig holds token lifetimes
type SessionServiceConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// SessionService defines the interface for session issuance
type SessionService interface {
	// Register creates an active user; the response never carries the digest
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	// Login verifies credentials and issues an access/refresh pair
	Login(ctx context.Context, email, password string) (*dto.TokenResponse, error)
	// Refresh mints a new access token from an active refresh token
	Refresh(ctx context.Context, refreshToken string) (*dto.AccessTokenResponse, error)
	// Logout revokes the refresh token if it exists; it always succeeds
	Logout(ctx context.Context, refreshToken string) error
	// LogoutAll revokes every refresh token of the user
	LogoutAll(ctx context.Context, user *domain.User) (int64, error)
}

// sessionService implements SessionService
type sessionService struct {
	userRepo  repository.UserRepository
	tokenRepo repository.RefreshTokenRepository
	hasher    PasswordHasher
	codec     TokenCodec
	events    EventPublisher
	metrics   *metrics.Metrics
	config    *SessionServiceConfig
}

// NewSessionService creates a new SessionService
func NewSessionService(
	userRepo repository.UserRepository,
	tokenRepo repository.RefreshTokenRepository,
	hasher PasswordHasher,
	codec TokenCodec,
	events EventPublisher,
	m *metrics.Metrics,
	config *SessionServiceConfig,
) SessionService {
	cfg := SessionServiceConfig{}
	if config != nil {
		cfg = *config
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = AccessTokenTTL
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = RefreshTokenTTL
	}
	if events == nil {
		events = NewNoOpEventPublisher()
	}
	return &sessionService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		hasher:    hasher,
		codec:     codec,
		events:    events,
		metrics:   m,
		config:    &cfg,
	}
}

// Register registers a new user
func (s *sessionService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	user, err := createUser(ctx, s.userRepo, s.hasher, req)
	if err != nil {
		s.metrics.RecordAuth("register", outcomeOf(err, ErrDuplicateEmail, ErrInvalidInput))
		return nil, err
	}

	s.metrics.RecordAuth("register", metrics.OutcomeSuccess)
	publishBestEffort(ctx, s.events, newAuthEvent(domain.EventUserRegistered, user.ID, user.Email, nil))
	return dto.NewUserResponse(user), nil
}

// Login authenticates a user. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *sessionService) Login(ctx context.Context, email, password string) (*dto.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.metrics.RecordAuth("login", metrics.OutcomeError)
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.RecordAuth("login", metrics.OutcomeFailure)
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.codec.Mint(user.Email, domain.TokenKindAccess, s.config.AccessTokenTTL)
	if err != nil {
		s.metrics.RecordAuth("login", metrics.OutcomeError)
		return nil, err
	}
	refreshToken, err := s.codec.Mint(user.Email, domain.TokenKindRefresh, s.config.RefreshTokenTTL)
	if err != nil {
		s.metrics.RecordAuth("login", metrics.OutcomeError)
		return nil, err
	}

	record := &domain.RefreshToken{
		ID:     uuid.New().String(),
		Token:  refreshToken,
		UserID: user.ID,
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		s.metrics.RecordAuth("login", metrics.OutcomeError)
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	s.metrics.RecordAuth("login", metrics.OutcomeSuccess)
	publishBestEffort(ctx, s.events, newAuthEvent(domain.EventUserLoggedIn, user.ID, user.Email, nil))

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(s.config.AccessTokenTTL.Seconds()),
	}, nil
}

// Refresh mints a new access token. The refresh token is not rotated.
func (s *sessionService) Refresh(ctx context.Context, refreshToken string) (*dto.AccessTokenResponse, error) {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil || claims.Kind != domain.TokenKindRefresh {
		s.metrics.RecordAuth("refresh", metrics.OutcomeFailure)
		return nil, ErrUnauthorized
	}

	active, err := s.tokenRepo.IsActive(ctx, refreshToken)
	if err != nil {
		s.metrics.RecordAuth("refresh", metrics.OutcomeError)
		return nil, fmt.Errorf("failed to check refresh token: %w", err)
	}
	if !active {
		s.metrics.RecordAuth("refresh", metrics.OutcomeFailure)
		return nil, ErrTokenRevoked
	}

	accessToken, err := s.codec.Mint(claims.Subject, domain.TokenKindAccess, s.config.AccessTokenTTL)
	if err != nil {
		s.metrics.RecordAuth("refresh", metrics.OutcomeError)
		return nil, err
	}

	s.metrics.RecordAuth("refresh", metrics.OutcomeSuccess)
	return &dto.AccessTokenResponse{
		AccessToken: accessToken,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int64(s.config.AccessTokenTTL.Seconds()),
	}, nil
}

// Logout revokes a refresh token by its exact string
func (s *sessionService) Logout(ctx context.Context, refreshToken string) error {
	record, err := s.tokenRepo.GetByToken(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("failed to load refresh token: %w", err)
	}
	if record == nil {
		return nil
	}

	flipped, err := s.tokenRepo.Revoke(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if flipped {
		s.metrics.RecordAuth("logout", metrics.OutcomeSuccess)
		publishBestEffort(ctx, s.events, newAuthEvent(domain.EventUserLoggedOut, record.UserID, "", nil))
	}
	return nil
}

// LogoutAll revokes every refresh token of the user
func (s *sessionService) LogoutAll(ctx context.Context, user *domain.User) (int64, error) {
	n, err := s.tokenRepo.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}

	logger.Get().Info("Revoked all sessions",
		zap.String("user_id", user.ID),
		zap.Int64("revoked", n),
	)
	s.metrics.RecordAuth("logout_all", metrics.OutcomeSuccess)
	publishBestEffort(ctx, s.events, newAuthEvent(domain.EventUserLoggedOutAll, user.ID, user.Email,
		map[string]string{"revoked": fmt.Sprint(n)}))
	return n, nil
}

// createUser is shared by self-registration and admin creation
func createUser(ctx context.Context, users repository.UserRepository, hasher PasswordHasher, req *dto.RegisterRequest) (*domain.User, error) {
	email := dto.NormalizeEmail(req.Email)

	exists, err := users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	digest, err := hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: digest,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		MiddleName:   req.MiddleName,
		IsActive:     true,
	}
	if err := users.Create(ctx, user); err != nil {
		// a concurrent registration won the race
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// outcomeOf classifies an error as a caller failure when it is one of expected
func outcomeOf(err error, expected ...error) string {
	for _, e := range expected {
		if errors.Is(err, e) {
			return metrics.OutcomeFailure
		}
	}
	return metrics.OutcomeError
}
