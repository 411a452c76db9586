package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour

	// SigningAlgorithm is the only accepted algorithm
	SigningAlgorithm = "HS256"
)

// TokenCodec mints and decodes signed bearer tokens
type TokenCodec interface {
	Mint(subject string, kind domain.TokenKind, ttl time.Duration) (string, error)
	Decode(token string) (*domain.TokenClaims, error)
}

// JWTCodecConfig holds the immutable signing configuration
type JWTCodecConfig struct {
	Secret    string
	Algorithm string
}

// JWTCodec implements TokenCodec with HMAC-signed JWTs
type JWTCodec struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// JWTOption configures a JWTCodec
type JWTOption func(*JWTCodec)

// WithClock overrides the time source used for iat, exp and validation
func WithClock(now func() time.Time) JWTOption {
	return func(c *JWTCodec) {
		c.now = now
	}
}

// NewJWTCodec creates a codec; only HS256 is accepted
func NewJWTCodec(cfg *JWTCodecConfig, opts ...JWTOption) (*JWTCodec, error) {
	if cfg == nil || cfg.Secret == "" {
		return nil, fmt.Errorf("%w: jwt secret is required", ErrInvalidInput)
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = SigningAlgorithm
	}
	if alg != SigningAlgorithm {
		return nil, fmt.Errorf("%w: unsupported jwt algorithm %q", ErrInvalidInput, alg)
	}

	c := &JWTCodec{
		secret: []byte(cfg.Secret),
		method: jwt.SigningMethodHS256,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// tokenClaims is the signed payload; typ keeps refresh tokens out of bearer auth
type tokenClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Mint signs a token of the given kind for subject expiring after ttl. Each
// token carries a unique jti so two tokens minted in the same second never collide.
func (c *JWTCodec) Mint(subject string, kind domain.TokenKind, ttl time.Duration) (string, error) {
	now := c.now()
	claims := tokenClaims{
		Type: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(c.method, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry and returns the claims
func (c *JWTCodec) Decode(tokenString string) (*domain.TokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrTokenMalformed
		}
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrTokenMalformed
	}

	out := &domain.TokenClaims{
		ID:        claims.ID,
		Subject:   claims.Subject,
		Kind:      domain.TokenKind(claims.Type),
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
