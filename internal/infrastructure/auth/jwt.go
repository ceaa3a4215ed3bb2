// Package auth verifies the bearer tokens issued by the identity provider.
// Tokens name the acting user and a single role; the ledger keeps no user store.
package auth

import (
	"errors"
	"time"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is the coarse permission carried by a token
type Role string

const (
	// RoleAdmin manages reference data and may do everything an operator can
	RoleAdmin Role = "admin"
	// RoleOperator submits and voids transactions and posts movements
	RoleOperator Role = "operator"
	// RoleAuditor reads the journal, stock levels and balances
	RoleAuditor Role = "auditor"
)

// IsValid returns true if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleAuditor:
		return true
	}
	return false
}

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingActorID   = errors.New("missing actor_id in claims")
	ErrUnknownRole      = errors.New("unknown role in claims")
)

// Claims represents the ledger's JWT claims
type Claims struct {
	jwt.RegisteredClaims
	ActorID string `json:"actor_id"`
	Role    Role   `json:"role"`
}

// ActorUUID parses the actor ID
func (c *Claims) ActorUUID() (uuid.UUID, error) {
	return uuid.Parse(c.ActorID)
}

// RemainingTTL returns the time until the token expires, or 0
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}

// JWTService signs and verifies HS256 access tokens
type JWTService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Secret),
		expiration: cfg.AccessTokenExpiration,
		issuer:     cfg.Issuer,
	}
}

// GenerateAccessToken signs a token for actorID with role.
// Production tokens come from the identity provider; this is used by
// tooling and tests that share the secret.
func (s *JWTService) GenerateAccessToken(actorID uuid.UUID, role Role) (string, time.Time, error) {
	if !role.IsValid() {
		return "", time.Time{}, ErrUnknownRole
	}
	now := time.Now()
	expiresAt := now.Add(s.expiration)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   actorID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		ActorID: actorID.String(),
		Role:    role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken verifies the signature, lifetime and issuer of a
// token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.ActorID == "" {
		return nil, ErrMissingActorID
	}
	if _, err := uuid.Parse(claims.ActorID); err != nil {
		return nil, ErrInvalidClaims
	}
	if !claims.Role.IsValid() {
		return nil, ErrUnknownRole
	}
	return claims, nil
}

// Expiration returns the lifetime of generated tokens
func (s *JWTService) Expiration() time.Duration {
	return s.expiration
}
