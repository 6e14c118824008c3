package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mmynk/flatearth/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
	ErrRevokedToken = errors.New("token has been revoked")
)

// JWTManager handles JWT token generation, validation and revocation.
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	denylist      Denylist
}

// Claims represents the custom JWT claims for a user session.
// RegisteredClaims.ID carries the token id used for revocation.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Identity returns the signed-in identity the claims describe.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email}
}

// NewJWTManager creates a new JWT manager with the given secret and token duration.
// A nil denylist falls back to an in-memory one.
func NewJWTManager(secretKey string, tokenDuration time.Duration, denylist Denylist) *JWTManager {
	if denylist == nil {
		denylist = NewMemoryDenylist()
	}
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
		denylist:      denylist,
	}
}

// Generate creates a new JWT token for the given user.
func (m *JWTManager) Generate(user *models.User) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, claims, nil
}

// Validate parses a token, checks its signature and expiry, and rejects revoked tokens.
func (m *JWTManager) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := m.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrRevokedToken
	}

	return claims, nil
}

// Revoke denylists the token until it expires. Expired tokens need nothing.
func (m *JWTManager) Revoke(ctx context.Context, tokenString string) error {
	claims, err := m.parse(tokenString)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (m *JWTManager) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
