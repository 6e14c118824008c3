package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/flatearth/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// EmailKey is the context key for storing the authenticated user's email.
	EmailKey contextKey = "email"
	// TokenKey is the context key for the raw bearer token.
	TokenKey contextKey = "token"
)

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetEmail extracts the user email from the context.
// Returns empty string if not found.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// GetToken returns the validated bearer token, or "".
func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

// GetIdentity returns the authenticated identity, or nil.
func GetIdentity(ctx context.Context) *auth.Identity {
	userID := GetUserID(ctx)
	if userID == "" {
		return nil
	}
	return &auth.Identity{UserID: userID, Email: GetEmail(ctx)}
}

// WithClaims returns ctx carrying the identity in claims and its token.
func WithClaims(ctx context.Context, claims *auth.Claims, token string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, EmailKey, claims.Email)
	return context.WithValue(ctx, TokenKey, token)
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// RequireAuth returns a middleware that validates JWT tokens and requires authentication.
// It extracts the token from the Authorization header, validates it, and adds
// the user ID, email and token to the request context.
func RequireAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			tokenString, ok := bearerToken(authHeader)
			if !ok {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			claims, err := jwtManager.Validate(ctx, tokenString)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(WithClaims(ctx, claims, tokenString), req)
		}
	}
}

// OptionalAuth returns a middleware that validates JWT tokens if present, but allows
// requests without authentication.
func OptionalAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if tokenString, ok := bearerToken(req.Header().Get("Authorization")); ok {
				// Invalid tokens are ignored here; the request proceeds anonymously.
				if claims, err := jwtManager.Validate(ctx, tokenString); err == nil {
					ctx = WithClaims(ctx, claims, tokenString)
				}
			}
			return next(ctx, req)
		}
	}
}

// Auth applies RequireAuth to the listed procedures and OptionalAuth to
// every other one.
func Auth(jwtManager *auth.JWTManager, protected ...string) connect.UnaryInterceptorFunc {
	required := make(map[string]bool, len(protected))
	for _, p := range protected {
		required[p] = true
	}
	requireAuth := RequireAuth(jwtManager)
	optionalAuth := OptionalAuth(jwtManager)

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		strict := requireAuth(next)
		lenient := optionalAuth(next)
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if required[req.Spec().Procedure] {
				return strict(ctx, req)
			}
			return lenient(ctx, req)
		}
	}
}
