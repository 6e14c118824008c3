package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/flatearth/internal/auth"
	"github.com/mmynk/flatearth/internal/metrics"
	"github.com/mmynk/flatearth/internal/middleware"
	"github.com/mmynk/flatearth/internal/storage"
)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         storage.UserStore
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users storage.UserStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// SignUp creates a new user account and returns a session token.
func (s *AuthService) SignUp(ctx context.Context, req *connect.Request[SignUpRequest]) (*connect.Response[SignUpResponse], error) {
	s.logger.Info("SignUp request", "email", req.Msg.Email)

	user, err := s.authenticator.Register(ctx, req.Msg.Email, req.Msg.DisplayName, req.Msg.Password)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("sign_up", "rejected").Inc()
		s.logger.Warn("Registration failed", "email", req.Msg.Email, "error", err)
		return nil, connectError(err)
	}

	token, _, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	metrics.AuthEventsTotal.WithLabelValues("sign_up", "ok").Inc()
	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(&SignUpResponse{User: userFromModel(user), Token: token}), nil
}

// SignIn authenticates a user and returns a session token.
func (s *AuthService) SignIn(ctx context.Context, req *connect.Request[SignInRequest]) (*connect.Response[SignInResponse], error) {
	s.logger.Info("SignIn request", "email", req.Msg.Email)

	if req.Msg.Email == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("sign_in", "rejected").Inc()
		s.logger.Warn("Login failed", "email", req.Msg.Email, "error", err)
		return nil, connectError(err)
	}

	token, _, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	metrics.AuthEventsTotal.WithLabelValues("sign_in", "ok").Inc()
	s.logger.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(&SignInResponse{User: userFromModel(user), Token: token}), nil
}

// SignOut revokes the caller's bearer token. Without one it does nothing.
func (s *AuthService) SignOut(ctx context.Context, req *connect.Request[SignOutRequest]) (*connect.Response[SignOutResponse], error) {
	token := middleware.GetToken(ctx)
	if token != "" {
		if err := s.jwtManager.Revoke(ctx, token); err != nil {
			s.logger.Warn("Failed to revoke token", "user_id", middleware.GetUserID(ctx), "error", err)
		}
	}
	metrics.AuthEventsTotal.WithLabelValues("sign_out", "ok").Inc()
	s.logger.Info("SignOut request", "user_id", middleware.GetUserID(ctx))
	return connect.NewResponse(&SignOutResponse{}), nil
}

// GetCurrentUser returns the currently authenticated user's information.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load user", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if user == nil {
		return nil, connect.NewError(connect.CodeNotFound, auth.ErrInvalidToken)
	}

	return connect.NewResponse(&GetCurrentUserResponse{User: userFromModel(user)}), nil
}
