package auth

import (
	"context"

	"github.com/mmynk/flatearth/internal/models"
)

// Authenticator defines the interface for identity provider implementations.
// The Session and the RPC layer depend on it, not on a concrete credential scheme.
type Authenticator interface {
	// Register creates a new user account with the given email and credential.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
