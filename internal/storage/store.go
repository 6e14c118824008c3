// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/flatearth/internal/models"
)

// ReviewStore is the document collection holding reviews.
type ReviewStore interface {
	// CreateReview persists a new review.
	// The store assigns review.ID and review.CreatedAt; CreatedAt never goes
	// backwards relative to previously created reviews.
	CreateReview(ctx context.Context, review *models.Review) error

	// ListReviews returns every review in creation order.
	ListReviews(ctx context.Context) ([]models.Review, error)
}

// UserStore holds the identity provider's accounts.
// GetUserByEmail and GetUserByID return (nil, nil) when no user matches.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Store defines the full set of storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	ReviewStore
	UserStore

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
