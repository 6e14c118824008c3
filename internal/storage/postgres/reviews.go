package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/flatearth/internal/models"
)

// CreateReview inserts a review, assigning its ID and CreatedAt.
func (s *Store) CreateReview(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	var imageURL *string
	if review.ImageURL != "" {
		imageURL = &review.ImageURL
	}

	query := `
		INSERT INTO reviews (id, title, body, image_url, lat, lon, author_id, author_email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	return s.clock.Stamp(func(ts int64) error {
		_, err := s.db.Exec(ctx, query,
			review.ID,
			review.Title,
			review.Body,
			imageURL,
			review.Location.Lat,
			review.Location.Lon,
			review.AuthorID,
			review.AuthorEmail,
			ts,
		)
		if err != nil {
			return fmt.Errorf("insert review: %w", err)
		}
		review.CreatedAt = ts
		return nil
	})
}

// ListReviews returns every review in creation order.
func (s *Store) ListReviews(ctx context.Context) ([]models.Review, error) {
	query := `
		SELECT id, title, body, image_url, lat, lon, author_id, author_email, created_at
		FROM reviews
		ORDER BY created_at, seq`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var (
			r        models.Review
			imageURL *string
		)
		if err := rows.Scan(
			&r.ID,
			&r.Title,
			&r.Body,
			&imageURL,
			&r.Location.Lat,
			&r.Location.Lon,
			&r.AuthorID,
			&r.AuthorEmail,
			&r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		if imageURL != nil {
			r.ImageURL = *imageURL
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}
