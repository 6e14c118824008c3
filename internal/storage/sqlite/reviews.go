package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/flatearth/internal/models"
)

// CreateReview persists a new review, assigning its ID and CreatedAt.
func (s *SQLiteStore) CreateReview(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}

	var imageURL interface{} = nil
	if review.ImageURL != "" {
		imageURL = review.ImageURL
	}

	return s.clock.Stamp(func(ts int64) error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO reviews (id, title, body, image_url, lat, lon, author_id, author_email, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			review.ID, review.Title, review.Body, imageURL,
			review.Location.Lat, review.Location.Lon,
			review.AuthorID, review.AuthorEmail, ts,
		)
		if err != nil {
			return fmt.Errorf("failed to insert review: %w", err)
		}
		review.CreatedAt = ts
		return nil
	})
}

// ListReviews retrieves every review in creation order.
func (s *SQLiteStore) ListReviews(ctx context.Context) ([]models.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, body, image_url, lat, lon, author_id, author_email, created_at
		 FROM reviews ORDER BY created_at, seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var (
			review   models.Review
			imageURL sql.NullString
		)
		if err := rows.Scan(&review.ID, &review.Title, &review.Body, &imageURL,
			&review.Location.Lat, &review.Location.Lon,
			&review.AuthorID, &review.AuthorEmail, &review.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		if imageURL.Valid {
			review.ImageURL = imageURL.String
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}

	return reviews, nil
}
