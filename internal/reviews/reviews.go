// Package reviews writes and reads review records, uploading attached photos
// to the blob store before the record that references them.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mmynk/flatearth/internal/blob"
	apperrors "github.com/mmynk/flatearth/internal/errors"
	"github.com/mmynk/flatearth/internal/geo"
	"github.com/mmynk/flatearth/internal/metrics"
	"github.com/mmynk/flatearth/internal/models"
	"github.com/mmynk/flatearth/internal/storage"
)

// MaxImageBytes caps a single uploaded photo.
const MaxImageBytes = 10 << 20

// Image is a photo attached to a submission.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Input is a review submission. The caller is responsible for having
// confirmed the author is signed in.
type Input struct {
	Title       string         `validate:"required,max=200"`
	Body        string         `validate:"required,max=5000"`
	Location    geo.Coordinate `validate:"-"`
	AuthorID    string         `validate:"required"`
	AuthorEmail string         `validate:"omitempty,email"`
	Image       *Image         `validate:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Store composes the document repository and the blob store.
type Store struct {
	docs   storage.ReviewStore
	blobs  blob.Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a review store.
func New(docs storage.ReviewStore, blobs blob.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		docs:   docs,
		blobs:  blobs,
		logger: logger,
		now:    time.Now,
	}
}

// Create validates the input, uploads the image if there is one, then writes
// the record with the image URL embedded.
//
// The two writes are not atomic. If the upload succeeds and the record write
// fails, the image stays in the blob store unreferenced; it is logged and
// counted, never deleted.
func (s *Store) Create(ctx context.Context, in Input) (*models.Review, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	review := &models.Review{
		Title:       in.Title,
		Body:        in.Body,
		Location:    in.Location,
		AuthorID:    in.AuthorID,
		AuthorEmail: in.AuthorEmail,
	}

	var objectName string
	if in.Image != nil {
		objectName = blob.ObjectName(s.now(), in.Image.Filename)
		url, err := s.blobs.Put(ctx, blob.Object{
			Name:        objectName,
			ContentType: in.Image.ContentType,
			Data:        in.Image.Data,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "image upload failed", "object", objectName, "error", err)
			return nil, apperrors.Store("could not upload image", err)
		}
		metrics.ImagesUploadedTotal.Inc()
		review.ImageURL = url
	}

	if err := s.docs.CreateReview(ctx, review); err != nil {
		if objectName != "" {
			metrics.OrphanedImagesTotal.Inc()
			s.logger.WarnContext(ctx, "review write failed after image upload; image orphaned",
				"object", objectName, "url", review.ImageURL, "error", err)
		}
		return nil, apperrors.Store("could not save review", err)
	}

	metrics.ReviewsCreatedTotal.Inc()
	s.logger.InfoContext(ctx, "review created",
		"review_id", review.ID, "author_id", review.AuthorID, "location", review.Location.String())
	return review, nil
}

// ListAll returns every review in creation order.
func (s *Store) ListAll(ctx context.Context) ([]models.Review, error) {
	list, err := s.docs.ListReviews(ctx)
	if err != nil {
		return nil, apperrors.Store("could not load reviews", err)
	}
	return list, nil
}

func validateInput(in *Input) error {
	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return apperrors.Validation(fieldMessage(fieldErrs[0]), err)
		}
		return apperrors.Validation("invalid review", err)
	}
	if err := in.Location.Validate(); err != nil {
		return err
	}
	if in.Image != nil {
		return validateImage(in.Image)
	}
	return nil
}

func validateImage(img *Image) error {
	if len(img.Data) == 0 {
		return apperrors.Validation("image is empty", nil)
	}
	if len(img.Data) > MaxImageBytes {
		return apperrors.Validation(fmt.Sprintf("image exceeds %d MiB", MaxImageBytes>>20), nil)
	}
	if img.ContentType == "" || img.ContentType == "application/octet-stream" {
		img.ContentType = http.DetectContentType(img.Data)
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return apperrors.Validation("attachment must be an image", nil)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	default:
		return fmt.Sprintf("%s failed on '%s' validation", field, fe.Tag())
	}
}
