package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/flatearth/internal/auth"
	"github.com/mmynk/flatearth/internal/geo"
	"github.com/mmynk/flatearth/internal/middleware"
	"github.com/mmynk/flatearth/internal/models"
	"github.com/mmynk/flatearth/internal/reviews"
)

// ReviewStore is the part of reviews.Store the service uses.
type ReviewStore interface {
	Create(ctx context.Context, in reviews.Input) (*models.Review, error)
	ListAll(ctx context.Context) ([]models.Review, error)
}

// ReviewService implements the ReviewService RPC interface.
type ReviewService struct {
	reviews ReviewStore
	logger  *slog.Logger
}

func NewReviewService(reviews ReviewStore, logger *slog.Logger) *ReviewService {
	return &ReviewService{reviews: reviews, logger: logger}
}

// CreateReview stores a review authored by the caller.
func (s *ReviewService) CreateReview(ctx context.Context, req *connect.Request[CreateReviewRequest]) (*connect.Response[CreateReviewResponse], error) {
	identity := middleware.GetIdentity(ctx)
	if identity == nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	in := reviews.Input{
		Title:       req.Msg.Title,
		Body:        req.Msg.Body,
		Location:    req.Msg.Location,
		AuthorID:    identity.UserID,
		AuthorEmail: identity.Email,
	}
	if img := req.Msg.Image; img != nil {
		in.Image = &reviews.Image{Filename: img.Filename, ContentType: img.ContentType, Data: img.Data}
	}

	review, err := s.reviews.Create(ctx, in)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&CreateReviewResponse{Review: review}), nil
}

// ListReviews returns reviews most recent first, optionally only those at
// the requested coordinate.
func (s *ReviewService) ListReviews(ctx context.Context, req *connect.Request[ListReviewsRequest]) (*connect.Response[ListReviewsResponse], error) {
	list, err := s.reviews.ListAll(ctx)
	if err != nil {
		return nil, connectError(err)
	}
	if near := req.Msg.Near; near != nil {
		list = geo.Filter(list, *near, geo.Precision)
	}
	return connect.NewResponse(&ListReviewsResponse{Reviews: geo.Reverse(list)}), nil
}
