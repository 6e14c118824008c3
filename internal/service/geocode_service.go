package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/flatearth/internal/geocode"
)

// Geocoder resolves place names.
type Geocoder interface {
	Search(ctx context.Context, query string) (*geocode.Result, error)
}

// GeocodeService implements the GeocodeService RPC interface.
type GeocodeService struct {
	geocoder Geocoder
	logger   *slog.Logger
}

func NewGeocodeService(geocoder Geocoder, logger *slog.Logger) *GeocodeService {
	return &GeocodeService{geocoder: geocoder, logger: logger}
}

// Search forwards the query to the geocoder.
func (s *GeocodeService) Search(ctx context.Context, req *connect.Request[SearchRequest]) (*connect.Response[SearchResponse], error) {
	res, err := s.geocoder.Search(ctx, req.Msg.Query)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&SearchResponse{Result: res}), nil
}
