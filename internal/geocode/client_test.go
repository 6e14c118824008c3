package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mmynk/flatearth/internal/errors"
	"github.com/mmynk/flatearth/internal/geo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(url string) *Client {
	return New(Config{BaseURL: url, UserAgent: "flatearth-test", BreakerThreshold: 3}, testLogger())
}

func TestClient_Search(t *testing.T) {
	var gotQuery, gotUA, gotFormat, gotLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		gotFormat = r.URL.Query().Get("format")
		gotLimit = r.URL.Query().Get("limit")
		gotUA = r.UserAgent()
		_, _ = w.Write([]byte(`[{"lat":"48.8566","lon":"2.3522","display_name":"Paris, France"},
			{"lat":"33.66","lon":"-95.55","display_name":"Paris, Texas"}]`))
	}))
	defer server.Close()

	res, err := newTestClient(server.URL).Search(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, geo.Coordinate{Lat: 48.8566, Lon: 2.3522}, res.Location)
	assert.Equal(t, "Paris, France", res.Label)

	assert.Equal(t, "Paris", gotQuery)
	assert.Equal(t, "jsonv2", gotFormat)
	assert.Equal(t, "1", gotLimit)
	assert.Equal(t, "flatearth-test", gotUA)
}

func TestClient_SearchAcceptsBareNumbers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":-33.8688,"lon":151.2093,"display_name":"Sydney"}]`))
	}))
	defer server.Close()

	res, err := newTestClient(server.URL).Search(context.Background(), "Sydney")
	require.NoError(t, err)
	assert.Equal(t, geo.Coordinate{Lat: -33.8688, Lon: 151.2093}, res.Location)
}

func TestClient_SearchForwardsEmptyQuery(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.True(t, r.URL.Query().Has("q"))
		assert.Equal(t, "", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Search(context.Background(), "")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_SearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"no match", http.StatusOK, `[]`, apperrors.ErrNotFound},
		{"server error", http.StatusInternalServerError, `oops`, apperrors.ErrTransport},
		{"rate limited", http.StatusTooManyRequests, ``, apperrors.ErrTransport},
		{"not json", http.StatusOK, `<html>`, apperrors.ErrTransport},
		{"unparsable latitude", http.StatusOK, `[{"lat":"north","lon":"2.35","display_name":"x"}]`, apperrors.ErrTransport},
		{"out of range", http.StatusOK, `[{"lat":"91","lon":"2.35","display_name":"x"}]`, apperrors.ErrValidation},
		{"missing coordinates", http.StatusOK, `[{"display_name":"Nowhere"}]`, apperrors.ErrTransport},
		{"missing longitude", http.StatusOK, `[{"lat":"48.8566","display_name":"Half"}]`, apperrors.ErrTransport},
		{"null latitude", http.StatusOK, `[{"lat":null,"lon":"2.35","display_name":"x"}]`, apperrors.ErrTransport},
		{"null candidate", http.StatusOK, `[null]`, apperrors.ErrTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			res, err := newTestClient(server.URL).Search(context.Background(), "q")
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestClient_SearchTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Search(context.Background(), "Paris")
	assert.True(t, errors.Is(err, apperrors.ErrTransport))
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for i := 0; i < 3; i++ {
		_, err := client.Search(context.Background(), "Paris")
		require.Error(t, err)
	}

	_, err := client.Search(context.Background(), "Paris")
	assert.True(t, errors.Is(err, apperrors.ErrTransport))
	assert.Equal(t, "geocoding service unavailable", apperrors.MessageOf(err))
	assert.Equal(t, int32(3), calls.Load(), "open breaker sends nothing")
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for i := 0; i < 5; i++ {
		_, err := client.Search(context.Background(), "Atlantis")
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	}
	assert.Equal(t, int32(5), calls.Load())
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[{"lat":"1","lon":"2","display_name":"x"}]`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, RPS: 0.01}, testLogger())
	_, err := client.Search(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Search(ctx, "second")
	assert.True(t, errors.Is(err, apperrors.ErrTransport))
	assert.Equal(t, int32(1), calls.Load())
}
