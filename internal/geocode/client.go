// Package geocode resolves free-text place names to coordinates through a
// Nominatim-compatible search API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	apperrors "github.com/mmynk/flatearth/internal/errors"
	"github.com/mmynk/flatearth/internal/geo"
	"github.com/mmynk/flatearth/internal/metrics"
)

// Result is the best match for a query.
type Result struct {
	Location geo.Coordinate `json:"location"`
	Label    string         `json:"label"`
}

// Config configures a Client. Zero values fall back to the defaults below.
type Config struct {
	BaseURL   string
	UserAgent string

	// RPS paces outbound requests; <= 0 disables pacing.
	RPS     float64
	Timeout time.Duration

	// BreakerThreshold is the number of consecutive failures that opens the
	// breaker; BreakerTimeout is how long it stays open.
	BreakerThreshold uint32
	BreakerTimeout   time.Duration

	HTTPClient *http.Client
}

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "flatearth/1.0"
)

// Client issues one search request per query. It does not cache or retry.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*Result]
	logger     *slog.Logger
}

// New builds a Client.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	threshold := cfg.BreakerThreshold
	breaker := gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:    "geocoder",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: isAvailable,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.GeocodeBreakerState.Set(stateToFloat(to))
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: cfg.HTTPClient,
		limiter:    rate.NewLimiter(limit, 1),
		breaker:    breaker,
		logger:     logger,
	}
}

// Search returns the first match for query. The query is sent as-is.
// Errors are NotFound for no match, Validation for an out-of-range
// coordinate and Transport for everything else.
func (c *Client) Search(ctx context.Context, query string) (*Result, error) {
	res, err := c.breaker.Execute(func() (*Result, error) {
		return c.search(ctx, query)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.GeocodeFailTotal.Inc()
		return nil, apperrors.Transport("geocoding service unavailable", err)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// place is one candidate. Lat and Lon stay nil when the provider omits them.
type place struct {
	Lat         *number `json:"lat"`
	Lon         *number `json:"lon"`
	DisplayName string  `json:"display_name"`
}

func (c *Client) search(ctx context.Context, query string) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.Transport("geocoding request cancelled", err)
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, apperrors.Transport("build geocoding request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	t0 := time.Now()
	metrics.GeocodeRequestsTotal.Inc()
	c.logger.DebugContext(ctx, "geocode request", "query", query)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.GeocodeFailTotal.Inc()
		c.logger.ErrorContext(ctx, "geocode http error", "error", err)
		return nil, apperrors.Transport("geocoding request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.GeocodeFailTotal.Inc()
		return nil, apperrors.Transport("geocoding request failed",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var places []*place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		metrics.GeocodeFailTotal.Inc()
		c.logger.ErrorContext(ctx, "geocode decode error", "error", err)
		return nil, apperrors.Transport("malformed geocoding response", err)
	}

	dur := time.Since(t0).Milliseconds()
	metrics.GeocodeDurationMs.Observe(float64(dur))
	c.logger.DebugContext(ctx, "geocode response", "query", query, "results", len(places), "duration_ms", dur)

	if len(places) == 0 {
		metrics.GeocodeNotFoundTotal.Inc()
		return nil, apperrors.NotFound(fmt.Sprintf("no place matches %q", query))
	}

	best := places[0]
	if best == nil || best.Lat == nil || best.Lon == nil {
		metrics.GeocodeFailTotal.Inc()
		return nil, apperrors.Transport("malformed geocoding response",
			errors.New("candidate without a latitude and longitude"))
	}
	loc := geo.Coordinate{Lat: float64(*best.Lat), Lon: float64(*best.Lon)}
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	return &Result{Location: loc, Label: best.DisplayName}, nil
}

// isAvailable tells the breaker which outcomes say nothing about the
// provider's health.
func isAvailable(err error) bool {
	return err == nil ||
		errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrValidation) ||
		errors.Is(err, context.Canceled)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// number decodes a JSON number given either bare or as a string, as
// Nominatim sends coordinates quoted.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse coordinate %s: %w", data, err)
	}
	*n = number(v)
	return nil
}
