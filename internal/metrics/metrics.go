// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2500}

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flatearth_http_requests_total",
		Help: "Total HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})
	HTTPRequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flatearth_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"method", "route"})

	RPCRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flatearth_rpc_requests_total",
		Help: "Total Connect RPCs by procedure and code",
	}, []string{"procedure", "code"})

	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flatearth_geocode_requests_total",
		Help: "Total geocoder requests sent",
	})
	GeocodeFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flatearth_geocode_fail_total",
		Help: "Total geocoder requests that failed",
	})
	GeocodeNotFoundTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flatearth_geocode_not_found_total",
		Help: "Total geocoder queries with no result",
	})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "flatearth_geocode_duration_ms",
		Help:    "Geocoder call duration in milliseconds",
		Buckets: durationBuckets,
	})
	GeocodeBreakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flatearth_geocode_breaker_state",
		Help: "Geocoder circuit breaker state (0=closed, 1=half-open, 2=open)",
	})

	ReviewsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flatearth_reviews_created_total",
		Help: "Total reviews written",
	})
	ImagesUploadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flatearth_images_uploaded_total",
		Help: "Total review images uploaded",
	})
	OrphanedImagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flatearth_orphaned_images_total",
		Help: "Images uploaded whose review record was never written",
	})

	AuthEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flatearth_auth_events_total",
		Help: "Session transitions by event and result",
	}, []string{"event", "result"})

	ActiveShells = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flatearth_active_shells",
		Help: "Number of live per-browser application shells",
	})
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDurationMs)
	prometheus.MustRegister(RPCRequestsTotal)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeFailTotal)
	prometheus.MustRegister(GeocodeNotFoundTotal)
	prometheus.MustRegister(GeocodeDurationMs)
	prometheus.MustRegister(GeocodeBreakerState)
	prometheus.MustRegister(ReviewsCreatedTotal)
	prometheus.MustRegister(ImagesUploadedTotal)
	prometheus.MustRegister(OrphanedImagesTotal)
	prometheus.MustRegister(AuthEventsTotal)
	prometheus.MustRegister(ActiveShells)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
