package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/flatearth/internal/auth"
	"github.com/mmynk/flatearth/internal/blob/fs"
	"github.com/mmynk/flatearth/internal/config"
	"github.com/mmynk/flatearth/internal/geo"
	"github.com/mmynk/flatearth/internal/geocode"
	"github.com/mmynk/flatearth/internal/mapview"
	"github.com/mmynk/flatearth/internal/metrics"
	"github.com/mmynk/flatearth/internal/middleware"
	"github.com/mmynk/flatearth/internal/reviews"
	"github.com/mmynk/flatearth/internal/service"
	"github.com/mmynk/flatearth/internal/shell"
	"github.com/mmynk/flatearth/internal/storage"
	"github.com/mmynk/flatearth/internal/storage/postgres"
	"github.com/mmynk/flatearth/internal/storage/sqlite"
	"github.com/mmynk/flatearth/internal/web"
	"github.com/mmynk/flatearth/pkg/logging"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Storage initialized", "driver", cfg.StoreDriver)

	media, err := fs.New(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		return err
	}
	logger.Info("Media store initialized", "path", cfg.MediaDir)

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		return err
	}
	var denylist auth.Denylist
	if rdb != nil {
		defer rdb.Close()
		denylist = auth.NewRedisDenylist(rdb)
		logger.Info("Token denylist on redis", "addr", cfg.RedisAddr)
	} else {
		denylist = auth.NewMemoryDenylist()
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL, denylist)
	authenticator := auth.NewPasswordAuthenticator(store)
	geocoder := geocode.New(geocode.Config{
		BaseURL:   cfg.GeocoderURL,
		UserAgent: cfg.GeocoderUserAgent,
		RPS:       cfg.GeocoderRPS,
		Timeout:   cfg.GeocoderTimeout,
	}, logger)
	reviewStore := reviews.New(store, media, logger)

	shellOpts := shell.Options{
		Basemap:    mapview.TileLayer{URL: cfg.TileURL, Attribution: cfg.TileAttribution},
		Center:     geo.Coordinate{Lat: cfg.DefaultLat, Lon: cfg.DefaultLon},
		Zoom:       cfg.DefaultZoom,
		SearchZoom: cfg.SearchZoom,
	}
	registry := shell.NewRegistry(func() *shell.Shell {
		return shell.New(shell.Deps{
			Geocoder: geocoder,
			Reviews:  reviewStore,
			Session:  auth.NewSession(authenticator, jwtManager, logger),
			Logger:   logger,
		}, shellOpts)
	}, cfg.ShellIdleTimeout, logger)

	registryDone := make(chan struct{})
	go func() {
		registry.Run(ctx)
		close(registryDone)
	}()

	mux := http.NewServeMux()

	// Connect services. Auth runs first so the logging interceptor sees the caller.
	interceptors := connect.WithInterceptors(
		middleware.Auth(jwtManager, service.ProtectedProcedures...),
		middleware.LoggingInterceptor(logger),
	)
	mux.Handle(service.NewAuthServiceHandler(service.NewAuthService(authenticator, jwtManager, store, logger), interceptors))
	mux.Handle(service.NewReviewServiceHandler(service.NewReviewService(reviewStore, logger), interceptors))
	mux.Handle(service.NewGeocodeServiceHandler(service.NewGeocodeService(geocoder, logger), interceptors))

	// UI
	ui, err := web.New(registry, media.Handler(), logger)
	if err != nil {
		return err
	}
	ui.SecureCookies = strings.HasPrefix(cfg.MediaBaseURL, "https://")
	ui.Register(mux)

	if cfg.StaticPath != "" {
		staticDir, err := filepath.Abs(cfg.StaticPath)
		if err != nil {
			return err
		}
		logger.Info("Serving static files", "path", staticDir)
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", healthz(store, rdb))

	handler := middleware.Chain(mux,
		middleware.Recover(logger),
		middleware.Access(logger),
		middleware.CORS,
	)

	// h2c serves HTTP/2 without TLS, which Connect's gRPC protocols need.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stop()
		<-registryDone
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	<-registryDone
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.StoreDriver == "postgres" {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// openRedis returns nil when no address is configured.
func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func healthz(store storage.Store, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}
