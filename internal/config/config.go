// Package config loads server settings from the environment, after an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds every setting the server reads.
type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-secret-change-in-production"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH" envDefault:"data/flatearth.db"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	MediaDir     string `env:"MEDIA_DIR" envDefault:"data/media"`
	MediaBaseURL string `env:"MEDIA_BASE_URL" envDefault:"http://localhost:8080"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	GeocoderURL       string        `env:"GEOCODER_URL" envDefault:"https://nominatim.openstreetmap.org"`
	GeocoderUserAgent string        `env:"GEOCODER_USER_AGENT" envDefault:"flatearth/1.0"`
	GeocoderRPS       float64       `env:"GEOCODER_RPS" envDefault:"1"`
	GeocoderTimeout   time.Duration `env:"GEOCODER_TIMEOUT" envDefault:"10s"`

	TileURL         string  `env:"TILE_URL" envDefault:"https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"`
	TileAttribution string  `env:"TILE_ATTRIBUTION" envDefault:"&copy; <a href=\"https://www.openstreetmap.org/copyright\">OpenStreetMap</a> contributors"`
	DefaultLat      float64 `env:"DEFAULT_LAT" envDefault:"51.505"`
	DefaultLon      float64 `env:"DEFAULT_LON" envDefault:"-0.09"`
	DefaultZoom     int     `env:"DEFAULT_ZOOM" envDefault:"13"`
	SearchZoom      int     `env:"SEARCH_ZOOM" envDefault:"13"`

	ShellIdleTimeout time.Duration `env:"SHELL_IDLE_TIMEOUT" envDefault:"30m"`
	StaticPath       string        `env:"STATIC_PATH"`
}

// Load reads envFile if it exists, then parses the environment. Variables
// already set win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "sqlite":
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want sqlite or postgres)", c.StoreDriver)
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.ShellIdleTimeout <= 0 {
		return errors.New("SHELL_IDLE_TIMEOUT must be positive")
	}
	return nil
}
