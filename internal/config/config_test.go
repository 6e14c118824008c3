package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 1.0, cfg.GeocoderRPS)
	assert.Equal(t, 51.505, cfg.DefaultLat)
	assert.Equal(t, -0.09, cfg.DefaultLon)
	assert.Equal(t, 13, cfg.DefaultZoom)
	assert.Equal(t, 30*time.Minute, cfg.ShellIdleTimeout)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("GEOCODER_TIMEOUT", "3s")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/flatearth")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 3*time.Second, cfg.GeocoderTimeout)
	assert.Equal(t, "postgres", cfg.StoreDriver)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SEARCH_ZOOM=15\nHTTP_ADDR=:7070\n"), 0o600))
	t.Setenv("HTTP_ADDR", ":6060")
	t.Cleanup(func() { os.Unsetenv("SEARCH_ZOOM") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.SearchZoom)
	assert.Equal(t, ":6060", cfg.HTTPAddr, "the environment wins over the file")
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad driver", "STORE_DRIVER", "mongo"},
		{"postgres without dsn", "STORE_DRIVER", "postgres"},
		{"bad duration", "JWT_TTL", "forever"},
		{"bad number", "DEFAULT_ZOOM", "close"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
