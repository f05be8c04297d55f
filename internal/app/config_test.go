package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://backend.example.com/api/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "https://backend.example.com/api", cfg.BackendURL)
	require.Equal(t, 24*time.Hour, cfg.ImportSessionTTL)
	require.Equal(t, int64(10<<20), cfg.ImportMaxUploadBytes)
	require.Equal(t, 5*time.Minute, cfg.ReferenceCacheTTL)
	require.Equal(t, 5.0, cfg.BackendRateLimit)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresBackendURL(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsZeroUploadLimit(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend")
	t.Setenv("IMPORT_MAX_UPLOAD_BYTES", "0")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestRedisOptionsShareServer(t *testing.T) {
	cfg := &Config{RedisAddr: "redis:6379", RedisPassword: "pw", RedisDB: 2}
	require.Equal(t, "redis:6379", cfg.Redis().Addr)
	require.Equal(t, 2, cfg.Redis().DB)
	opt := cfg.AsynqRedis()
	require.Equal(t, "redis:6379", opt.Addr)
	require.Equal(t, "pw", opt.Password)
	require.Equal(t, 2, opt.DB)
}
