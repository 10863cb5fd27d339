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
	t.Setenv("API_BASE_URL", "http://localhost:4000/api/v1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, StoreSQLite, cfg.Session.Store)
	assert.Equal(t, 720*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Session.RefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 1, cfg.API.MaxRetries)
	assert.False(t, cfg.Mail.Enabled())
	assert.Empty(t, cfg.Tracing.Endpoint)
	assert.Equal(t, "bookworm-web", cfg.Tracing.ServiceName)
}

func TestLoad_Tracing(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:4000/api/v1")
	t.Setenv("OTEL_ENDPOINT", "http://collector:4318")
	t.Setenv("OTEL_SAMPLE_RATIO", "0.1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://collector:4318", cfg.Tracing.Endpoint)
	assert.InDelta(t, 0.1, cfg.Tracing.SampleRatio, 1e-9)
}

func TestLoad_MissingBaseURL(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	_ = os.Unsetenv("API_BASE_URL")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			API:     API{BaseURL: "https://api.example.com"},
			Session: Session{Store: StoreSQLite},
		}
	}

	t.Run("ok", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("relative base url", func(t *testing.T) {
		cfg := valid()
		cfg.API.BaseURL = "/api"
		assert.ErrorIs(t, cfg.Validate(), ErrBadBaseURL)
	})

	t.Run("unknown store", func(t *testing.T) {
		cfg := valid()
		cfg.Session.Store = "memcached"
		assert.ErrorIs(t, cfg.Validate(), ErrUnknownStore)
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		cfg := valid()
		cfg.Session.Store = StorePostgres
		assert.ErrorIs(t, cfg.Validate(), ErrMissingDSN)

		cfg.Postgres.DSN = "postgres://localhost/bookworm"
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadEnvFiles_DoesNotOverrideExistingEnv(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, ".env")

	if err := os.WriteFile(p, []byte("API_BASE_URL=http://from-file\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Setenv("API_BASE_URL", "http://from-env")

	cwd, _ := os.Getwd()
	_ = os.Chdir(tmp)
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	LoadEnvFiles()

	if got := os.Getenv("API_BASE_URL"); got != "http://from-env" {
		t.Fatalf("expected existing env to win, got %q", got)
	}
}
