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
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "sf_session", cfg.Session.CookieName)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "custom.toml")
	content := `
[api]
base_url = "http://shop.internal/api/"
request_timeout = "3s"

[http]
port = "9090"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("STOREFRONT_HTTP_PORT", "7070")
	t.Setenv("STOREFRONT_APP_ENV", "production")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://shop.internal/api", cfg.API.BaseURL, "trailing slash is trimmed")
	assert.Equal(t, 3*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, "7070", cfg.HTTP.Port, "env wins over file")
	assert.True(t, cfg.IsProduction())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("does-not-exist.toml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		API:     APIConfig{BaseURL: "http://x", RequestTimeout: time.Second},
		HTTP:    HTTPConfig{Port: "80"},
		Session: SessionConfig{IdleTTL: time.Minute},
	}
	require.NoError(t, cfg.Validate())

	cfg.API.RequestTimeout = 0
	assert.ErrorContains(t, cfg.Validate(), "request_timeout")
}
