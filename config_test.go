package retdec

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "retdec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigEnvParsing(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETDEC_API_KEY", "env-key")
	t.Setenv("RETDEC_API_URL", "http://localhost:8000/service/api")
	t.Setenv("RETDEC_TIMEOUT", "90s")
	t.Setenv("RETDEC_WAIT_INTERVAL", "2")
	t.Setenv("RETDEC_DEBUG", "true")
	t.Setenv("RETDEC_PROXY", "http://localhost:8080")
	t.Setenv("RETDEC_EXTRA_HEADERS", "X-Test=one;X-Another:two")
	t.Setenv("RETDEC_REQUEST_ID", "req-abc")
	t.Setenv("RETDEC_REQUEST_ID_HEADER", "X-Custom-Request-ID")
	t.Setenv("RETDEC_AUTO_REQUEST_ID", "false")
	t.Setenv("RETDEC_MAX_IDLE_CONNS", "7")

	cfg, err := LoadConfig("", "")
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "http://localhost:8000/service/api", cfg.APIURL)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, 2*time.Second, cfg.WaitInterval)
	assert.True(t, cfg.Debug)
	require.NotNil(t, cfg.ProxyURL)
	assert.Equal(t, "http://localhost:8080", cfg.ProxyURL.String())
	assert.Equal(t, "one", cfg.ExtraHeaders.Get("X-Test"))
	assert.Equal(t, "two", cfg.ExtraHeaders.Get("X-Another"))
	assert.Equal(t, "req-abc", cfg.DefaultRequestID)
	assert.Equal(t, "X-Custom-Request-ID", cfg.RequestIDHeader)
	assert.False(t, cfg.AutoRequestID)
	assert.Equal(t, 7, cfg.MaxIdleConns)
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("KEY", "")
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Equal(t, defaultWaitInterval, cfg.WaitInterval)
	assert.False(t, cfg.Debug)
	assert.True(t, cfg.AutoRequestID)
	assert.Equal(t, defaultRequestIDHeader, cfg.RequestIDHeader)
	assert.Equal(t, []string{"Authorization", "X-Request-ID"}, cfg.RedactHeaders)
}

func TestLoadConfigMissingAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig("", "")

	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoadConfigParamsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETDEC_API_KEY", "env-key")
	t.Setenv("RETDEC_API_URL", "http://env/api")
	t.Setenv("RETDEC_TIMEOUT", "90")
	t.Setenv("RETDEC_DEBUG", "true")

	debug := false
	cfg, err := LoadConfigWithParams(ConfigParams{
		APIKey:         "param-key",
		APIURL:         "http://param/api",
		TimeoutSeconds: 1.5,
		WaitInterval:   250 * time.Millisecond,
		Debug:          &debug,
	})
	require.NoError(t, err)

	assert.Equal(t, "param-key", cfg.APIKey)
	assert.Equal(t, "http://param/api", cfg.APIURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.WaitInterval)
	assert.False(t, cfg.Debug)
}

func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
api_key: file-key
api_url: http://file/api
timeout: 30s
wait_interval: 3
debug: true
proxy: http://proxy.local:3128
extra_headers:
  X-Team: reversing
`)

	cfg, err := LoadConfigWithParams(ConfigParams{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, "http://file/api", cfg.APIURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3*time.Second, cfg.WaitInterval)
	assert.True(t, cfg.Debug)
	require.NotNil(t, cfg.ProxyURL)
	assert.Equal(t, "proxy.local:3128", cfg.ProxyURL.Host)
	assert.Equal(t, "reversing", cfg.ExtraHeaders.Get("X-Team"))
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "api_key: file-key\ntimeout: 30s\n")
	t.Setenv("RETDEC_CONFIG", path)
	t.Setenv("RETDEC_API_KEY", "env-key")

	cfg, err := LoadConfig("", "")
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestLoadConfigFileErrors(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfigWithParams(ConfigParams{APIKey: "KEY", ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")

	path := writeConfigFile(t, "api_key: [unterminated\n")
	_, err = LoadConfigWithParams(ConfigParams{APIKey: "KEY", ConfigFile: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoadConfigRejectsInvalidEnv(t *testing.T) {
	tests := map[string]string{
		"RETDEC_TIMEOUT":        "soon",
		"RETDEC_WAIT_INTERVAL":  "-1",
		"RETDEC_DEBUG":          "maybe",
		"RETDEC_EXTRA_HEADERS":  "novalue",
		"RETDEC_MAX_IDLE_CONNS": "many",
	}

	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(name, value)

			_, err := LoadConfig("KEY", "")
			assert.Error(t, err)
		})
	}
}

func TestParseHeadersEnv(t *testing.T) {
	headers, err := parseHeadersEnv("A=1, B:2\nC=3")
	require.NoError(t, err)

	assert.Equal(t, "1", headers.Get("A"))
	assert.Equal(t, "2", headers.Get("B"))
	assert.Equal(t, "3", headers.Get("C"))
}
