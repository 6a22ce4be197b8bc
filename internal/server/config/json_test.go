package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"endpoint_addr_http": "www.example:9000",
		"encryption_secret":  "json-secret",
		"storage_provider":   "badger",
		"storage_timeout":    "1m",
		"badger_path":        "/var/lib/blobs",
		"max_upload_size":    1024,
	})

	t.Run("overlays present fields only", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}

		var cfg Config
		cfg.LoadDefaults()
		parseJson(&cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "json-secret", cfg.EncryptionSecret)
		assert.Equal(t, ProviderBadger, cfg.StorageProvider)
		assert.Equal(t, time.Minute, cfg.StorageTimeout)
		assert.Equal(t, "/var/lib/blobs", cfg.BadgerPath)
		assert.Equal(t, int64(1024), cfg.MaxUploadSize)
		// untouched by the file
		assert.Equal(t, "securefiles", cfg.S3Bucket)
		assert.Equal(t, 3, cfg.GatewayRetryMax)
	})

	t.Run("no config flag", func(t *testing.T) {
		os.Args = []string{"testbin"}

		var cfg Config
		cfg.LoadDefaults()
		parseJson(&cfg)

		assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(t.TempDir(), "absent.json")}

		assert.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("invalid json panics", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
		os.Args = []string{"testbin", "--config", bad}

		assert.Panics(t, func() { parseJson(&Config{}) })
	})
}

func Test_parseJson_YAML(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "securefiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage_provider: gateway
storage_timeout: 20s
gateway_api_key: key-from-yaml
encryption_fallback_secrets: "a,b"
`), 0o600))
	os.Args = []string{"testbin", "-c", path}

	var cfg Config
	cfg.LoadDefaults()
	parseJson(&cfg)

	assert.Equal(t, ProviderGateway, cfg.StorageProvider)
	assert.Equal(t, 20*time.Second, cfg.StorageTimeout)
	assert.Equal(t, "key-from-yaml", cfg.GatewayAPIKey)
	assert.Equal(t, "a,b", cfg.EncryptionFallbackSecrets)
	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
}

func TestLoadConfig_YAMLThroughConfigAlias(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "securefiles.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage_provider: memory
storage_timeout: 1500ms
log_format: logrus
`), 0o600))
	os.Args = []string{"securefilectl", "reencrypt", "--dry-run", "--config", path, "-a", ":7001"}

	cfg := LoadConfig()

	assert.Equal(t, ProviderMemory, cfg.StorageProvider)
	assert.Equal(t, 1500*time.Millisecond, cfg.StorageTimeout, "flags do not reset the file's timeout")
	assert.Equal(t, "logrus", cfg.LogFormat)
	assert.Equal(t, ":7001", cfg.EndpointAddrHTTP)
}
