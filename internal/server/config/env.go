package config

import (
	"os"
	"strconv"
)

// parseEnv overlays values from environment variables that are set.
// Malformed numeric or duration values are ignored.
func parseEnv(c *Config) {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	str("HTTP_ADDR", &c.EndpointAddrHTTP)
	str("DATABASE_DSN", &c.DatabaseDSN)
	str("FILE_ENCRYPTION_SECRET", &c.EncryptionSecret)
	str("FILE_ENCRYPTION_SECRET_FALLBACKS", &c.EncryptionFallbackSecrets)
	str("STORAGE_PROVIDER", &c.StorageProvider)
	str("S3_ROOT_USER", &c.S3RootUser)
	str("S3_ROOT_PASSWORD", &c.S3RootPassword)
	str("S3_BUCKET", &c.S3Bucket)
	str("S3_REGION", &c.S3Region)
	str("S3_BASE_ENDPOINT", &c.S3BaseEndpoint)
	str("LIGHTHOUSE_UPLOAD_URL", &c.GatewayUploadURL)
	str("LIGHTHOUSE_GATEWAY_URL", &c.GatewayURL)
	str("LIGHTHOUSE_API_KEY", &c.GatewayAPIKey)
	str("BADGER_PATH", &c.BadgerPath)
	str("JWT_SECRET", &c.JWTSecret)
	str("LOG_FORMAT", &c.LogFormat)

	if v, ok := os.LookupEnv("STORAGE_TIMEOUT"); ok {
		if d, err := parseTimeout(v); err == nil {
			c.StorageTimeout = d
		}
	}
	if v, ok := os.LookupEnv("GATEWAY_RETRY_MAX"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.GatewayRetryMax = n
		}
	}
	if v, ok := os.LookupEnv("MAX_UPLOAD_SIZE"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxUploadSize = n
		}
	}
}
