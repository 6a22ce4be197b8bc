package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/securefiles/internal/flagx"
	"github.com/dmitrijs2005/securefiles/internal/timex"
	"gopkg.in/yaml.v3"
)

// JsonConfig is the on-disk form of Config, read from JSON or, for .yaml and
// .yml files, YAML. Absent fields keep the value already set on Config.
type JsonConfig struct {
	EndpointAddrHTTP          string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	DatabaseDSN               string         `json:"database_dsn" yaml:"database_dsn"`
	EncryptionSecret          string         `json:"encryption_secret" yaml:"encryption_secret"`
	EncryptionFallbackSecrets string         `json:"encryption_fallback_secrets" yaml:"encryption_fallback_secrets"`
	StorageProvider           string         `json:"storage_provider" yaml:"storage_provider"`
	StorageTimeout            timex.Duration `json:"storage_timeout" yaml:"storage_timeout"`
	S3RootUser                string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword            string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                  string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                  string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint            string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	GatewayUploadURL          string         `json:"gateway_upload_url" yaml:"gateway_upload_url"`
	GatewayURL                string         `json:"gateway_url" yaml:"gateway_url"`
	GatewayAPIKey             string         `json:"gateway_api_key" yaml:"gateway_api_key"`
	GatewayRetryMax           int            `json:"gateway_retry_max" yaml:"gateway_retry_max"`
	BadgerPath                string         `json:"badger_path" yaml:"badger_path"`
	JWTSecret                 string         `json:"jwt_secret" yaml:"jwt_secret"`
	LogFormat                 string         `json:"log_format" yaml:"log_format"`
	MaxUploadSize             int64          `json:"max_upload_size" yaml:"max_upload_size"`
}

// parseJson loads the file named by -c/-config (or --config), if any, into config.
// An unreadable file or invalid JSON panics: the process must not start
// with a half-applied configuration.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	switch strings.ToLower(filepath.Ext(jsonConfigFile)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(file, c)
	default:
		err = json.Unmarshal(file, c)
	}
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.EncryptionSecret, c.EncryptionSecret)
	setString(&config.EncryptionFallbackSecrets, c.EncryptionFallbackSecrets)
	setString(&config.StorageProvider, c.StorageProvider)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.GatewayUploadURL, c.GatewayUploadURL)
	setString(&config.GatewayURL, c.GatewayURL)
	setString(&config.GatewayAPIKey, c.GatewayAPIKey)
	setString(&config.BadgerPath, c.BadgerPath)
	setString(&config.JWTSecret, c.JWTSecret)
	setString(&config.LogFormat, c.LogFormat)

	if c.StorageTimeout.Duration > 0 {
		config.StorageTimeout = c.StorageTimeout.Duration
	}
	if c.GatewayRetryMax > 0 {
		config.GatewayRetryMax = c.GatewayRetryMax
	}
	if c.MaxUploadSize > 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
