package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/tours/internal/flagx"
	"github.com/dmitrijs2005/tours/internal/timex"
)

// FileConfig is the on-disk shape of the configuration, shared by the JSON
// and TOML loaders. Durations use timex.Duration so both "10m" strings and
// integer nanoseconds are accepted. Only fields present in the file
// override earlier values.
type FileConfig struct {
	Env                         string         `json:"env" toml:"env"`
	HTTPAddr                    string         `json:"http_addr" toml:"http_addr"`
	HealthAddrGRPC              string         `json:"health_addr_grpc" toml:"health_addr_grpc"`
	HealthCheckInterval         timex.Duration `json:"health_check_interval" toml:"health_check_interval"`
	DatabaseDSN                 string         `json:"database_dsn" toml:"database_dsn"`
	SecretKey                   string         `json:"secret_key" toml:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration" toml:"access_token_validity_duration"`
	ResetTokenValidityDuration  timex.Duration `json:"reset_token_validity_duration" toml:"reset_token_validity_duration"`
	PasswordHashCost            int            `json:"password_hash_cost" toml:"password_hash_cost"`
	RequestTimeout              timex.Duration `json:"request_timeout" toml:"request_timeout"`
	ShutdownTimeout             timex.Duration `json:"shutdown_timeout" toml:"shutdown_timeout"`
	SMTPHost                    string         `json:"smtp_host" toml:"smtp_host"`
	SMTPPort                    int            `json:"smtp_port" toml:"smtp_port"`
	SMTPUser                    string         `json:"smtp_user" toml:"smtp_user"`
	SMTPPassword                string         `json:"smtp_password" toml:"smtp_password"`
	MailFrom                    string         `json:"mail_from" toml:"mail_from"`
	RedisAddr                   string         `json:"redis_addr" toml:"redis_addr"`
	RateLimitPerMinute          int            `json:"rate_limit_per_minute" toml:"rate_limit_per_minute"`
	AllowedOrigins              []string       `json:"allowed_origins" toml:"allowed_origins"`
	PublicBaseURL               string         `json:"public_base_url" toml:"public_base_url"`
	TrustedProxies              []string       `json:"trusted_proxies" toml:"trusted_proxies"`
	S3RootUser                  string         `json:"s3_root_user" toml:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password" toml:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket" toml:"s3_bucket"`
	S3Region                    string         `json:"s3_region" toml:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint" toml:"s3_base_endpoint"`
	UploadURLValidityDuration   timex.Duration `json:"upload_url_validity_duration" toml:"upload_url_validity_duration"`
}

// parseFile loads the file named by -c/-config, if any. The format is
// picked by extension: .toml uses TOML, anything else JSON. An unreadable
// or malformed file is a startup error and panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag(os.Args[1:])
	if path == "" {
		return
	}

	fc, err := readFile(path)
	if err != nil {
		panic(err)
	}
	fc.apply(config)
}

func readFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), fc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, fc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return fc, nil
}

func (fc *FileConfig) apply(config *Config) {
	overlay(&config.Env, fc.Env)
	overlay(&config.HTTPAddr, fc.HTTPAddr)
	overlay(&config.HealthAddrGRPC, fc.HealthAddrGRPC)
	overlay(&config.HealthCheckInterval, fc.HealthCheckInterval.Duration)
	overlay(&config.DatabaseDSN, fc.DatabaseDSN)
	overlay(&config.SecretKey, fc.SecretKey)
	overlay(&config.AccessTokenValidityDuration, fc.AccessTokenValidityDuration.Duration)
	overlay(&config.ResetTokenValidityDuration, fc.ResetTokenValidityDuration.Duration)
	overlay(&config.PasswordHashCost, fc.PasswordHashCost)
	overlay(&config.RequestTimeout, fc.RequestTimeout.Duration)
	overlay(&config.ShutdownTimeout, fc.ShutdownTimeout.Duration)
	overlay(&config.SMTPHost, fc.SMTPHost)
	overlay(&config.SMTPPort, fc.SMTPPort)
	overlay(&config.SMTPUser, fc.SMTPUser)
	overlay(&config.SMTPPassword, fc.SMTPPassword)
	overlay(&config.MailFrom, fc.MailFrom)
	overlay(&config.RedisAddr, fc.RedisAddr)
	overlay(&config.RateLimitPerMinute, fc.RateLimitPerMinute)
	if len(fc.AllowedOrigins) > 0 {
		config.AllowedOrigins = fc.AllowedOrigins
	}
	overlay(&config.PublicBaseURL, fc.PublicBaseURL)
	if len(fc.TrustedProxies) > 0 {
		config.TrustedProxies = fc.TrustedProxies
	}
	overlay(&config.S3RootUser, fc.S3RootUser)
	overlay(&config.S3RootPassword, fc.S3RootPassword)
	overlay(&config.S3Bucket, fc.S3Bucket)
	overlay(&config.S3Region, fc.S3Region)
	overlay(&config.S3BaseEndpoint, fc.S3BaseEndpoint)
	overlay(&config.UploadURLValidityDuration, fc.UploadURLValidityDuration.Duration)
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
