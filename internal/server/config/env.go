package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays settings from the process environment. A .env file in
// the working directory (or the given files) is loaded first; variables
// already present in the environment are never overwritten by it.
//
// Malformed numeric or duration values are ignored and the previous value
// is kept.
func parseEnv(config *Config, files ...string) {
	_ = godotenv.Load(files...)

	setString(&config.Env, "ENV")
	setString(&config.HTTPAddr, "HTTP_ADDR")
	setString(&config.HealthAddrGRPC, "HEALTH_ADDR")
	setDuration(&config.HealthCheckInterval, "HEALTH_CHECK_INTERVAL")
	setString(&config.DatabaseDSN, "DATABASE_URL")
	setString(&config.SecretKey, "JWT_SECRET")
	setDuration(&config.AccessTokenValidityDuration, "JWT_EXPIRES_IN")
	setDuration(&config.ResetTokenValidityDuration, "RESET_TOKEN_EXPIRES_IN")
	setInt(&config.PasswordHashCost, "PASSWORD_HASH_COST")
	setDuration(&config.RequestTimeout, "REQUEST_TIMEOUT")
	setDuration(&config.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
	setString(&config.SMTPHost, "SMTP_HOST")
	setInt(&config.SMTPPort, "SMTP_PORT")
	setString(&config.SMTPUser, "SMTP_USER")
	setString(&config.SMTPPassword, "SMTP_PASSWORD")
	setString(&config.MailFrom, "MAIL_FROM")
	setString(&config.RedisAddr, "REDIS_ADDR")
	setInt(&config.RateLimitPerMinute, "RATE_LIMIT_PER_MIN")
	if v, ok := os.LookupEnv("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		config.AllowedOrigins = splitList(v)
	}
	setString(&config.PublicBaseURL, "PUBLIC_BASE_URL")
	if v, ok := os.LookupEnv("TRUSTED_PROXIES"); ok && v != "" {
		config.TrustedProxies = splitList(v)
	}
	setString(&config.S3RootUser, "S3_ROOT_USER")
	setString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	setDuration(&config.UploadURLValidityDuration, "UPLOAD_URL_EXPIRES_IN")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			*dst = d
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
