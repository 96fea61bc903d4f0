package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("DATABASE_URL", "mongodb://mongo:27017/tours")
	t.Setenv("JWT_EXPIRES_IN", "2h")
	t.Setenv("PASSWORD_HASH_COST", "11")
	t.Setenv("SMTP_HOST", "smtp.mailtrap.io")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RATE_LIMIT_PER_MIN", "not-a-number")
	t.Setenv("PUBLIC_BASE_URL", "https://tours.example")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10")

	c := &Config{}
	c.LoadDefaults()
	parseEnv(c, filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "prod", c.Env)
	assert.True(t, c.IsProduction())
	assert.Equal(t, "mongodb://mongo:27017/tours", c.DatabaseDSN)
	assert.Equal(t, 2*time.Hour, c.AccessTokenValidityDuration)
	assert.Equal(t, 11, c.PasswordHashCost)
	assert.Equal(t, "smtp.mailtrap.io", c.SMTPHost)
	assert.Equal(t, 2525, c.SMTPPort)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.Equal(t, 20, c.RateLimitPerMinute, "malformed value keeps the default")
	assert.Equal(t, "https://tours.example", c.PublicBaseURL)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.10"}, c.TrustedProxies)
}

func TestParseEnv_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MAIL_FROM=tours@example.com\nS3_BUCKET=from-dotenv\n"), 0o600))

	// already exported variables win over the file
	t.Setenv("S3_BUCKET", "from-process")
	t.Cleanup(func() { _ = os.Unsetenv("MAIL_FROM") })

	c := &Config{}
	c.LoadDefaults()
	parseEnv(c, path)

	assert.Equal(t, "tours@example.com", c.MailFrom)
	assert.Equal(t, "from-process", c.S3Bucket)
}
