package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                 "8000",
		Env:                  "development",
		SecretKey:            "secure-secret-at-least-32-chars-long",
		SessionTTLHours:      24,
		DBDriver:             "postgres",
		DBPassword:           "secure-password",
		DBSSLMode:            "require",
		EmailBackend:         "smtp",
		StorageBackend:       "local",
		RecaptchaSecret:      "captcha-secret",
		ImageMaxUploadSizeMB: 10,
		AdsPageSize:          2,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Valid development", func(_ *Config) {}, false},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Missing secret", func(c *Config) { c.SecretKey = "" }, true},
		{"Zero page size", func(c *Config) { c.AdsPageSize = 0 }, true},
		{"Unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"Unknown email backend", func(c *Config) { c.EmailBackend = "carrier-pigeon" }, true},
		{"S3 without credentials", func(c *Config) { c.StorageBackend = "s3" }, true},
		{"S3 with credentials", func(c *Config) {
			c.StorageBackend = "s3"
			c.S3Endpoint = "localhost:9000"
			c.S3Bucket = "media"
			c.S3AccessKeyID = "key"
			c.S3SecretAccessKey = "secret"
		}, false},
		{"Production default secret", func(c *Config) {
			c.Env = "production"
			c.SecretKey = defaultSecretKey
		}, true},
		{"Production short secret", func(c *Config) {
			c.Env = "production"
			c.SecretKey = "short"
		}, true},
		{"Production console mail", func(c *Config) {
			c.Env = "production"
			c.EmailBackend = "console"
		}, true},
		{"Production without captcha secret", func(c *Config) {
			c.Env = "prod"
			c.RecaptchaSecret = ""
		}, true},
		{"Production valid", func(c *Config) { c.Env = "production" }, false},
		{"Sqlite in production ignores db password", func(c *Config) {
			c.Env = "production"
			c.DBDriver = "sqlite"
			c.DBPassword = ""
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	defer viper.Reset()
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("ADS_PAGE_SIZE")
	defer os.Unsetenv("EMAIL_BACKEND")
	defer os.Unsetenv("SITE_HOST")

	os.Setenv("APP_ENV", "development")
	os.Setenv("ADS_PAGE_SIZE", "5")
	os.Setenv("EMAIL_BACKEND", "  CONSOLE ")
	os.Setenv("SITE_HOST", "http://board.example.com/")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, c.AdsPageSize)
	assert.Equal(t, "console", c.EmailBackend)
	assert.Equal(t, "http://board.example.com", c.SiteHost)
	assert.Equal(t, 0.5, c.RecaptchaThreshold)
	assert.Equal(t, "/media/", c.MediaURL)
}
