// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultSecretKey = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port            string `mapstructure:"PORT"`
	Env             string `mapstructure:"APP_ENV"`
	SecretKey       string `mapstructure:"SECRET_KEY"`
	SessionCookie   string `mapstructure:"SESSION_COOKIE_NAME"`
	SessionTTLHours int    `mapstructure:"SESSION_TTL_HOURS"`
	AllowedOrigins  string `mapstructure:"ALLOWED_ORIGINS"`
	SiteHost        string `mapstructure:"SITE_HOST"`

	DBDriver      string `mapstructure:"DB_DRIVER"`
	DBHost        string `mapstructure:"DB_HOST"`
	DBPort        string `mapstructure:"DB_PORT"`
	DBUser        string `mapstructure:"DB_USER"`
	DBPassword    string `mapstructure:"DB_PASSWORD"`
	DBName        string `mapstructure:"DB_NAME"`
	DBSSLMode     string `mapstructure:"DB_SSLMODE"`
	DBSchemaMode  string `mapstructure:"DB_SCHEMA_MODE"`
	DBLogLevel    string `mapstructure:"DB_LOG_LEVEL"`
	DBSlowQueryMS int    `mapstructure:"DB_SLOW_QUERY_MS"`

	RedisURL string `mapstructure:"REDIS_URL"`

	EmailBackend     string `mapstructure:"EMAIL_BACKEND"`
	EmailHost        string `mapstructure:"EMAIL_HOST"`
	EmailPort        int    `mapstructure:"EMAIL_PORT"`
	EmailUser        string `mapstructure:"EMAIL_HOST_USER"`
	EmailPassword    string `mapstructure:"EMAIL_HOST_PASSWORD"`
	EmailUseTLS      bool   `mapstructure:"EMAIL_USE_TLS"`
	DefaultFromEmail string `mapstructure:"DEFAULT_FROM_EMAIL"`

	RecaptchaSecret    string  `mapstructure:"RECAPTCHA_SECRET_KEY"`
	RecaptchaThreshold float64 `mapstructure:"RECAPTCHA_SCORE_THRESHOLD"`
	RecaptchaVerifyURL string  `mapstructure:"RECAPTCHA_VERIFY_URL"`

	StorageBackend    string `mapstructure:"STORAGE_BACKEND"`
	MediaRoot         string `mapstructure:"MEDIA_ROOT"`
	MediaURL          string `mapstructure:"MEDIA_URL"`
	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3Bucket          string `mapstructure:"S3_BUCKET"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3UseSSL          bool   `mapstructure:"S3_USE_SSL"`

	ImageMaxUploadSizeMB int `mapstructure:"IMAGE_MAX_UPLOAD_MB"`
	AdsPageSize          int `mapstructure:"ADS_PAGE_SIZE"`

	RateLimitEnabled bool `mapstructure:"RATE_LIMIT_ENABLED"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	TracingEndpoint     string  `mapstructure:"TRACING_OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`

	DevBootstrapRoot bool   `mapstructure:"DEV_BOOTSTRAP_ROOT"`
	DevRootUsername  string `mapstructure:"DEV_ROOT_USERNAME"`
	DevRootEmail     string `mapstructure:"DEV_ROOT_EMAIL"`
	DevRootPassword  string `mapstructure:"DEV_ROOT_PASSWORD"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; env and defaults cover everything.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8000")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("SECRET_KEY", defaultSecretKey)
	viper.SetDefault("SESSION_COOKIE_NAME", "sessionid")
	viper.SetDefault("SESSION_TTL_HOURS", 24*14)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:8000,http://127.0.0.1:8000")
	viper.SetDefault("SITE_HOST", "http://127.0.0.1:8000")

	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "bboard")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "bulletin_board")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_LOG_LEVEL", "warn")
	viper.SetDefault("DB_SLOW_QUERY_MS", 200)

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("EMAIL_BACKEND", "console")
	viper.SetDefault("EMAIL_HOST", "smtp.gmail.com")
	viper.SetDefault("EMAIL_PORT", 587)
	viper.SetDefault("EMAIL_HOST_USER", "")
	viper.SetDefault("EMAIL_HOST_PASSWORD", "")
	viper.SetDefault("EMAIL_USE_TLS", true)
	viper.SetDefault("DEFAULT_FROM_EMAIL", "webmaster@localhost")

	viper.SetDefault("RECAPTCHA_SECRET_KEY", "")
	viper.SetDefault("RECAPTCHA_SCORE_THRESHOLD", 0.5)
	viper.SetDefault("RECAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify")

	viper.SetDefault("STORAGE_BACKEND", "local")
	viper.SetDefault("MEDIA_ROOT", "media")
	viper.SetDefault("MEDIA_URL", "/media/")
	viper.SetDefault("S3_ENDPOINT", "localhost:9000")
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("S3_BUCKET", "bboard-media")
	viper.SetDefault("S3_ACCESS_KEY_ID", "")
	viper.SetDefault("S3_SECRET_ACCESS_KEY", "")
	viper.SetDefault("S3_USE_SSL", false)

	viper.SetDefault("IMAGE_MAX_UPLOAD_MB", 10)
	viper.SetDefault("ADS_PAGE_SIZE", 2)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("TRACING_OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	viper.SetDefault("DEV_BOOTSTRAP_ROOT", false)
	viper.SetDefault("DEV_ROOT_USERNAME", "admin")
	viper.SetDefault("DEV_ROOT_EMAIL", "admin@bboard.local")
	viper.SetDefault("DEV_ROOT_PASSWORD", "")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBLogLevel = strings.ToLower(strings.TrimSpace(c.DBLogLevel))
	c.EmailBackend = strings.ToLower(strings.TrimSpace(c.EmailBackend))
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	c.SiteHost = strings.TrimRight(strings.TrimSpace(c.SiteHost), "/")
	if c.MediaURL != "" && !strings.HasSuffix(c.MediaURL, "/") {
		c.MediaURL += "/"
	}
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY is required")
	}
	if c.AdsPageSize <= 0 {
		return errors.New("ADS_PAGE_SIZE must be positive")
	}
	if c.ImageMaxUploadSizeMB <= 0 {
		return errors.New("IMAGE_MAX_UPLOAD_MB must be positive")
	}
	if c.SessionTTLHours <= 0 {
		return errors.New("SESSION_TTL_HOURS must be positive")
	}

	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.EmailBackend {
	case "smtp", "console":
	default:
		return fmt.Errorf("unsupported EMAIL_BACKEND %q", c.EmailBackend)
	}
	switch c.StorageBackend {
	case "local", "s3":
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.StorageBackend == "s3" && (c.S3Bucket == "" || c.S3Endpoint == "" || c.S3AccessKeyID == "" || c.S3SecretAccessKey == "") {
		return errors.New("S3_ENDPOINT, S3_BUCKET, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required for STORAGE_BACKEND=s3")
	}

	// Strict checks for production
	if c.IsProduction() {
		if c.SecretKey == defaultSecretKey {
			return errors.New("SECRET_KEY must be changed from the default value in production")
		}
		if len(c.SecretKey) < 32 {
			return errors.New("SECRET_KEY must be at least 32 characters in production")
		}
		if c.DBDriver == "postgres" && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.EmailBackend != "smtp" {
			return errors.New("EMAIL_BACKEND must be smtp in production")
		}
		if c.RecaptchaSecret == "" {
			return errors.New("RECAPTCHA_SECRET_KEY is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
	} else if len(c.SecretKey) < 32 {
		log.Println("WARNING: SECRET_KEY is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
