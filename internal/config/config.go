// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	Port           string `mapstructure:"PORT"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`

	DBMaxOpenConns                int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns                int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes      int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode                  string `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDestructive bool   `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`
	Env            string `mapstructure:"APP_ENV"`
	SeedDemo       bool   `mapstructure:"SEED_DEMO"`

	// Object storage
	StorageDir         string `mapstructure:"STORAGE_DIR"`
	StoragePublicURL   string `mapstructure:"STORAGE_PUBLIC_URL"`
	StorageMaxUploadMB int    `mapstructure:"STORAGE_MAX_UPLOAD_MB"`

	// Session and container behaviour
	SessionTTL          time.Duration `mapstructure:"SESSION_TTL"`
	PasswordHashCost    int           `mapstructure:"PASSWORD_HASH_COST"`
	WorkspaceIdleTTL    time.Duration `mapstructure:"WORKSPACE_IDLE_TTL"`
	FeedLimit           int           `mapstructure:"FEED_LIMIT"`
	AssistantReplyDelay time.Duration `mapstructure:"ASSISTANT_REPLY_DELAY"`
	ReportDelay         time.Duration `mapstructure:"ASSISTANT_REPORT_DELAY"`
	GeolocationTimeout  time.Duration `mapstructure:"GEOLOCATION_TIMEOUT"`
	GeolocationMaxAge   time.Duration `mapstructure:"GEOLOCATION_MAX_AGE"`

	// Map widget
	MapAccessToken string `mapstructure:"MAP_ACCESS_TOKEN"`

	// Tracing
	TracingEnabled  bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampler  float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
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

	// The base config file is optional.
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
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "inkd")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")
	viper.SetDefault("FEATURE_FLAGS", "assistant=on,bookings=on,uploads=on")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("SEED_DEMO", false)

	viper.SetDefault("STORAGE_DIR", "/tmp/inkd/storage")
	viper.SetDefault("STORAGE_PUBLIC_URL", "http://localhost:8375/storage")
	viper.SetDefault("STORAGE_MAX_UPLOAD_MB", 10)

	viper.SetDefault("SESSION_TTL", 7*24*time.Hour)
	viper.SetDefault("PASSWORD_HASH_COST", 10)
	viper.SetDefault("WORKSPACE_IDLE_TTL", 30*time.Minute)
	viper.SetDefault("FEED_LIMIT", 50)
	viper.SetDefault("ASSISTANT_REPLY_DELAY", time.Second)
	viper.SetDefault("ASSISTANT_REPORT_DELAY", 3*time.Second)
	viper.SetDefault("GEOLOCATION_TIMEOUT", 10*time.Second)
	viper.SetDefault("GEOLOCATION_MAX_AGE", 10*time.Minute)

	viper.SetDefault("MAP_ACCESS_TOKEN", "")

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.StorageMaxUploadMB < 0 {
		return errors.New("STORAGE_MAX_UPLOAD_MB must not be negative")
	}
	if c.PasswordHashCost != 0 && (c.PasswordHashCost < 4 || c.PasswordHashCost > 31) {
		return errors.New("PASSWORD_HASH_COST must be between 4 and 31")
	}
	if c.FeedLimit < 0 {
		return errors.New("FEED_LIMIT must not be negative")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.SeedDemo {
			return errors.New("SEED_DEMO must be disabled in production")
		}
		if c.MapAccessToken == "" {
			log.Println("WARNING: MAP_ACCESS_TOKEN is empty in production. The local artist map will not render.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
