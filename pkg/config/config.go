package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// minSigningKeyLength is the shortest HS256 key accepted at startup (256 bits).
const minSigningKeyLength = 32

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Session  SessionConfig
	OTP      OTPConfig
	Crypto   CryptoConfig
	Cache    CacheConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the signing parameters for access and refresh tokens.
type JWTConfig struct {
	Key                   string
	Issuer                string
	Audience              string
	ExpirationMinutes     int
	RefreshExpirationDays int
	SilentRefresh         bool
}

// AccessTTL returns the access token lifetime.
func (c JWTConfig) AccessTTL() time.Duration {
	return time.Duration(c.ExpirationMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (c JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshExpirationDays) * 24 * time.Hour
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SessionConfig tunes the activity tracker and its background writer.
type SessionConfig struct {
	Enabled      bool
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
	TTL          time.Duration
}

// OTPConfig controls one-time login codes.
type OTPConfig struct {
	TTL         time.Duration
	Length      int
	MaxAttempts int
}

// CacheConfig controls the Redis read-through cache for catalogue lookups.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// CryptoConfig carries keys for field-level encryption of personal data.
type CryptoConfig struct {
	FieldKey string
	IndexKey string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Key:                   v.GetString("JWT_KEY"),
		Issuer:                v.GetString("JWT_ISSUER"),
		Audience:              v.GetString("JWT_AUDIENCE"),
		ExpirationMinutes:     positiveOr(v.GetInt("JWT_EXPIRATION_MINUTES"), 60),
		RefreshExpirationDays: positiveOr(v.GetInt("REFRESH_TOKEN_EXPIRATION_DAYS"), 7),
		SilentRefresh:         v.GetBool("JWT_SILENT_REFRESH"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Session = SessionConfig{
		Enabled:      v.GetBool("SESSION_TRACKING_ENABLED"),
		Workers:      positiveOr(v.GetInt("SESSION_WORKERS"), 2),
		QueueSize:    positiveOr(v.GetInt("SESSION_QUEUE_SIZE"), 256),
		WriteTimeout: parseDuration(v.GetString("SESSION_WRITE_TIMEOUT"), 2*time.Second),
		TTL:          parseDuration(v.GetString("SESSION_TTL"), 30*time.Minute),
	}

	cfg.OTP = OTPConfig{
		TTL:         parseDuration(v.GetString("OTP_TTL"), 5*time.Minute),
		Length:      positiveOr(v.GetInt("OTP_LENGTH"), 6),
		MaxAttempts: positiveOr(v.GetInt("OTP_MAX_ATTEMPTS"), 5),
	}

	cfg.Crypto = CryptoConfig{
		FieldKey: v.GetString("FIELD_ENCRYPTION_KEY"),
		IndexKey: v.GetString("FIELD_INDEX_KEY"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 10*time.Minute),
	}

	return cfg, nil
}

// Validate reports configuration that makes token issuance impossible.
func (c *Config) Validate() error {
	if len(c.JWT.Key) < minSigningKeyLength {
		return fmt.Errorf("JWT_KEY must be at least %d characters", minSigningKeyLength)
	}
	if c.JWT.Issuer == "" {
		return errors.New("JWT_ISSUER is required")
	}
	if c.JWT.Audience == "" {
		return errors.New("JWT_AUDIENCE is required")
	}
	if c.Crypto.FieldKey == "" || c.Crypto.IndexKey == "" {
		return errors.New("FIELD_ENCRYPTION_KEY and FIELD_INDEX_KEY are required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "medichat")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_KEY", "")
	v.SetDefault("JWT_ISSUER", "medichat-api")
	v.SetDefault("JWT_AUDIENCE", "medichat-clients")
	v.SetDefault("JWT_EXPIRATION_MINUTES", 60)
	v.SetDefault("REFRESH_TOKEN_EXPIRATION_DAYS", 7)
	v.SetDefault("JWT_SILENT_REFRESH", false)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SESSION_TRACKING_ENABLED", true)
	v.SetDefault("SESSION_WORKERS", 2)
	v.SetDefault("SESSION_QUEUE_SIZE", 256)
	v.SetDefault("SESSION_WRITE_TIMEOUT", "2s")
	v.SetDefault("SESSION_TTL", "30m")

	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("OTP_LENGTH", 6)
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)

	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_TTL", "10m")

	v.SetDefault("FIELD_ENCRYPTION_KEY", "")
	v.SetDefault("FIELD_INDEX_KEY", "")
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
