package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Cookie   CookieConfig
	Kafka    KafkaConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	APIPrefix             string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. URL wins over Addr when both are set.
type RedisConfig struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior. Format is "json" or "console".
type LoggerConfig struct {
	Level   string
	Format  string
	Service string
	Env     string
}

// AuthConfig defines token secrets and lifetimes.
type AuthConfig struct {
	AccessTokenSecret        string
	RefreshTokenSecret       string
	ActivationSecret         string
	ResetPasswordSecret      string
	AccessTokenTTLMinutes    int
	RefreshTokenTTLHours     int
	SessionLoginTTLSeconds   int
	SessionRefreshTTLSeconds int
	ActivationTTLMinutes     int
	ResetCodeTTLSeconds      int
	BcryptCost               int
}

// CookieConfig controls the token cookies.
type CookieConfig struct {
	Domain   string
	SameSite string
	Secure   bool
}

// KafkaConfig enables the session audit sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers      []string
	SessionTopic string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "diet-tracker"),
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "4000"),
			Version:               getEnv("APP_VERSION", "dev"),
			APIPrefix:             getEnv("HTTP_API_PREFIX", "/api"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Format:  getEnv("LOG_FORMAT", "json"),
			Service: getEnv("APP_NAME", "diet-tracker"),
			Env:     env,
		},
		Auth: AuthConfig{
			AccessTokenSecret:        getEnv("AUTH_ACCESS_TOKEN_SECRET", "dev-access-secret"),
			RefreshTokenSecret:       getEnv("AUTH_REFRESH_TOKEN_SECRET", "dev-refresh-secret"),
			ActivationSecret:         getEnv("AUTH_ACTIVATION_SECRET", "dev-activation-secret"),
			ResetPasswordSecret:      getEnv("AUTH_RESET_PASSWORD_SECRET", "dev-reset-secret"),
			AccessTokenTTLMinutes:    getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 24*60),
			RefreshTokenTTLHours:     getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_HOURS", 14*24),
			SessionLoginTTLSeconds:   getEnvAsInt("AUTH_SESSION_LOGIN_TTL_SECONDS", 3600),
			SessionRefreshTTLSeconds: getEnvAsInt("AUTH_SESSION_REFRESH_TTL_SECONDS", 7*24*3600),
			ActivationTTLMinutes:     getEnvAsInt("AUTH_ACTIVATION_TTL_MINUTES", 30),
			ResetCodeTTLSeconds:      getEnvAsInt("AUTH_RESET_CODE_TTL_SECONDS", 600),
			BcryptCost:               getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		Cookie: CookieConfig{
			Domain:   os.Getenv("COOKIE_DOMAIN"),
			SameSite: getEnv("COOKIE_SAME_SITE", "Lax"),
			Secure:   strings.EqualFold(env, "production"),
		},
		Kafka: KafkaConfig{
			Brokers:      getEnvAsList("KAFKA_BROKERS"),
			SessionTopic: getEnv("KAFKA_SESSION_TOPIC", "diet-tracker.sessions"),
		},
	}

	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects empty or shared token secrets.
func (a AuthConfig) Validate() error {
	secrets := map[string]string{
		"AUTH_ACCESS_TOKEN_SECRET":   a.AccessTokenSecret,
		"AUTH_REFRESH_TOKEN_SECRET":  a.RefreshTokenSecret,
		"AUTH_ACTIVATION_SECRET":     a.ActivationSecret,
		"AUTH_RESET_PASSWORD_SECRET": a.ResetPasswordSecret,
	}
	seen := make(map[string]string, len(secrets))
	for key, val := range secrets {
		if val == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
		if other, dup := seen[val]; dup {
			return errors.New(key + " and " + other + " must differ")
		}
		seen[val] = key
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// IsProduction reports whether the service runs with production defaults.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLHours) * time.Hour
}

func (a AuthConfig) SessionLoginTTL() time.Duration {
	return time.Duration(a.SessionLoginTTLSeconds) * time.Second
}

func (a AuthConfig) SessionRefreshTTL() time.Duration {
	return time.Duration(a.SessionRefreshTTLSeconds) * time.Second
}

func (a AuthConfig) ActivationTTL() time.Duration {
	return time.Duration(a.ActivationTTLMinutes) * time.Minute
}

func (a AuthConfig) ResetCodeTTL() time.Duration {
	return time.Duration(a.ResetCodeTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
