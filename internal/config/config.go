package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Tree      TreeConfig
	Game      GameConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Secure      bool   // Send HSTS
	Environment string // "development", "production", "test"
	LogLevel    string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	// Skip disables token verification and authenticates every request as DevUID.
	Skip   bool
	DevUID string
	// IdentityCacheTTL bounds how long uid lookups stay in Redis.
	IdentityCacheTTL time.Duration
}

type TreeConfig struct {
	Backend           string // "redis" or "memory"
	KeyPrefix         string
	EventsChannel     string
	ConditionalWrites bool
}

type GameConfig struct {
	InviteTTL time.Duration
}

type RateLimitConfig struct {
	FriendRequests int
	Window         time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads configuration from the environment. A .env file in the working
// directory, when present, is loaded first without overriding variables that
// are already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvInt("SERVER_PORT", 8080),
			Secure:      getEnvBool("SERVER_SECURE", false),
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "drawmaster"),
			Password: getEnv("DB_PASSWORD", "drawmaster"),
			DBName:   getEnv("DB_NAME", "drawmaster"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:        getEnv("AUTH_JWT_SECRET", ""),
			Issuer:           getEnv("AUTH_ISSUER", "drawmaster"),
			Skip:             getEnvBool("AUTH_SKIP", false),
			DevUID:           getEnv("AUTH_DEV_UID", "dev-uid"),
			IdentityCacheTTL: getEnvDuration("IDENTITY_CACHE_TTL", 5*time.Minute),
		},
		Tree: TreeConfig{
			Backend:           getEnv("TREE_BACKEND", "redis"),
			KeyPrefix:         getEnv("TREE_KEY_PREFIX", "tree:"),
			EventsChannel:     getEnv("TREE_EVENTS_CHANNEL", "tree:events"),
			ConditionalWrites: getEnvBool("TREE_CONDITIONAL_WRITES", false),
		},
		Game: GameConfig{
			InviteTTL: getEnvDuration("INVITE_TTL", 60*time.Second),
		},
		RateLimit: RateLimitConfig{
			FriendRequests: getEnvInt("FRIEND_REQUEST_RATE_LIMIT", 30),
			Window:         getEnvDuration("FRIEND_REQUEST_RATE_WINDOW", time.Hour),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if !c.Auth.Skip && c.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required unless AUTH_SKIP is set")
	}
	if c.Auth.Skip && c.Server.Environment == "production" {
		return errors.New("AUTH_SKIP cannot be used in production")
	}
	switch c.Tree.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown TREE_BACKEND %q", c.Tree.Backend)
	}
	if c.Game.InviteTTL <= 0 {
		return errors.New("INVITE_TTL must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
