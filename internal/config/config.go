// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported database backends
const (
	DBTypeMongo  = "mongo"
	DBTypeMemory = "memory" // in-process store for local development and tests
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	MetricsEnabled bool
	RequestTimeout time.Duration // how long a handler waits on an actor
	WorkerPoolSize int           // actors per routed pool
	MaxImageSize   int64         // profile image upload limit in bytes
}

// DatabaseConfig holds database configuration settings
type DatabaseConfig struct {
	Type           string
	URI            string
	Name           string
	ConnectTimeout time.Duration
}

// AuthConfig holds the identity token settings. An empty secret disables
// token checks.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// Config holds the complete application configuration
type Config struct {
	Server         *ServerConfig
	Database       *DatabaseConfig
	Auth           *AuthConfig
	AllowedOrigins []string
	Debug          bool
}

// DefaultConfig provides default server settings
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8080,
		Host:           "0.0.0.0",
		MetricsEnabled: true,
		RequestTimeout: 5 * time.Second,
		WorkerPoolSize: 8,
		MaxImageSize:   2 * 1024 * 1024,
	}
}

// DefaultDatabaseConfig provides default database settings
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Type:           DBTypeMongo,
		URI:            "mongodb://localhost:27017",
		Name:           "gator_overflow",
		ConnectTimeout: 10 * time.Second,
	}
}

func setDefaults(v *viper.Viper) {
	server := DefaultConfig()
	db := DefaultDatabaseConfig()

	v.SetDefault("HOST", server.Host)
	v.SetDefault("PORT", server.Port)
	v.SetDefault("METRICS_ENABLED", server.MetricsEnabled)
	v.SetDefault("REQUEST_TIMEOUT", server.RequestTimeout)
	v.SetDefault("WORKER_POOL_SIZE", server.WorkerPoolSize)
	v.SetDefault("MAX_IMAGE_SIZE", server.MaxImageSize)

	v.SetDefault("DB_TYPE", db.Type)
	v.SetDefault("MONGODB_URI", db.URI)
	v.SetDefault("MONGODB_DATABASE", db.Name)
	v.SetDefault("DB_CONNECT_TIMEOUT", db.ConnectTimeout)

	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("DEBUG", false)
}

// LoadConfig loads configuration from .env, an optional app.yaml and the
// environment, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	// Try to load .env file from multiple possible locations
	envLocations := []string{
		".env",          // Current directory
		"../../.env",    // Project root when running from cmd/engine
		"../../../.env", // Even higher directory
		filepath.Join(os.Getenv("GOPATH"), "src/gator-overflow/.env"),
	}

	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			break
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read app.yaml: %w", err)
		}
	}
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	serverConfig := &ServerConfig{
		Port:           v.GetInt("PORT"),
		Host:           v.GetString("HOST"),
		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		WorkerPoolSize: v.GetInt("WORKER_POOL_SIZE"),
		MaxImageSize:   v.GetInt64("MAX_IMAGE_SIZE"),
	}
	if serverConfig.Port <= 0 {
		return nil, fmt.Errorf("PORT must be positive, got %d", serverConfig.Port)
	}
	if serverConfig.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if serverConfig.WorkerPoolSize <= 0 {
		serverConfig.WorkerPoolSize = DefaultConfig().WorkerPoolSize
	}

	dbConfig := &DatabaseConfig{
		Type:           strings.ToLower(v.GetString("DB_TYPE")),
		URI:            v.GetString("MONGODB_URI"),
		Name:           v.GetString("MONGODB_DATABASE"),
		ConnectTimeout: v.GetDuration("DB_CONNECT_TIMEOUT"),
	}

	switch dbConfig.Type {
	case DBTypeMongo:
		if dbConfig.URI == "" {
			return nil, fmt.Errorf("MONGODB_URI is required when DB_TYPE is %s", DBTypeMongo)
		}
		if dbConfig.Name == "" {
			return nil, fmt.Errorf("MONGODB_DATABASE is required when DB_TYPE is %s", DBTypeMongo)
		}
	case DBTypeMemory:
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", dbConfig.Type)
	}

	return &Config{
		Server:   serverConfig,
		Database: dbConfig,
		Auth: &AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			Issuer:    v.GetString("JWT_ISSUER"),
		},
		AllowedOrigins: splitOrigins(v.GetString("ALLOWED_ORIGINS")),
		Debug:          v.GetBool("DEBUG"),
	}, nil
}

// Address returns the host:port the HTTP server listens on.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// OperationTimeout bounds one store call inside an actor. It is kept below
// RequestTimeout so an actor gives up and replies before the handler stops
// waiting for it.
func (c *ServerConfig) OperationTimeout() time.Duration {
	return c.RequestTimeout * 4 / 5
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
