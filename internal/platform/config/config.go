// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEnvFiles are loaded, when present, before the environment is read.
// .env.local comes first so its values win over .env; variables already set
// in the process environment are never overridden.
var DefaultEnvFiles = []string{".env.local", ".env"}

// Config holds all configuration for the service.
type Config struct {
	App    AppConfig
	Server ServerConfig
	CORS   CORSConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name     string
	Version  string
	Env      string
	LogLevel string
}

// IsProduction reports whether the app runs in production mode.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production" || a.Env == "prod"
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int64
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// Default returns the configuration used when no variables are set.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:     "Hello World API",
			Env:      "development",
			LogLevel: "info",
		},
		Server: ServerConfig{
			Port:              8080,
			ReadTimeout:       5 * time.Second,
			ReadHeaderTimeout: 2 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxHeaderBytes:    64 << 10,
			MaxBodyBytes:      1 << 20,
		},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// Load reads configuration from the environment after loading DefaultEnvFiles.
func Load() (*Config, error) {
	if err := LoadEnvFiles(DefaultEnvFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}
	return FromEnv()
}

// LoadEnvFiles loads the given dotenv files in order; missing files are skipped.
// Each file is loaded on its own, so one unreadable or malformed file does not
// keep the others from applying. The returned error names every file that failed.
func LoadEnvFiles(files ...string) error {
	var errs []error
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f, err))
		}
	}
	return errors.Join(errs...)
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := Default()

	cfg.App.Name = getEnvOrDefault("APP_NAME", cfg.App.Name)
	cfg.App.Version = os.Getenv("APP_VERSION")
	cfg.App.Env = getEnvOrDefault("APP_ENV", cfg.App.Env)
	cfg.App.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.App.LogLevel)

	cfg.Server.Host = os.Getenv("HOST")

	port, err := getEnvAsInt("PORT", cfg.Server.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d out of range", port)
	}
	cfg.Server.Port = port

	shutdown, err := getEnvAsDuration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	if shutdown <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT: must be positive")
	}
	cfg.Server.ShutdownTimeout = shutdown

	if origins := splitList(os.Getenv("CORS_ALLOWED_ORIGINS")); len(origins) > 0 {
		cfg.CORS.AllowedOrigins = origins
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(valueStr)
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(valueStr)
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
