// Package config loads lineserv configuration from environment variables
// and validates it before anything binds a port.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// HandlerKind names a protocol handler a service can run.
type HandlerKind string

const (
	HandlerEcho HandlerKind = "echo"
	HandlerFile HandlerKind = "file"
)

// DispatchMode represents how a server dispatches accepted connections.
type DispatchMode string

const (
	DispatchSerial     DispatchMode = "serial"
	DispatchConcurrent DispatchMode = "concurrent"
)

// StoreBackend represents where session history is kept.
type StoreBackend string

const (
	StoreOff    StoreBackend = "off"
	StoreMemory StoreBackend = "memory"
	StoreRedis  StoreBackend = "redis"
)

// Service is one configured listen endpoint bound to a handler kind.
type Service struct {
	Name HandlerKind
	Addr string
}

// Config holds all application configuration.
type Config struct {
	// Services
	Services []Service

	// File serving
	DocumentRoot string

	// Dispatch
	Mode        DispatchMode
	MaxSessions int64

	// Greeting
	GreetingFile string
	GreetingTTL  time.Duration

	// Session history
	StoreBackend   StoreBackend
	StoreRetention time.Duration
	StoreMaxLog    int64
	RedisAddr      string

	// Logging
	LogLevel string
	LogDir   string
}

// LoadFromEnv loads configuration from environment variables.
//
// Variables and defaults:
//   - SERVICES: comma-separated name=addr pairs ("echo=:7007")
//   - DOCUMENT_ROOT: base directory for file serving ("")
//   - MODE: serial | concurrent ("serial")
//   - MAX_SESSIONS: concurrent session bound, 0 for unbounded (0)
//   - GREETING_FILE: banner file for greeting lines ("")
//   - GREETING_TTL: how long a banner line is cached ("30s")
//   - STORE_BACKEND: off | memory | redis ("off")
//   - STORE_RETENTION: memory-store session retention ("1h")
//   - STORE_MAX_LOG: redis-store session log bound (1000)
//   - REDIS_ADDR: redis address ("localhost:6379")
//   - LOG_LEVEL: zerolog level name ("info")
//   - LOG_DIR: log file directory, empty for console logging ("")
//
// Returns:
//   - The validated configuration
//   - An error if SERVICES cannot be parsed or validation fails
func LoadFromEnv() (*Config, error) {
	services, err := parseServices(getEnv("SERVICES", "echo=:7007"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		// Services
		Services: services,

		// File serving
		DocumentRoot: getEnv("DOCUMENT_ROOT", ""),

		// Dispatch
		Mode:        DispatchMode(strings.ToLower(getEnv("MODE", "serial"))),
		MaxSessions: getEnvInt64("MAX_SESSIONS", 0),

		// Greeting
		GreetingFile: getEnv("GREETING_FILE", ""),
		GreetingTTL:  getEnvDuration("GREETING_TTL", 30*time.Second),

		// Session history
		StoreBackend:   StoreBackend(strings.ToLower(getEnv("STORE_BACKEND", "off"))),
		StoreRetention: getEnvDuration("STORE_RETENTION", time.Hour),
		StoreMaxLog:    getEnvInt64("STORE_MAX_LOG", 1000),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),

		// Logging
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogDir:   getEnv("LOG_DIR", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseServices parses the SERVICES value: comma-separated name=addr pairs,
// e.g. "echo=:7007,file=:7008".
func parseServices(value string) ([]Service, error) {
	var services []Service
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		name, addr, found := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		addr = strings.TrimSpace(addr)
		if !found || name == "" || addr == "" {
			return nil, fmt.Errorf("invalid SERVICES entry %q (expected name=addr)", pair)
		}

		services = append(services, Service{Name: HandlerKind(strings.ToLower(name)), Addr: addr})
	}

	return services, nil
}

// validate ensures configuration is coherent.
func (c *Config) validate() error {
	if len(c.Services) == 0 {
		return fmt.Errorf("SERVICES must configure at least one service")
	}

	validHandlers := []string{string(HandlerEcho), string(HandlerFile)}
	for _, svc := range c.Services {
		if !contains(validHandlers, string(svc.Name)) {
			return fmt.Errorf("unsupported service %q in SERVICES (supported: %s)",
				svc.Name, strings.Join(validHandlers, ", "))
		}

		if svc.Name == HandlerFile && c.DocumentRoot == "" {
			return fmt.Errorf("DOCUMENT_ROOT must be set when a file service is configured")
		}
	}

	validModes := []string{string(DispatchSerial), string(DispatchConcurrent)}
	if !contains(validModes, string(c.Mode)) {
		return fmt.Errorf("unsupported MODE: %s (supported: %s)",
			c.Mode, strings.Join(validModes, ", "))
	}

	if c.MaxSessions < 0 {
		return fmt.Errorf("MAX_SESSIONS must not be negative")
	}

	validBackends := []string{string(StoreOff), string(StoreMemory), string(StoreRedis)}
	if !contains(validBackends, string(c.StoreBackend)) {
		return fmt.Errorf("unsupported STORE_BACKEND: %s (supported: %s)",
			c.StoreBackend, strings.Join(validBackends, ", "))
	}

	if c.StoreBackend == StoreRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR must be set when using the redis store backend")
	}

	validLevels := []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}
	if !contains(validLevels, c.LogLevel) {
		return fmt.Errorf("unsupported LOG_LEVEL: %s (supported: %s)",
			c.LogLevel, strings.Join(validLevels, ", "))
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	durationValue, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return durationValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
