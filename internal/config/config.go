package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hazardwatch/go-hazard-zones/internal/zone"
)

type Config struct {
	Server  ServerConfig
	Zones   ZonesConfig
	Refresh RefreshConfig
	Client  ClientConfig
	DB      DatabaseConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

// ZonesConfig is the single source of truth for zone thresholds. Only the
// critical radius is configurable; the warning radius is derived from it.
type ZonesConfig struct {
	CriticalRadiusM float64
	SearchRadiusM   float64
}

type RefreshConfig struct {
	Period       time.Duration
	WorkerCount  int
	WorkerBuffer int
}

type ClientConfig struct {
	ServerURL       string
	UserID          string
	DebounceWindow  time.Duration
	RegistryRefresh time.Duration
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Zones: ZonesConfig{
			CriticalRadiusM: getEnvFloat("CRITICAL_RADIUS_M", 200),
			SearchRadiusM:   getEnvFloat("SEARCH_RADIUS_M", 6000),
		},
		Refresh: RefreshConfig{
			Period:       getEnvDuration("REFRESH_PERIOD", 20*time.Hour),
			WorkerCount:  getEnvInt("WORKER_COUNT", 2),
			WorkerBuffer: getEnvInt("WORKER_BUFFER_SIZE", 100),
		},
		Client: ClientConfig{
			ServerURL:       getEnv("SERVER_URL", "http://localhost:8080"),
			UserID:          getEnv("USER_ID", ""),
			DebounceWindow:  getEnvDuration("DEBOUNCE_WINDOW", 5*time.Second),
			RegistryRefresh: getEnvDuration("REGISTRY_REFRESH_INTERVAL", 10*time.Second),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/hazard-zones.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Radii returns the zone thresholds derived from the configured critical
// radius. Server and client both read thresholds only through this method.
func (c *Config) Radii() zone.Radii {
	return zone.NewRadii(c.Zones.CriticalRadiusM)
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Zones.CriticalRadiusM <= 0 {
		return fmt.Errorf("critical radius must be positive, got %f", c.Zones.CriticalRadiusM)
	}
	if c.Zones.SearchRadiusM < c.Radii().Warning {
		return fmt.Errorf("search radius %f smaller than warning radius %f", c.Zones.SearchRadiusM, c.Radii().Warning)
	}

	if c.Refresh.Period < time.Minute {
		return fmt.Errorf("refresh period must be at least 1 minute")
	}
	if c.Refresh.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	if c.Client.DebounceWindow <= 0 {
		return fmt.Errorf("debounce window must be positive")
	}
	if c.Client.RegistryRefresh <= 0 {
		return fmt.Errorf("registry refresh interval must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
