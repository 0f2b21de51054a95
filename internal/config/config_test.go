package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Zones.CriticalRadiusM != 200 {
		t.Errorf("expected default critical radius 200, got %f", cfg.Zones.CriticalRadiusM)
	}
	if cfg.Refresh.Period != 20*time.Hour {
		t.Errorf("expected default refresh period 20h, got %s", cfg.Refresh.Period)
	}
	if cfg.Client.DebounceWindow != 5*time.Second {
		t.Errorf("expected default debounce window 5s, got %s", cfg.Client.DebounceWindow)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CRITICAL_RADIUS_M", "350")
	t.Setenv("REFRESH_PERIOD", "6h")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Zones.CriticalRadiusM != 350 {
		t.Errorf("expected critical radius 350, got %f", cfg.Zones.CriticalRadiusM)
	}
	if cfg.Refresh.Period != 6*time.Hour {
		t.Errorf("expected refresh period 6h, got %s", cfg.Refresh.Period)
	}
}

func TestRadiiDerivedFromCriticalRadius(t *testing.T) {
	t.Setenv("CRITICAL_RADIUS_M", "200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	radii := cfg.Radii()
	if radii.Critical != 200 {
		t.Errorf("expected critical radius 200, got %f", radii.Critical)
	}
	if radii.Warning != 600 {
		t.Errorf("expected warning radius 600, got %f", radii.Warning)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"invalid port", "SERVER_PORT", "70000"},
		{"invalid log level", "LOG_LEVEL", "verbose"},
		{"negative critical radius", "CRITICAL_RADIUS_M", "-100"},
		{"search radius below warning", "SEARCH_RADIUS_M", "500"},
		{"refresh period too short", "REFRESH_PERIOD", "30s"},
		{"zero worker count", "WORKER_COUNT", "0"},
		{"zero debounce window", "DEBOUNCE_WINDOW", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected validation error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestGetEnvFallbacksOnBadValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("REFRESH_PERIOD", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected fallback port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Refresh.Period != 20*time.Hour {
		t.Errorf("expected fallback refresh period 20h, got %s", cfg.Refresh.Period)
	}
}
