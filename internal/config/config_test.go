package config

import (
	"os"
	"testing"
	"time"
)

func TestGetenv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		expected     string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_KEY_1",
			defaultValue: "default",
			envValue:     "env_value",
			expected:     "env_value",
		},
		{
			name:         "returns default when environment variable is not set",
			key:          "TEST_KEY_2",
			defaultValue: "default",
			envValue:     "",
			expected:     "default",
		},
		{
			name:         "handles empty default value",
			key:          "TEST_KEY_3",
			defaultValue: "",
			envValue:     "env_value",
			expected:     "env_value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			result := getenv(tt.key, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("getenv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, result, tt.expected)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		def      int
		envValue string
		expected int
	}{
		{
			name:     "parses valid integer",
			key:      "TEST_INT_1",
			def:      3,
			envValue: "8",
			expected: 8,
		},
		{
			name:     "falls back on invalid integer",
			key:      "TEST_INT_2",
			def:      3,
			envValue: "not-a-number",
			expected: 3,
		},
		{
			name:     "falls back when unset",
			key:      "TEST_INT_3",
			def:      3,
			envValue: "",
			expected: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			result := getenvInt(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("getenvInt(%q, %d) = %d, want %d", tt.key, tt.def, result, tt.expected)
			}
		})
	}
}

func TestGetenvDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		def      time.Duration
		envValue string
		expected time.Duration
	}{
		{
			name:     "parses valid duration",
			key:      "TEST_DUR_1",
			def:      10 * time.Second,
			envValue: "250ms",
			expected: 250 * time.Millisecond,
		},
		{
			name:     "falls back on invalid duration",
			key:      "TEST_DUR_2",
			def:      10 * time.Second,
			envValue: "soon",
			expected: 10 * time.Second,
		},
		{
			name:     "falls back when unset",
			key:      "TEST_DUR_3",
			def:      time.Second,
			envValue: "",
			expected: time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			result := getenvDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("getenvDuration(%q, %v) = %v, want %v", tt.key, tt.def, result, tt.expected)
			}
		})
	}
}

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{
		"APP_NAME", "HTTP_PORT", "DB_USER", "DB_PASS", "DB_HOST", "DB_PORT", "DB_NAME",
		"GATEWAY_BASE_URL", "GATEWAY_SENDER_EMAIL", "GATEWAY_SEND_TIMEOUT",
		"WORKER_CONCURRENCY", "WORKER_POLL_INTERVAL", "WORKER_RETRY_INTERVAL", "WORKER_HTTP_PORT",
	} {
		os.Unsetenv(k)
	}

	cfg := FromEnv()

	if cfg.AppName != "parchmail" {
		t.Errorf("AppName = %q, want %q", cfg.AppName, "parchmail")
	}
	if cfg.Worker.PollInterval != 10*time.Second {
		t.Errorf("Worker.PollInterval = %v, want 10s", cfg.Worker.PollInterval)
	}
	if cfg.Worker.RetryInterval != time.Second {
		t.Errorf("Worker.RetryInterval = %v, want 1s", cfg.Worker.RetryInterval)
	}
	if cfg.Worker.Concurrency != 1 {
		t.Errorf("Worker.Concurrency = %d, want 1", cfg.Worker.Concurrency)
	}
	if cfg.Gateway.SendTimeout != 10*time.Second {
		t.Errorf("Gateway.SendTimeout = %v, want 10s", cfg.Gateway.SendTimeout)
	}
}

func TestDSN(t *testing.T) {
	cfg := Config{DB: DB{
		User: "u", Pass: "p", Host: "h", Port: "5432", Name: "n",
	}}
	want := "postgres://u:p@h:5432/n?sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
