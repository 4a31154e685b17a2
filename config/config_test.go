package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var envVars = []string{
	"AVTOCOD_API_URL", "AVTOCOD_TOKEN", "AVTOCOD_EMAIL", "AVTOCOD_PASSWORD",
	"AVTOCOD_REQUEST_TIMEOUT", "AVTOCOD_ID_SCHEME",
	"AVTOCOD_RATE_LIMIT", "AVTOCOD_RATE_BURST", "AVTOCOD_RETRY_MAX", "AVTOCOD_RETRY_DELAY",
	"AVTOCOD_ATTEMPT_TIMEOUT",
	"AVTOCOD_ETCD_ENDPOINTS", "AVTOCOD_SERVICE_NAME", "AVTOCOD_BALANCER",
	"AVTOCOD_LOG_LEVEL", "AVTOCOD_METRICS_NAMESPACE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	// envconfig falls back to the unprefixed name
	for _, env := range envVars {
		for _, name := range []string{env, strings.TrimPrefix(env, "AVTOCOD_")} {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}

	want := &Config{
		APIURL:           DefaultAPIURL,
		RequestTimeout:   30 * time.Second,
		IDScheme:         "natural",
		RateBurst:        1,
		RetryDelay:       200 * time.Millisecond,
		ServiceName:      "avtocod",
		Balancer:         "roundrobin",
		LogLevel:         "info",
		MetricsNamespace: "avtocod",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config:config_test - defaults mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("config:config_test - defaults should validate: %v", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	overrides := map[string]string{
		"AVTOCOD_API_URL":         "http://127.0.0.1:8080/rpc",
		"AVTOCOD_TOKEN":           "abc",
		"AVTOCOD_EMAIL":           "user@example.com",
		"AVTOCOD_PASSWORD":        "secret",
		"AVTOCOD_REQUEST_TIMEOUT": "5s",
		"AVTOCOD_ID_SCHEME":       "uuid",
		"AVTOCOD_RATE_LIMIT":      "2.5",
		"AVTOCOD_RATE_BURST":      "3",
		"AVTOCOD_RETRY_MAX":       "2",
		"AVTOCOD_RETRY_DELAY":     "1s",
		"AVTOCOD_ATTEMPT_TIMEOUT": "2s",
		"AVTOCOD_ETCD_ENDPOINTS":  "10.0.0.1:2379,10.0.0.2:2379",
		"AVTOCOD_SERVICE_NAME":    "avtocod-staging",
		"AVTOCOD_BALANCER":        "hash",
		"AVTOCOD_LOG_LEVEL":       "debug",
	}
	for k, v := range overrides {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("config:config_test - RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
	if cfg.AttemptTimeout != 2*time.Second {
		t.Errorf("config:config_test - AttemptTimeout = %v, want 2s", cfg.AttemptTimeout)
	}
	if cfg.RateLimit != 2.5 || cfg.RateBurst != 3 {
		t.Errorf("config:config_test - rate = %v/%d, want 2.5/3", cfg.RateLimit, cfg.RateBurst)
	}
	if diff := cmp.Diff([]string{"10.0.0.1:2379", "10.0.0.2:2379"}, cfg.EtcdEndpoints); diff != "" {
		t.Errorf("config:config_test - EtcdEndpoints mismatch (-want +got):\n%s", diff)
	}
	if !cfg.HasCredentials() {
		t.Error("config:config_test - expected credentials")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("config:config_test - unexpected validation error: %v", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("AVTOCOD_REQUEST_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("config:config_test - expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			APIURL:         DefaultAPIURL,
			RequestTimeout: time.Second,
			IDScheme:       "natural",
			Balancer:       "roundrobin",
			RateBurst:      1,
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no endpoint", func(c *Config) { c.APIURL = "" }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"id scheme", func(c *Config) { c.IDScheme = "snowflake" }},
		{"balancer", func(c *Config) { c.Balancer = "least-conn" }},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }},
		{"rate without burst", func(c *Config) { c.RateLimit = 1; c.RateBurst = 0 }},
		{"negative retries", func(c *Config) { c.RetryMax = -1 }},
		{"negative attempt timeout", func(c *Config) { c.AttemptTimeout = -time.Second }},
		{"email only", func(c *Config) { c.Email = "user@example.com" }},
		{"password only", func(c *Config) { c.Password = "secret" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Errorf("config:config_test - expected validation error")
			}
		})
	}

	c := valid()
	c.APIURL = ""
	c.EtcdEndpoints = []string{"127.0.0.1:2379"}
	if err := c.Validate(); err != nil {
		t.Errorf("config:config_test - etcd discovery without API URL should validate: %v", err)
	}
}
