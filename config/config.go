// Package config provides client configuration loaded from AVTOCOD_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	logPrefix = "config:Load"
	envPrefix = "AVTOCOD"
)

// DefaultAPIURL is the public JSON-RPC endpoint of the provider.
const DefaultAPIURL = "https://api-profi.avtocod.ru/rpc"

// Config holds client configuration.
type Config struct {
	// API endpoint, used when no etcd endpoints are configured.
	APIURL string `envconfig:"API_URL" default:"https://api-profi.avtocod.ru/rpc"`

	// Authentication: a token, or credentials to log in with (both when the
	// session should be renewed automatically).
	Token    string `envconfig:"TOKEN"`
	Email    string `envconfig:"EMAIL"`
	Password string `envconfig:"PASSWORD"`

	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	// IDScheme selects request correlation ids: natural or uuid.
	IDScheme string `envconfig:"ID_SCHEME" default:"natural"`

	// Client side limits (0 = off)
	RateLimit  float64       `envconfig:"RATE_LIMIT" default:"0"`
	RateBurst  int           `envconfig:"RATE_BURST" default:"1"`
	RetryMax   int           `envconfig:"RETRY_MAX" default:"0"`
	RetryDelay time.Duration `envconfig:"RETRY_DELAY" default:"200ms"`
	// AttemptTimeout bounds each round trip; REQUEST_TIMEOUT bounds the whole call.
	AttemptTimeout time.Duration `envconfig:"ATTEMPT_TIMEOUT" default:"0"`

	// Discovery: API endpoints registered in etcd under /avtocod/{SERVICE_NAME}/.
	EtcdEndpoints []string `envconfig:"ETCD_ENDPOINTS"`
	ServiceName   string   `envconfig:"SERVICE_NAME" default:"avtocod"`
	Balancer      string   `envconfig:"BALANCER" default:"roundrobin"`

	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsNamespace string `envconfig:"METRICS_NAMESPACE" default:"avtocod"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	return &c, nil
}

// Validate checks values that envconfig cannot.
func (c *Config) Validate() error {
	if c.APIURL == "" && len(c.EtcdEndpoints) == 0 {
		return fmt.Errorf("%s - AVTOCOD_API_URL or AVTOCOD_ETCD_ENDPOINTS is required", logPrefix)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - AVTOCOD_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	switch c.IDScheme {
	case "natural", "uuid":
	default:
		return fmt.Errorf("%s - AVTOCOD_ID_SCHEME must be natural or uuid, got %q", logPrefix, c.IDScheme)
	}
	switch c.Balancer {
	case "roundrobin", "random", "hash":
	default:
		return fmt.Errorf("%s - AVTOCOD_BALANCER must be roundrobin, random or hash, got %q", logPrefix, c.Balancer)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%s - AVTOCOD_RATE_LIMIT must not be negative", logPrefix)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("%s - AVTOCOD_RATE_BURST must be at least 1", logPrefix)
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("%s - AVTOCOD_RETRY_MAX must not be negative", logPrefix)
	}
	if c.AttemptTimeout < 0 {
		return fmt.Errorf("%s - AVTOCOD_ATTEMPT_TIMEOUT must not be negative", logPrefix)
	}
	if (c.Email == "") != (c.Password == "") {
		return fmt.Errorf("%s - AVTOCOD_EMAIL and AVTOCOD_PASSWORD must be set together", logPrefix)
	}
	return nil
}

// HasCredentials reports whether the client can log in by itself.
func (c *Config) HasCredentials() bool {
	return c.Email != "" && c.Password != ""
}
