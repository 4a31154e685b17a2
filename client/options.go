package client

import (
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"avtocod/apierr"
	"avtocod/auth"
	"avtocod/codec"
	"avtocod/config"
	"avtocod/loadbalance"
	"avtocod/logging"
	"avtocod/message"
	"avtocod/metrics"
	"avtocod/middleware"
	"avtocod/registry"
	"avtocod/transport"
)

// Option configures a Client.
type Option func(*Client) error

// WithURL sends every call to one fixed endpoint.
func WithURL(url string) Option {
	return func(c *Client) error {
		c.registry = registry.NewStatic(url)
		return nil
	}
}

// WithRegistry discovers endpoints registered under service.
func WithRegistry(reg registry.Registry, service string) Option {
	return func(c *Client) error {
		c.registry, c.service = reg, service
		return nil
	}
}

func WithBalancer(b loadbalance.Balancer) Option {
	return func(c *Client) error {
		c.balancer = b
		return nil
	}
}

func WithTransport(t transport.Transport) Option {
	return func(c *Client) error {
		c.transport = t
		return nil
	}
}

func WithCodec(cd codec.Codec) Option {
	return func(c *Client) error {
		c.codec = cd
		return nil
	}
}

// WithIDs sets the correlation id generator.
func WithIDs(ids message.IDGenerator) Option {
	return func(c *Client) error {
		c.ids = ids
		return nil
	}
}

// WithToken authenticates every call with token.
func WithToken(token string) Option {
	return func(c *Client) error {
		if err := auth.ValidateToken(token); err != nil {
			return err
		}
		c.token = token
		return nil
	}
}

// WithTimeout bounds calls whose context has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return apierr.Validation("timeout must be positive, got %s", d)
		}
		c.timeout = d
		return nil
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) error {
		c.headers.Set(key, value)
		return nil
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) error {
		c.logger = logging.OrNop(logger)
		return nil
	}
}

// WithMiddleware appends middlewares, as Use does.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(c *Client) error {
		c.middlewares = append(c.middlewares, mws...)
		return nil
	}
}

// WithClock replaces time.Now when params hold relative times.
func WithClock(now func() time.Time) Option {
	return func(c *Client) error {
		c.now = now
		return nil
	}
}

// WithRelogin logs in again with the credentials of provider when the
// session expires, and keeps the new token for later calls.
func WithRelogin(provider auth.CredentialsProvider) Option {
	return func(c *Client) error {
		c.middlewares = append(c.middlewares, middleware.Relogin(provider, c.loginToken, c.logger))
		return nil
	}
}

// FromConfig builds a client from cfg. m may be nil.
//
// The middleware chain is, outermost first: request logging, instrumenting,
// relogin (when credentials are configured), rate limit, retry.
func FromConfig(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger)
	if m == nil {
		m = metrics.Discard()
	}

	ids, ok := message.NewIDGenerator(cfg.IDScheme)
	if !ok {
		return nil, apierr.Validation("unknown id scheme %q", cfg.IDScheme)
	}
	balancer, err := loadbalance.New(cfg.Balancer)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithLogger(logger),
		WithIDs(ids),
		WithBalancer(balancer),
		WithTimeout(cfg.RequestTimeout),
		WithTransport(transport.NewHTTP(&http.Client{})),
		WithMiddleware(
			middleware.RequestLogging(logger, m.Calls),
			middleware.Instrumenting(m.Requests, m.Duration),
		),
	}
	var etcd *registry.Cached
	if len(cfg.EtcdEndpoints) > 0 {
		reg, err := registry.NewEtcdRegistry(cfg.EtcdEndpoints, logger)
		if err != nil {
			return nil, err
		}
		etcd = registry.NewCached(reg, logger)
		opts = append(opts, WithRegistry(etcd, cfg.ServiceName))
	} else {
		opts = append(opts, WithURL(cfg.APIURL))
	}
	if cfg.Token != "" {
		opts = append(opts, WithToken(cfg.Token))
	}
	if cfg.HasCredentials() {
		opts = append(opts, WithRelogin(auth.Static(cfg.Email, cfg.Password)))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, WithMiddleware(middleware.RateLimit(cfg.RateLimit, cfg.RateBurst)))
	}
	if cfg.RetryMax > 0 {
		opts = append(opts, WithMiddleware(middleware.Retry(cfg.RetryMax, cfg.RetryDelay, logger)))
	}
	if cfg.AttemptTimeout > 0 {
		opts = append(opts, WithMiddleware(middleware.Timeout(cfg.AttemptTimeout)))
	}

	c, err := New(opts...)
	if err != nil {
		if etcd != nil {
			etcd.Close()
		}
		return nil, err
	}
	return c, nil
}

// Close releases the endpoint registry when it holds connections.
func (c *Client) Close() error {
	if closer, ok := c.registry.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
