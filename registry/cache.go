package registry

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Cached serves Discover from memory. The first Discover of a service reads
// the wrapped registry and starts a Watch that keeps the copy current; when
// the watch ends the copy is dropped and the next Discover reads again.
type Cached struct {
	Registry
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	endpoints map[string][]Endpoint
}

// NewCached wraps r. Close stops the watches and closes r when it is an io.Closer.
func NewCached(r Registry, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cached{
		Registry:  r,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		endpoints: make(map[string][]Endpoint),
	}
}

func (c *Cached) Discover(ctx context.Context, service string) ([]Endpoint, error) {
	c.mu.RLock()
	eps, ok := c.endpoints[service]
	c.mu.RUnlock()
	if ok {
		return append([]Endpoint(nil), eps...), nil
	}

	eps, err := c.Registry.Discover(ctx, service)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if _, ok := c.endpoints[service]; !ok && c.ctx.Err() == nil {
		c.endpoints[service] = eps
		go c.watch(service)
	}
	c.mu.Unlock()
	return append([]Endpoint(nil), eps...), nil
}

func (c *Cached) watch(service string) {
	for eps := range c.Registry.Watch(c.ctx, service) {
		c.mu.Lock()
		c.endpoints[service] = eps
		c.mu.Unlock()
		c.logger.Debug("registry: endpoints changed", zap.String("service", service), zap.Int("count", len(eps)))
	}

	c.mu.Lock()
	delete(c.endpoints, service)
	c.mu.Unlock()
}

// Close stops every watch.
func (c *Cached) Close() error {
	c.cancel()
	if closer, ok := c.Registry.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
