// Package client dispatches methods to the report provider.
//
// Every call, single or batch, runs through the middleware chain before the
// terminal handler sends it:
//
//	Call / CallBatch → auth context → Middleware Chain → send
//	  → registry.Discover → Balancer.Pick → codec.EncodeRequests
//	  → Transport.Execute → codec.DecodeBody → method / batch BuildResponse
package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"avtocod/apierr"
	"avtocod/auth"
	"avtocod/batch"
	"avtocod/codec"
	"avtocod/loadbalance"
	"avtocod/logging"
	"avtocod/message"
	"avtocod/method"
	"avtocod/middleware"
	"avtocod/registry"
	"avtocod/transport"
)

const (
	// DefaultURL is the public JSON-RPC endpoint of the provider.
	DefaultURL = "https://api-profi.avtocod.ru/rpc"
	// DefaultService is the service name endpoints are discovered under.
	DefaultService = "avtocod"
	// DefaultTimeout bounds a call that carries no deadline of its own.
	DefaultTimeout = 30 * time.Second
)

// Client is safe for concurrent use.
type Client struct {
	registry  registry.Registry // find API endpoints
	service   string
	balancer  loadbalance.Balancer
	transport transport.Transport
	codec     codec.Codec
	ids       message.IDGenerator
	headers   http.Header
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu          sync.RWMutex
	token       string
	middlewares []middleware.Middleware
	handler     middleware.HandlerFunc // middleware(middleware(...(send)))
}

// New creates a client. Without options it talks to DefaultURL unauthenticated.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		registry:  registry.NewStatic(DefaultURL),
		service:   DefaultService,
		balancer:  &loadbalance.RoundRobinBalancer{},
		transport: transport.NewHTTP(nil),
		codec:     &codec.JSONCodec{},
		ids:       &message.Naturals{},
		headers:   defaultHeaders(),
		timeout:   DefaultTimeout,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.handler = middleware.Chain(c.middlewares...)(c.send)
	return c, nil
}

func defaultHeaders() http.Header {
	h := http.Header{}
	h.Set("Origin", "https://profi.avtocod.ru/")
	h.Set("Referer", DefaultURL)
	return h
}

// Use appends middlewares. They run in the order they are added.
func (c *Client) Use(mws ...middleware.Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middlewares = append(c.middlewares, mws...)
	c.handler = middleware.Chain(c.middlewares...)(c.send)
}

// Token returns the token the client authenticates with.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken validates and stores the token used by later calls.
func (c *Client) SetToken(token string) error {
	if err := auth.ValidateToken(token); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	return nil
}

// Call executes one method and returns its result.
func (c *Client) Call(ctx context.Context, m method.Method) (any, error) {
	if _, ok := m.(*batch.Batch); ok {
		return nil, apierr.Usage("use CallBatch to send a batch")
	}
	if err := method.Validate(m); err != nil {
		return nil, err
	}
	ctx, cancel := c.callContext(ctx, 0)
	defer cancel()
	return c.chain()(ctx, m)
}

// CallBatch sends methods in one round trip and returns their outcomes in
// invocation order. If any of them failed the error is a *batch.PartialFailure
// and the items are returned as well. No methods means no round trip.
func (c *Client) CallBatch(ctx context.Context, methods ...method.Method) ([]batch.Item, error) {
	return c.callBatch(ctx, 0, methods)
}

func (c *Client) callBatch(ctx context.Context, timeout time.Duration, methods []method.Method) ([]batch.Item, error) {
	if len(methods) == 0 {
		return []batch.Item{}, nil
	}
	b := batch.New(methods...)
	if err := b.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := c.callContext(ctx, timeout)
	defer cancel()
	result, err := c.chain()(ctx, b)
	if err != nil {
		if pf, ok := err.(*batch.PartialFailure); ok {
			return pf.Items, pf
		}
		return nil, err
	}
	items, ok := result.([]batch.Item)
	if !ok {
		return nil, apierr.Usage("batch handler returned %T", result)
	}
	return items, nil
}

// Do executes m and asserts its result type.
func Do[R any](ctx context.Context, c *Client, m method.Method) (R, error) {
	var zero R
	res, err := c.Call(ctx, m)
	if err != nil {
		return zero, err
	}
	r, ok := res.(R)
	if !ok {
		return zero, apierr.Decoding("%s: result is %T, not %T", m.Name(), res, zero)
	}
	return r, nil
}

func (c *Client) chain() middleware.HandlerFunc {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handler
}

// callContext attaches the client token unless ctx carries one or was made
// anonymous, and bounds the call by timeout, or the client default when ctx
// has no deadline.
func (c *Client) callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := auth.TokenFrom(ctx); !ok && !auth.Anonymous(ctx) {
		if token := c.Token(); token != "" {
			ctx = auth.WithToken(ctx, token)
		}
	}
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// send is the terminal handler: one round trip for one method or one batch.
func (c *Client) send(ctx context.Context, m method.Method) (any, error) {
	token, _ := auth.TokenFrom(ctx)

	endpoints, err := c.registry.Discover(ctx, c.service)
	if err != nil {
		return nil, apierr.Network(err)
	}
	ep, err := c.balancer.Pick(endpoints, token)
	if err != nil {
		return nil, apierr.Networkf("%s: %v", c.service, err)
	}

	b, isBatch := m.(*batch.Batch)
	var reqs []message.Request
	if isBatch {
		reqs = b.BuildRequest(c.ids)
	} else {
		reqs = []message.Request{method.BuildRequest(m, c.ids.Next())}
	}
	body, err := codec.EncodeRequests(c.codec, reqs, isBatch, c.now())
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.Execute(ctx, ep.URL, body, c.requestHeaders(token))
	if err != nil {
		return nil, err
	}
	payload, err := codec.DecodeBody(c.codec, resp.ContentType, resp.Body)
	if err != nil {
		return nil, err
	}

	if !isBatch {
		if len(payload.Items) != 1 {
			return nil, apierr.Protocol("%s: expected one response, got %d", m.Name(), len(payload.Items))
		}
		return method.BuildResponse(m, payload.Items[0])
	}

	if !payload.Batch {
		// the provider rejected the batch as a whole
		return nil, rejectedBatch(c.codec, payload)
	}
	items, err := b.BuildResponse(reqs, payload.Items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func rejectedBatch(cd codec.Codec, payload *codec.Payload) error {
	var resp message.Response
	if err := cd.Decode(payload.Items[0], &resp); err != nil {
		return apierr.Decoding("batch response: %v", err)
	}
	if resp.Error != nil {
		return apierr.Classify(resp.Error)
	}
	return apierr.Protocol("batch answered with a single response")
}

func (c *Client) requestHeaders(token string) http.Header {
	h := c.headers.Clone()
	h.Set("Content-Type", c.codec.ContentType())
	h.Set("Accept", c.codec.ContentType())
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// Logger returns the client logger.
func (c *Client) Logger() *zap.Logger {
	return logging.OrNop(c.logger)
}
