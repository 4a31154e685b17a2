// Package transport executes HTTP round trips for the client.
//
// It knows nothing about JSON-RPC: it sends bytes and returns the status,
// content type and body. Every failure to get a response is a network error.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"avtocod/apierr"
)

// Response is what the provider sent back.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Transport sends one request body to url. Deadlines come from ctx.
type Transport interface {
	Execute(ctx context.Context, url string, body []byte, headers http.Header) (*Response, error)
}

// HTTP is a Transport over net/http. The zero value uses http.DefaultClient.
type HTTP struct {
	Client *http.Client
	// MaxBodySize caps the response body; 0 means 32 MiB.
	MaxBodySize int64
}

// NewHTTP returns an HTTP transport using client.
func NewHTTP(client *http.Client) *HTTP {
	return &HTTP{Client: client}
}

// Execute always POSTs.
func (t *HTTP) Execute(ctx context.Context, url string, body []byte, headers http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apierr.Network(err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, apierr.Network(err)
	}
	defer resp.Body.Close()

	limit := t.MaxBodySize
	if limit <= 0 {
		limit = 32 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, apierr.Network(err)
	}
	if int64(len(data)) > limit {
		return nil, apierr.Networkf("response exceeds %d bytes", limit)
	}
	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}
