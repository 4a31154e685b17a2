// Package registry finds the URLs at which the provider's API is served.
package registry

import (
	"context"
	"fmt"
)

// Endpoint is one URL serving the API.
type Endpoint struct {
	URL     string `json:"url"`
	Weight  int    `json:"weight"` // Weight for load balancing
	Version string `json:"version,omitempty"`
}

type Registry interface {
	Register(ctx context.Context, service string, endpoint Endpoint, ttl int64) error
	Deregister(ctx context.Context, service string, url string) error
	Discover(ctx context.Context, service string) ([]Endpoint, error)
	Watch(ctx context.Context, service string) <-chan []Endpoint
}

// Static is a fixed endpoint list, used when no etcd is configured.
type Static struct {
	Endpoints []Endpoint
}

// NewStatic serves every service name from the given URLs with equal weight.
func NewStatic(urls ...string) *Static {
	s := &Static{}
	for _, u := range urls {
		s.Endpoints = append(s.Endpoints, Endpoint{URL: u, Weight: 1})
	}
	return s
}

func (s *Static) Register(context.Context, string, Endpoint, int64) error {
	return fmt.Errorf("registry: static registry is read-only")
}

func (s *Static) Deregister(context.Context, string, string) error {
	return fmt.Errorf("registry: static registry is read-only")
}

func (s *Static) Discover(context.Context, string) ([]Endpoint, error) {
	return append([]Endpoint(nil), s.Endpoints...), nil
}

// Watch emits the fixed list once.
func (s *Static) Watch(ctx context.Context, service string) <-chan []Endpoint {
	ch := make(chan []Endpoint, 1)
	eps, _ := s.Discover(ctx, service)
	ch <- eps
	close(ch)
	return ch
}
