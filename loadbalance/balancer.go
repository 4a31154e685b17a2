// Package loadbalance picks the API endpoint for each round trip when the
// registry returns more than one.
//
//   - RoundRobin:      equal mirrors
//   - WeightedRandom:  mirrors with different capacity
//   - ConsistentHash:  one account always talks to the same mirror
package loadbalance

import (
	"fmt"

	"avtocod/registry"
)

// Balancer selects a target endpoint. Pick is called once per round trip and
// must be goroutine-safe. key identifies the caller (the bearer token) and is
// only used by key-based strategies.
type Balancer interface {
	Pick(endpoints []registry.Endpoint, key string) (*registry.Endpoint, error)
	Name() string
}

// New returns the balancer for a configured strategy name.
func New(name string) (Balancer, error) {
	switch name {
	case "", "roundrobin":
		return &RoundRobinBalancer{}, nil
	case "random":
		return &WeightedRandomBalancer{}, nil
	case "hash":
		return NewConsistentHashBalancer(), nil
	}
	return nil, fmt.Errorf("loadbalance: unknown strategy %q", name)
}
