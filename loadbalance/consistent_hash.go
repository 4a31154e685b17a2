package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"
	"strings"
	"sync"

	"avtocod/registry"
)

// ConsistentHashBalancer maps keys to endpoints on a hash ring with virtual
// nodes. The same key maps to the same endpoint until the endpoint set changes.
type ConsistentHashBalancer struct {
	replicas int

	mu        sync.Mutex
	endpoints []registry.Endpoint
	set       string                        // URLs the ring was built from
	ring      []uint32                      // sorted hash values
	nodes     map[uint32]*registry.Endpoint // hash value → endpoint
}

// NewConsistentHashBalancer creates a hash ring with 100 virtual nodes per endpoint.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		nodes:    make(map[uint32]*registry.Endpoint),
	}
}

// Add places an endpoint onto the ring as "{url}#{i}" virtual nodes. It stays
// there until Pick is given a different endpoint set.
func (b *ConsistentHashBalancer) Add(endpoint *registry.Endpoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endpoints = append(b.endpoints, *endpoint)
	b.set = endpointSet(b.endpoints)
	b.add(endpoint)
}

func (b *ConsistentHashBalancer) add(endpoint *registry.Endpoint) {
	for i := 0; i < b.replicas; i++ {
		hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", endpoint.URL, i)))
		b.ring = append(b.ring, hash)
		b.nodes[hash] = endpoint
	}
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

// Pick rebuilds the ring when endpoints differ from the last call, then finds
// the first node clockwise from the key's hash.
func (b *ConsistentHashBalancer) Pick(endpoints []registry.Endpoint, key string) (*registry.Endpoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if set := endpointSet(endpoints); set != b.set {
		b.endpoints = append([]registry.Endpoint(nil), endpoints...)
		b.set = set
		b.ring = nil
		b.nodes = make(map[uint32]*registry.Endpoint)
		for i := range endpoints {
			ep := endpoints[i]
			b.add(&ep)
		}
	}
	if len(b.ring) == 0 {
		return nil, fmt.Errorf("no endpoints available")
	}

	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}
	return b.nodes[b.ring[idx]], nil
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}

func endpointSet(endpoints []registry.Endpoint) string {
	urls := make([]string, len(endpoints))
	for i, ep := range endpoints {
		urls[i] = ep.URL
	}
	sort.Strings(urls)
	return strings.Join(urls, "\n")
}
