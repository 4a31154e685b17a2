package loadbalance

import (
	"fmt"
	"testing"

	"avtocod/registry"
)

var testEndpoints = []registry.Endpoint{
	{URL: "https://api-1/rpc", Weight: 10, Version: "1.0"},
	{URL: "https://api-2/rpc", Weight: 5, Version: "1.0"},
	{URL: "https://api-3/rpc", Weight: 10, Version: "1.0"},
}

func TestRoundRobin(t *testing.T) {
	b := &RoundRobinBalancer{}

	results := make([]string, 3)
	for i := 0; i < 3; i++ {
		ep, err := b.Pick(testEndpoints, "")
		if err != nil {
			t.Fatal(err)
		}
		results[i] = ep.URL
	}
	if results[0] != testEndpoints[0].URL {
		t.Fatalf("expect to start at the first endpoint, got %s", results[0])
	}

	ep, _ := b.Pick(testEndpoints, "")
	if ep.URL != results[0] {
		t.Fatalf("expect wrap around to %s, got %s", results[0], ep.URL)
	}
}

func TestRoundRobinEmpty(t *testing.T) {
	b := &RoundRobinBalancer{}
	if _, err := b.Pick(nil, ""); err == nil {
		t.Fatal("expect error for empty endpoints")
	}
}

func TestWeightedRandom(t *testing.T) {
	b := &WeightedRandomBalancer{}

	counts := map[string]int{}
	n := 10000
	for i := 0; i < n; i++ {
		ep, err := b.Pick(testEndpoints, "")
		if err != nil {
			t.Fatal(err)
		}
		counts[ep.URL]++
	}

	// weights 10:5:10
	ratio := float64(counts["https://api-1/rpc"]) / float64(counts["https://api-2/rpc"])
	if ratio < 1.5 || ratio > 2.5 {
		t.Fatalf("weight ratio api-1/api-2 = %.2f, expect ~2.0", ratio)
	}
}

func TestWeightedRandomZeroWeights(t *testing.T) {
	b := &WeightedRandomBalancer{}
	ep, err := b.Pick([]registry.Endpoint{{URL: "https://only/rpc"}}, "")
	if err != nil || ep.URL != "https://only/rpc" {
		t.Fatalf("Pick = %v, %v", ep, err)
	}
}

func TestConsistentHash(t *testing.T) {
	b := NewConsistentHashBalancer()

	ep1, _ := b.Pick(testEndpoints, "token-123")
	ep2, _ := b.Pick(testEndpoints, "token-123")
	if ep1.URL != ep2.URL {
		t.Fatalf("same key mapped to different endpoints: %s vs %s", ep1.URL, ep2.URL)
	}

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ep, _ := b.Pick(testEndpoints, fmt.Sprintf("key-%d", i))
		seen[ep.URL] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expect at least 2 different endpoints, got %d", len(seen))
	}

	if _, err := b.Pick(nil, "x"); err == nil {
		t.Fatal("expect error after the endpoint set became empty")
	}
}

func TestConsistentHashAdd(t *testing.T) {
	b := NewConsistentHashBalancer()
	for i := range testEndpoints {
		b.Add(&testEndpoints[i])
	}
	ring := append([]uint32(nil), b.ring...)

	ep, err := b.Pick(testEndpoints, "token-123")
	if err != nil {
		t.Fatal(err)
	}
	if len(b.ring) != len(ring) || b.ring[0] != ring[0] {
		t.Fatal("Pick over the added endpoints rebuilt the ring")
	}
	added := false
	for i := range testEndpoints {
		if b.nodes[ring[0]] == &testEndpoints[i] {
			added = true
		}
	}
	if !added {
		t.Fatal("Pick over the added endpoints replaced the nodes of Add")
	}
	again, _ := NewConsistentHashBalancer().Pick(testEndpoints, "token-123")
	if ep.URL != again.URL {
		t.Fatalf("ring built by Add and by Pick disagree: %s vs %s", ep.URL, again.URL)
	}
}

func TestNew(t *testing.T) {
	for name, want := range map[string]string{"": "RoundRobin", "roundrobin": "RoundRobin", "random": "WeightedRandom", "hash": "ConsistentHash"} {
		b, err := New(name)
		if err != nil {
			t.Fatal(err)
		}
		if b.Name() != want {
			t.Errorf("New(%q) = %s, want %s", name, b.Name(), want)
		}
	}
	if _, err := New("least-conn"); err == nil {
		t.Fatal("expect unknown strategy error")
	}
}
