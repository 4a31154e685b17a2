package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const keyPrefix = "/avtocod/"

// EtcdRegistry implements Registry on etcd v3. It keeps the endpoint list
// shared by every client of a deployment:
//
//	Key:   /avtocod/{service}/{url}
//	Value: JSON-encoded Endpoint
//
// Registration uses TTL leases, so endpoints of a mirror that stops renewing
// disappear on their own.
type EtcdRegistry struct {
	client *clientv3.Client
	logger *zap.Logger
}

// NewEtcdRegistry connects to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string, logger *zap.Logger) (*EtcdRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
		Logger:      logger.Named("etcd"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "registry: connect etcd")
	}
	return &EtcdRegistry{client: c, logger: logger}, nil
}

func serviceKey(service string) string {
	return keyPrefix + service + "/"
}

// Register stores endpoint under a lease of ttl seconds and keeps the lease alive
// until ctx is done.
func (r *EtcdRegistry) Register(ctx context.Context, service string, endpoint Endpoint, ttl int64) error {
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return errors.Wrap(err, "registry: grant lease")
	}

	val, err := json.Marshal(endpoint)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, serviceKey(service)+endpoint.URL, string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return errors.Wrapf(err, "registry: put %s", endpoint.URL)
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return errors.Wrap(err, "registry: keep lease alive")
	}

	// drain keepalive responses so the channel never fills up
	go func() {
		for range ch {
		}
	}()
	return nil
}

func (r *EtcdRegistry) Deregister(ctx context.Context, service string, url string) error {
	_, err := r.client.Delete(ctx, serviceKey(service)+url)
	return errors.Wrapf(err, "registry: delete %s", url)
}

// Watch emits the full endpoint list after every change under the service prefix.
// The channel is closed when ctx is done.
func (r *EtcdRegistry) Watch(ctx context.Context, service string) <-chan []Endpoint {
	ch := make(chan []Endpoint, 1)
	go func() {
		defer close(ch)
		watchChan := r.client.Watch(ctx, serviceKey(service), clientv3.WithPrefix())
		for range watchChan {
			endpoints, err := r.Discover(ctx, service)
			if err != nil {
				r.logger.Warn("registry: rediscover after watch event", zap.String("service", service), zap.Error(err))
				continue
			}
			select {
			case ch <- endpoints:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Discover returns the endpoints currently registered for service.
func (r *EtcdRegistry) Discover(ctx context.Context, service string) ([]Endpoint, error) {
	resp, err := r.client.Get(ctx, serviceKey(service), clientv3.WithPrefix())
	if err != nil {
		return nil, errors.Wrap(err, "registry: discover")
	}

	endpoints := make([]Endpoint, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var ep Endpoint
		if err := json.Unmarshal(kv.Value, &ep); err != nil {
			r.logger.Warn("registry: skip malformed endpoint", zap.ByteString("key", kv.Key), zap.Error(err))
			continue
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// Close releases the etcd connection.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
