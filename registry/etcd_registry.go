// Package registry keeps track of the governance nodes a client can reach.
//
// The etcd implementation stores one key per node:
//
//	Key:   /nodara/{ServiceName}/{escaped endpoint URL}
//	Value: JSON-encoded ServiceInstance
//
// Registration uses TTL-based leases: if a node dies, the lease expires and
// its entry disappears.
package registry

import (
	"context"
	"encoding/json"
	"net/url"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const keyPrefix = "/nodara/"

// EtcdRegistry implements the Registry interface using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // thread-safe, shared across goroutines
	logger *zap.Logger
}

// NewEtcdRegistry creates a new registry connected to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string, logger *zap.Logger) (*EtcdRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c, logger: logger}, nil
}

func servicePrefix(serviceName string) string {
	return keyPrefix + serviceName + "/"
}

func instanceKey(serviceName, endpoint string) string {
	return servicePrefix(serviceName) + url.PathEscape(endpoint)
}

// Register adds a node to etcd under a lease of ttl seconds and keeps the
// lease alive until ctx ends or the registry is closed.
//
// The lease ID stays local so several nodes may share one EtcdRegistry.
func (r *EtcdRegistry) Register(ctx context.Context, serviceName string, instance ServiceInstance, ttl int64) error {
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, instanceKey(serviceName, instance.Endpoint), string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}

	// Drain KeepAlive responses so the channel never fills up
	go func() {
		for range ch {
		}
		r.logger.Debug("lease keepalive stopped",
			zap.String("service", serviceName),
			zap.String("endpoint", instance.Endpoint))
	}()
	return nil
}

// Deregister removes a node from etcd. Nodes call it before shutting down.
func (r *EtcdRegistry) Deregister(ctx context.Context, serviceName string, endpoint string) error {
	_, err := r.client.Delete(ctx, instanceKey(serviceName, endpoint))
	return err
}

// Watch emits the full instance list whenever anything under the service
// prefix changes. The channel is closed when ctx ends.
func (r *EtcdRegistry) Watch(ctx context.Context, serviceName string) <-chan []ServiceInstance {
	ch := make(chan []ServiceInstance, 1)

	go func() {
		defer close(ch)
		watchChan := r.client.Watch(ctx, servicePrefix(serviceName), clientv3.WithPrefix())
		for range watchChan {
			// Re-read the whole list; simpler than applying individual events
			instances, err := r.Discover(ctx, serviceName)
			if err != nil {
				r.logger.Warn("discover after watch event", zap.String("service", serviceName), zap.Error(err))
				continue
			}
			select {
			case ch <- instances:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// Discover returns all currently registered nodes for a service.
func (r *EtcdRegistry) Discover(ctx context.Context, serviceName string) ([]ServiceInstance, error) {
	resp, err := r.client.Get(ctx, servicePrefix(serviceName), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]ServiceInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance ServiceInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			r.logger.Warn("skipping malformed registry entry", zap.ByteString("key", kv.Key))
			continue
		}
		instances = append(instances, instance)
	}

	return instances, nil
}

// Close releases the etcd connection; leases granted through it lapse.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
