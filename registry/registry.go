package registry

import "context"

// ServiceInstance is one governance node that clients may call.
type ServiceInstance struct {
	Endpoint string // Full RPC URL, e.g. "http://10.0.0.5:9933"
	Weight   int    // Weight for load balancing
	Version  string
}

type Registry interface {
	Register(ctx context.Context, serviceName string, instance ServiceInstance, ttl int64) error
	Deregister(ctx context.Context, serviceName string, endpoint string) error
	Discover(ctx context.Context, serviceName string) ([]ServiceInstance, error)
	Watch(ctx context.Context, serviceName string) <-chan []ServiceInstance
}
