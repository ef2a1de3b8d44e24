package client

import (
	"context"

	"go.uber.org/zap"

	"nodara-sdk/loadbalance"
	"nodara-sdk/message"
	"nodara-sdk/registry"
)

// Resolver chooses the endpoint for one call.
type Resolver interface {
	Resolve(ctx context.Context, req *message.Request) (string, error)
}

// StaticResolver always returns the same endpoint.
type StaticResolver string

func (r StaticResolver) Resolve(ctx context.Context, req *message.Request) (string, error) {
	return string(r), nil
}

// DiscoveryResolver looks up the nodes of a service in a registry on every
// call and lets a balancer choose one. A KeyedBalancer is given the first
// string param (the proposal ID for vote and execute calls) as routing key.
type DiscoveryResolver struct {
	registry registry.Registry
	service  string
	balancer loadbalance.Balancer
	logger   *zap.Logger
}

func NewDiscoveryResolver(reg registry.Registry, service string, bal loadbalance.Balancer, logger *zap.Logger) *DiscoveryResolver {
	if bal == nil {
		bal = &loadbalance.RoundRobinBalancer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscoveryResolver{registry: reg, service: service, balancer: bal, logger: logger}
}

func (r *DiscoveryResolver) Resolve(ctx context.Context, req *message.Request) (string, error) {
	instances, err := r.registry.Discover(ctx, r.service)
	if err != nil {
		return "", err
	}

	var instance *registry.ServiceInstance
	if keyed, ok := r.balancer.(loadbalance.KeyedBalancer); ok {
		instance, err = keyed.PickKey(instances, routingKey(req))
	} else {
		instance, err = r.balancer.Pick(instances)
	}
	if err != nil {
		return "", err
	}

	r.logger.Debug("resolved endpoint",
		zap.String("service", r.service),
		zap.String("balancer", r.balancer.Name()),
		zap.String("endpoint", instance.Endpoint))
	return instance.Endpoint, nil
}

func routingKey(req *message.Request) string {
	if len(req.Params) > 0 {
		if s, ok := req.Params[0].(string); ok {
			return s
		}
	}
	return req.Method
}
