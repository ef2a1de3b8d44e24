// Package loadbalance picks which governance node serves a call when a
// client discovers several through the registry.
//
//   - RoundRobin:      equal-capacity nodes
//   - WeightedRandom:  nodes of different capacity
//   - ConsistentHash:  calls about the same proposal stick to one node
package loadbalance

import (
	"errors"

	"nodara-sdk/registry"
)

var ErrNoInstances = errors.New("no instances available")

// Balancer selects one instance per call. Implementations must be goroutine-safe.
type Balancer interface {
	Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error)

	// Name returns the strategy name (for logging).
	Name() string
}

// KeyedBalancer selects an instance for a routing key, such as a proposal ID.
type KeyedBalancer interface {
	Balancer
	PickKey(instances []registry.ServiceInstance, key string) (*registry.ServiceInstance, error)
}
