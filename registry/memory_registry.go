package registry

import (
	"context"
	"sort"
	"sync"
)

// MemoryRegistry is an in-process Registry. TTLs are ignored: entries live
// until deregistered. Useful for tests and single-host setups.
type MemoryRegistry struct {
	mu       sync.Mutex
	services map[string]map[string]ServiceInstance
	watchers map[string][]chan []ServiceInstance
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		services: make(map[string]map[string]ServiceInstance),
		watchers: make(map[string][]chan []ServiceInstance),
	}
}

func (r *MemoryRegistry) Register(ctx context.Context, serviceName string, instance ServiceInstance, ttl int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.services[serviceName] == nil {
		r.services[serviceName] = make(map[string]ServiceInstance)
	}
	r.services[serviceName][instance.Endpoint] = instance
	r.notifyLocked(serviceName)
	return nil
}

func (r *MemoryRegistry) Deregister(ctx context.Context, serviceName string, endpoint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.services[serviceName], endpoint)
	r.notifyLocked(serviceName)
	return nil
}

// Discover returns instances sorted by endpoint.
func (r *MemoryRegistry) Discover(ctx context.Context, serviceName string) ([]ServiceInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked(serviceName), nil
}

func (r *MemoryRegistry) Watch(ctx context.Context, serviceName string) <-chan []ServiceInstance {
	ch := make(chan []ServiceInstance, 1)
	r.mu.Lock()
	r.watchers[serviceName] = append(r.watchers[serviceName], ch)
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		ws := r.watchers[serviceName]
		for i, w := range ws {
			if w == ch {
				r.watchers[serviceName] = append(ws[:i], ws[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch
}

func (r *MemoryRegistry) listLocked(serviceName string) []ServiceInstance {
	instances := make([]ServiceInstance, 0, len(r.services[serviceName]))
	for _, inst := range r.services[serviceName] {
		instances = append(instances, inst)
	}
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].Endpoint < instances[j].Endpoint
	})
	return instances
}

// notifyLocked replaces any unread update so watchers only see the latest list.
func (r *MemoryRegistry) notifyLocked(serviceName string) {
	instances := r.listLocked(serviceName)
	for _, ch := range r.watchers[serviceName] {
		select {
		case <-ch:
		default:
		}
		ch <- instances
	}
}
