package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"
	"strings"
	"sync"

	"nodara-sdk/registry"
)

// ConsistentHashBalancer maps keys to instances on a hash ring. The same key
// maps to the same node until the node set changes, and a change only moves
// the keys owned by the nodes that came or went.
//
// Each node is placed on the ring as replicas virtual nodes so that a few
// real nodes still split the key space evenly.
type ConsistentHashBalancer struct {
	mu       sync.RWMutex
	replicas int
	ring     []uint32                             // Sorted hash values
	nodes    map[uint32]*registry.ServiceInstance // Hash value -> instance
	members  string                               // Fingerprint of the node set the ring was built from
}

// NewConsistentHashBalancer creates a hash ring with 100 virtual nodes per instance.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		nodes:    make(map[uint32]*registry.ServiceInstance),
	}
}

// Add places an instance onto the ring.
func (b *ConsistentHashBalancer) Add(instance *registry.ServiceInstance) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addLocked(instance)
}

func (b *ConsistentHashBalancer) addLocked(instance *registry.ServiceInstance) {
	for i := 0; i < b.replicas; i++ {
		hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", instance.Endpoint, i)))
		b.ring = append(b.ring, hash)
		b.nodes[hash] = instance
	}
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

// Lookup finds the instance owning key: the first ring entry at or after the
// key's hash, wrapping around to the start.
func (b *ConsistentHashBalancer) Lookup(key string) (*registry.ServiceInstance, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lookupLocked(key)
}

func (b *ConsistentHashBalancer) lookupLocked(key string) (*registry.ServiceInstance, error) {
	if len(b.ring) == 0 {
		return nil, ErrNoInstances
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

// PickKey rebuilds the ring when instances differ from the last call, then
// looks up key.
func (b *ConsistentHashBalancer) PickKey(instances []registry.ServiceInstance, key string) (*registry.ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	members := fingerprint(instances)

	b.mu.RLock()
	if b.members == members {
		defer b.mu.RUnlock()
		return b.lookupLocked(key)
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.members != members {
		b.ring = b.ring[:0]
		b.nodes = make(map[uint32]*registry.ServiceInstance, len(instances)*b.replicas)
		for i := range instances {
			inst := instances[i]
			b.addLocked(&inst)
		}
		b.members = members
	}
	return b.lookupLocked(key)
}

// Pick without a key hashes the empty key, so every call lands on one node.
func (b *ConsistentHashBalancer) Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	return b.PickKey(instances, "")
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}

func fingerprint(instances []registry.ServiceInstance) string {
	endpoints := make([]string, len(instances))
	for i, inst := range instances {
		endpoints[i] = inst.Endpoint
	}
	sort.Strings(endpoints)
	return strings.Join(endpoints, "\x00")
}
