package feedcache

import (
	"sync"
	"sync/atomic"

	"github.com/txfeed/feedcache/partition"
)

// partitionRegistry is a copy-on-write map from partitionId to its
// PartitionCache. Reads (the hot path, since every subscriber's
// open/close looks one up) never block; a write builds a whole new
// map and swaps it in atomically.
type partitionRegistry struct {
	data atomic.Value // map[int32]*partition.PartitionCache
	mu   sync.Mutex   // serializes the read-modify-write of GetOrCreate/Delete
}

func newPartitionRegistry() *partitionRegistry {
	r := &partitionRegistry{}
	r.data.Store(make(map[int32]*partition.PartitionCache))
	return r
}

func (r *partitionRegistry) Get(id int32) (*partition.PartitionCache, bool) {
	m := r.data.Load().(map[int32]*partition.PartitionCache)
	p, ok := m[id]
	return p, ok
}

// GetOrCreate returns the existing partition for id, or creates one
// with newFn under the registry's write lock so concurrent callers
// never race to create two instances for the same id.
func (r *partitionRegistry) GetOrCreate(id int32, newFn func() *partition.PartitionCache) *partition.PartitionCache {
	if p, ok := r.Get(id); ok {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.data.Load().(map[int32]*partition.PartitionCache)
	if p, ok := old[id]; ok {
		return p
	}

	p := newFn()

	n := make(map[int32]*partition.PartitionCache, len(old)+1)
	for k, v := range old {
		n[k] = v
	}
	n[id] = p
	r.data.Store(n)

	return p
}

func (r *partitionRegistry) Delete(id int32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.data.Load().(map[int32]*partition.PartitionCache)
	if _, ok := old[id]; !ok {
		return
	}

	n := make(map[int32]*partition.PartitionCache, len(old)-1)
	for k, v := range old {
		if k != id {
			n[k] = v
		}
	}
	r.data.Store(n)
}
