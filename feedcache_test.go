package feedcache_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txfeed/feedcache"
	"github.com/txfeed/feedcache/feeddata"
)

func reqId(b byte) feeddata.ReqId {
	var r feeddata.ReqId
	r[0] = b
	return r
}

func TestPartitionIsASingletonPerId(t *testing.T) {
	pool := feedcache.New(feedcache.Config{BlockSize: 4})

	a := pool.Partition(7)
	b := pool.Partition(7)
	c := pool.Partition(9)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestOpenAddGetAcrossTwoPartitions(t *testing.T) {
	pool := feedcache.New(feedcache.Config{BlockSize: 4})

	p7 := pool.Partition(7)
	p9 := pool.Partition(9)
	p7.Open()
	p9.Open()

	p7.Add(0, reqId('a'), 0xA)
	p9.Add(0, reqId('b'), 0xB)

	fd7, ok := p7.Get(0)
	require.True(t, ok)
	assert.Equal(t, reqId('a'), fd7.ReqId)

	fd9, ok := p9.Get(0)
	require.True(t, ok)
	assert.Equal(t, reqId('b'), fd9.ReqId)
}

func TestClosingLastSubscriberDeregistersPartition(t *testing.T) {
	pool := feedcache.New(feedcache.Config{BlockSize: 4})

	p := pool.Partition(7)
	p.Open()
	p.Add(0, reqId('a'), 0xA)
	p.Close()

	fresh := pool.Partition(7)
	assert.NotSame(t, p, fresh, "a torn-down partition must not be reused under its old id")
}

func TestCapacityExhaustionReturnsFalseStatusToCaller(t *testing.T) {
	pool := feedcache.New(feedcache.Config{BlockSize: 4, Capacity: 1, Stripes: 1, MaxBlocksPerPartition: 8})

	p := pool.Partition(7)
	p.Open()

	p.Add(0, reqId('a'), 0xA)  // consumes the pool's one block
	p.Add(4, reqId('b'), 0xB)  // second block: pool exhausted, Add is a silent no-op

	_, ok := p.Get(4)
	assert.False(t, ok, "the second block was never actually checked out")

	fd, ok := p.Get(0)
	require.True(t, ok)
	assert.Equal(t, reqId('a'), fd.ReqId)
}

// Capacity is a pool-wide bound, not a per-stripe one: it must hold
// even when Capacity is smaller than the stripe count, which is
// exactly the configuration a per-stripe floor-to-one-block scheme
// would silently overshoot.
func TestCapacityIsEnforcedAcrossAllStripes(t *testing.T) {
	const capacity = 3
	pool := feedcache.New(feedcache.Config{BlockSize: 4, Capacity: capacity, Stripes: 8, MaxBlocksPerPartition: 8})

	const partitionCount = 20
	hits := 0
	for pid := int32(0); pid < partitionCount; pid++ {
		p := pool.Partition(pid)
		p.Open()
		p.Add(0, reqId('a'), 0xA)
		if _, ok := p.Get(0); ok {
			hits++
		}
	}

	assert.Equal(t, capacity, hits, "at most Capacity blocks may ever be checked out, regardless of stripe count")
	assert.Equal(t, capacity, pool.Stats().Allocated)
}

func TestClosedPoolMakesEveryPartitionInactiveForNewBlocks(t *testing.T) {
	pool := feedcache.New(feedcache.Config{BlockSize: 4})

	p := pool.Partition(7)
	p.Open()
	p.Add(0, reqId('a'), 0xA)

	pool.Close()

	// The block already checked out stays readable...
	fd, ok := p.Get(0)
	require.True(t, ok)
	assert.Equal(t, reqId('a'), fd.ReqId)

	// ...but nothing new can be checked out of a closed pool.
	p.Add(4, reqId('b'), 0xB)
	_, ok = p.Get(4)
	assert.False(t, ok)
}

func TestStatsReflectsRecycling(t *testing.T) {
	pool := feedcache.New(feedcache.Config{BlockSize: 4, Stripes: 1, MaxBlocksPerPartition: 2})

	p := pool.Partition(7)
	p.Open()

	p.Add(0, reqId('a'), 0xA)
	p.Add(4, reqId('b'), 0xB)
	mid := pool.Stats()
	assert.Equal(t, 2, mid.Allocated)
	assert.Equal(t, 0, mid.OnFreeList)

	// A third block, with the partition already at its two-block
	// capacity, evicts the oldest (non-frontier) block back to the
	// stripe's free list and reuses it rather than allocating a third.
	p.Add(8, reqId('c'), 0xC)
	after := pool.Stats()
	assert.Equal(t, 2, after.Allocated)
	assert.Equal(t, 0, after.OnFreeList)
}

func TestConcurrentPartitionCreationYieldsOneInstance(t *testing.T) {
	pool := feedcache.New(feedcache.Config{BlockSize: 4})

	const n = 50
	found := make(chan any, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			found <- pool.Partition(42)
		}()
	}
	wg.Wait()
	close(found)

	var first any
	for v := range found {
		if first == nil {
			first = v
			continue
		}
		assert.Same(t, first, v)
	}
}
