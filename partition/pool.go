package partition

import "github.com/txfeed/feedcache/block"

// Pool is the entire contract a PartitionCache needs from the shared
// block pool. A PartitionCache never inspects the pool's internals:
// this interface is its whole view of it, which is also what keeps
// this package from importing the pool's implementation package and
// creating an import cycle (the pool, in turn, holds *PartitionCache
// instances in its registry).
type Pool interface {
	// CheckOut returns a block bound to key, or a non-OK Status if the
	// pool is closed or at capacity.
	CheckOut(key block.Key) (*block.Block, block.Status)

	// CheckIn resets block and returns it to circulation.
	CheckIn(key block.Key, blk *block.Block)

	// CheckInAll bulk check-ins an entire local pool on teardown.
	CheckInAll(entries []block.Entry)

	// RemovePartition deregisters a partition whose refCount has hit
	// zero.
	RemovePartition(partitionId int32)

	// MarkCacheMiss records a statistics-only cache miss.
	MarkCacheMiss()
}
