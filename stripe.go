package feedcache

import (
	"sync"
	"sync/atomic"

	"github.com/txfeed/feedcache/block"
)

// capacityLimiter bounds the total number of blocks ever allocated
// across every stripe. It is shared by pointer across all of a pool's
// stripes: capacity is a pool-wide contract (Config.Capacity), and
// letting each stripe floor its own share to at least one block would
// let the aggregate across many stripes exceed it, most visibly when
// Capacity is smaller than the stripe count. limit <= 0 means
// unbounded.
type capacityLimiter struct {
	limit int64
	used  atomic.Int64
}

func newCapacityLimiter(limit int) *capacityLimiter {
	return &capacityLimiter{limit: int64(limit)}
}

// tryAcquire reserves one unit of capacity, or reports false if the
// limit has already been reached.
func (c *capacityLimiter) tryAcquire() bool {
	if c.limit <= 0 {
		return true
	}
	for {
		used := c.used.Load()
		if used >= c.limit {
			return false
		}
		if c.used.CompareAndSwap(used, used+1) {
			return true
		}
	}
}

// stripe is one partition of the shared block pool: its own free list,
// guarded by its own mutex. Splitting the pool into stripes keeps
// checkout and check-in off a single global mutex when many
// partitions are checking out blocks concurrently, using a single hash
// rather than power-of-two-choices, since a stripe's job is spreading
// lock contention, not balancing read load. Capacity itself is enforced by
// the shared capacity limiter, not per stripe.
type stripe struct {
	mu sync.Mutex

	blockSize uint32
	capacity  *capacityLimiter
	allocated int
	free      []*block.Block
}

func newStripe(blockSize uint32, capacity *capacityLimiter) *stripe {
	return &stripe{blockSize: blockSize, capacity: capacity}
}

func (s *stripe) checkOut(key block.Key) (*block.Block, block.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.free); n > 0 {
		blk := s.free[n-1]
		s.free = s.free[:n-1]
		blk.Reset(key)
		return blk, block.StatusOK
	}

	if !s.capacity.tryAcquire() {
		return nil, block.StatusExhausted
	}

	blk := block.New(s.blockSize)
	blk.Reset(key)
	s.allocated++
	return blk, block.StatusOK
}

func (s *stripe) checkIn(blk *block.Block) {
	blk.Reset(block.Key{})
	s.mu.Lock()
	s.free = append(s.free, blk)
	s.mu.Unlock()
}

func (s *stripe) stats() (allocated, onFreeList int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocated, len(s.free)
}
