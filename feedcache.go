/*
Package feedcache implements the per-partition feed cache of a
distributed transaction log server: a shared pool of fixed-size blocks
checked out by per-partition local pools, with a frontier pointer for
O(1) sequential access and a reference-counted open/close lifecycle.

The cache sits in front of storage and answers "what is the feed data
for transaction T on partition P" from memory. It is not authoritative:
a miss here just means the caller falls through to storage, never that
the data doesn't exist.
*/
package feedcache

import (
	"hash/fnv"
	"runtime"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/txfeed/feedcache/block"
	"github.com/txfeed/feedcache/metrics"
	"github.com/txfeed/feedcache/partition"
)

// DefaultBlockSize is the recommended records-per-block constant: a
// power of two large enough to amortize checkout cost across many
// records, small enough that a cold partition's first block is cheap.
const DefaultBlockSize = 64

// defaultMaxBlocksPerPartition is used when Config.MaxBlocksPerPartition
// is left at zero.
const defaultMaxBlocksPerPartition = 2

// Config configures a SharedPool. Every field has a usable zero value;
// New resolves zero values to defaults, including a nil Metrics
// resolving to metrics.Noop.
type Config struct {
	// BlockSize is N, the number of records per block. Pool-wide and
	// fixed for the pool's lifetime. Zero selects DefaultBlockSize.
	BlockSize uint32

	// Capacity bounds the total number of blocks in circulation across
	// every partition (sharedPoolCapacity). Zero means unbounded.
	Capacity int

	// Stripes is the number of independent free-list stripes the pool
	// is split into, to keep checkout/check-in off one global mutex.
	// Zero or negative selects a default based on GOMAXPROCS.
	Stripes int

	// MaxBlocksPerPartition is the default per-partition capacity
	// given to newly created partitions. Callers may override it live
	// via PartitionCache.SetMaxBlocks. Zero or negative selects 2.
	MaxBlocksPerPartition int

	// Metrics receives checkout/check-in/miss/exhaustion counters.
	// Defaults to metrics.Noop if nil.
	Metrics metrics.Metrics

	// Logger receives structured diagnostics (pool exhaustion,
	// partitions going inactive on a closed pool). Never on the hit
	// path. Defaults to a disabled zerolog.Logger.
	Logger zerolog.Logger
}

// SharedPool is the process-wide allocator and reservoir of blocks. It
// owns every block in circulation and the registry of active
// PartitionCaches; a per-partition local pool only ever holds a
// checkout, never ownership.
type SharedPool struct {
	blockSize uint32
	maxBlocks int
	stripes   []*stripe
	metrics   metrics.Metrics
	log       zerolog.Logger

	partitions *partitionRegistry
	closed     atomic.Bool
}

var _ partition.Pool = (*SharedPool)(nil)

// New creates a SharedPool from cfg, resolving zero-valued fields to
// their defaults.
func New(cfg Config) *SharedPool {
	blockSize := cfg.BlockSize
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}

	stripeCount := cfg.Stripes
	if stripeCount <= 0 {
		stripeCount = runtime.GOMAXPROCS(0)
		if stripeCount < 1 {
			stripeCount = 1
		}
	}

	capacity := newCapacityLimiter(cfg.Capacity)

	stripes := make([]*stripe, stripeCount)
	for i := range stripes {
		stripes[i] = newStripe(blockSize, capacity)
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.Noop{}
	}

	maxBlocks := cfg.MaxBlocksPerPartition
	if maxBlocks <= 0 {
		maxBlocks = defaultMaxBlocksPerPartition
	}

	return &SharedPool{
		blockSize:  blockSize,
		maxBlocks:  maxBlocks,
		stripes:    stripes,
		metrics:    m,
		log:        cfg.Logger,
		partitions: newPartitionRegistry(),
	}
}

// stripeIndex hashes partitionId with FNV-1a to pick a stripe.
func stripeIndex(partitionId int32, n int) int {
	h := fnv.New32a()
	b := [4]byte{
		byte(partitionId),
		byte(partitionId >> 8),
		byte(partitionId >> 16),
		byte(partitionId >> 24),
	}
	h.Write(b[:])
	return int(h.Sum32() % uint32(n))
}

func (p *SharedPool) stripeFor(partitionId int32) *stripe {
	return p.stripes[stripeIndex(partitionId, len(p.stripes))]
}

// CheckOut satisfies partition.Pool. It returns StatusClosed once the
// pool has been shut down, regardless of what any individual stripe
// still has free.
func (p *SharedPool) CheckOut(key block.Key) (*block.Block, block.Status) {
	if p.closed.Load() {
		return nil, block.StatusClosed
	}

	blk, status := p.stripeFor(key.PartitionId).checkOut(key)
	switch status {
	case block.StatusOK:
		p.metrics.CheckOut()
	case block.StatusExhausted:
		p.metrics.Exhausted()
		p.log.Debug().
			Int32("partition", key.PartitionId).
			Uint64("base", key.BaseId).
			Msg("shared pool exhausted")
	}
	return blk, status
}

// CheckIn satisfies partition.Pool.
func (p *SharedPool) CheckIn(key block.Key, blk *block.Block) {
	p.stripeFor(key.PartitionId).checkIn(blk)
	p.metrics.CheckIn()
}

// CheckInAll satisfies partition.Pool.
func (p *SharedPool) CheckInAll(entries []block.Entry) {
	for _, e := range entries {
		p.CheckIn(e.Key, e.Block)
	}
}

// RemovePartition satisfies partition.Pool.
func (p *SharedPool) RemovePartition(partitionId int32) {
	p.partitions.Delete(partitionId)
}

// MarkCacheMiss satisfies partition.Pool.
func (p *SharedPool) MarkCacheMiss() {
	p.metrics.Miss()
}

// Partition returns the PartitionCache for partitionId, creating one
// bound to this pool on first use. Callers are expected to bracket
// their use of it with Open/Close.
func (p *SharedPool) Partition(partitionId int32) *partition.PartitionCache {
	return p.partitions.GetOrCreate(partitionId, func() *partition.PartitionCache {
		return partition.New(partitionId, p.blockSize, p.maxBlocks, p, p.log)
	})
}

// Close shuts the pool down permanently. Every subsequent CheckOut
// returns StatusClosed; existing partitions go inactive the next time
// they need a new block, and a closed pool cannot be reopened.
func (p *SharedPool) Close() {
	p.closed.Store(true)
}

// Stats reports coarse pool-wide block occupancy, summed across
// stripes.
type Stats struct {
	Allocated  int
	OnFreeList int
}

// Stats returns the pool's current occupancy.
func (p *SharedPool) Stats() Stats {
	var s Stats
	for _, st := range p.stripes {
		a, f := st.stats()
		s.Allocated += a
		s.OnFreeList += f
	}
	return s
}
