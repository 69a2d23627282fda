// Package partition implements the per-partition working set of the
// feed cache: the blocks currently checked out of the shared pool, the
// frontier that makes sequential access O(1), and the reference count
// that gates teardown.
package partition

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/txfeed/feedcache/block"
	"github.com/txfeed/feedcache/feeddata"
)

// PartitionCache is the per-partition working set: an insertion-
// ordered set of checked-out blocks, a frontier pointer, a per-
// partition capacity, and a reference count.
//
// Every public method is serialized by mu, covering the whole method
// body. The critical section may call into Pool but must never
// re-enter this PartitionCache: Pool is designed to be a leaf in the
// lock order.
type PartitionCache struct {
	mu sync.Mutex

	partitionId int32
	blockSize   uint32
	pool        Pool
	log         zerolog.Logger

	localPool *orderedBlocks
	frontier  *block.Block
	maxBlocks int
	refCount  int
}

// New constructs a PartitionCache bound to pool. It starts with
// refCount 0 and no blocks; Open must be called before Add/Get have
// any effect.
func New(partitionId int32, blockSize uint32, maxBlocks int, pool Pool, log zerolog.Logger) *PartitionCache {
	return &PartitionCache{
		partitionId: partitionId,
		blockSize:   blockSize,
		pool:        pool,
		log:         log.With().Int32("partition", partitionId).Logger(),
		localPool:   newOrderedBlocks(),
		maxBlocks:   maxBlocks,
	}
}

// Open increments the reference count. No other effect.
func (p *PartitionCache) Open() {
	p.mu.Lock()
	p.refCount++
	p.mu.Unlock()
}

// Close decrements the reference count. On the decrement that drives
// it to zero or below (over-close is tolerated), the partition is
// cleared and deregistered from the shared pool. A subsequent Open on
// this instance is undefined; callers must look up a fresh
// PartitionCache.
func (p *PartitionCache) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refCount--
	if p.refCount <= 0 {
		p.clearLocked()
		p.pool.RemovePartition(p.partitionId)
	}
}

// Clear checks every held block back into the shared pool and drops
// the frontier, without touching the reference count.
func (p *PartitionCache) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
}

func (p *PartitionCache) clearLocked() {
	if entries := p.localPool.Entries(); len(entries) > 0 {
		p.pool.CheckInAll(entries)
	}
	p.localPool.Clear()
	p.frontier = nil
}

// SetMaxBlocks sets the partition's block capacity and immediately
// evicts down to it. Capacity is a property of the instance, not of
// its activation: this works whether or not the partition is
// currently open, and is safe to call on an empty pool.
func (p *PartitionCache) SetMaxBlocks(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxBlocks = n
	p.evictLocked(n)
}

// MaxBlocks returns the partition's current block capacity.
func (p *PartitionCache) MaxBlocks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxBlocks
}

// NumBlocks returns the number of blocks currently held.
func (p *PartitionCache) NumBlocks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.localPool.Len()
}

// RefCount returns the current reference count.
func (p *PartitionCache) RefCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refCount
}

// Add appends one record. Records for a given partition must arrive in
// ascending transactionId order; Add is a no-op if the partition has
// no open subscribers.
func (p *PartitionCache) Add(transactionId uint64, reqId feeddata.ReqId, header int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refCount <= 0 {
		return
	}
	p.addOneLocked(transactionId, reqId, header)
}

// addOneLocked tries the frontier first, then retargets at most once.
// A record that still can't be appended after retargeting, already
// present or the writer skipped ahead, is dropped without mutation:
// the cache is a hint, not a source of truth, and it refuses to paper
// over a commit-order bug by guessing.
//
// This bounds what would otherwise be an unbounded retry: retargeting
// to the same resident block and trying the same record again can
// never change the outcome, so a second failure is permanent.
func (p *PartitionCache) addOneLocked(transactionId uint64, reqId feeddata.ReqId, header int32) {
	if p.frontier != nil && p.frontier.Add(transactionId, reqId, header) {
		return
	}

	key := block.KeyFor(p.partitionId, transactionId, p.blockSize)
	blk, ok := p.localPool.Get(key)
	if !ok {
		var status block.Status
		blk, status = p.checkOutLocked(key)
		if status != block.StatusOK {
			return
		}
	}
	p.frontier = blk
	blk.Add(transactionId, reqId, header)
}

// AddAll bulk-appends records assumed to already be in ascending
// transactionId order. A single rolling block reference avoids
// rehashing the key for every record inside the same block, falling
// back to a key lookup only when a record crosses a block boundary.
func (p *PartitionCache) AddAll(records []feeddata.FeedData) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refCount <= 0 {
		return
	}

	var cur *block.Block
	for _, r := range records {
		if cur != nil && cur.Add(r.TransactionId, r.ReqId, r.Header) {
			continue
		}

		key := block.KeyFor(p.partitionId, r.TransactionId, p.blockSize)
		blk, ok := p.localPool.Get(key)
		if !ok {
			var status block.Status
			blk, status = p.checkOutLocked(key)
			if status != block.StatusOK {
				// Pool closed or exhausted mid-batch: stop, matching
				// Add's own closed-pool behavior.
				return
			}
		}

		cur = blk
		p.frontier = cur
		cur.Add(r.TransactionId, r.ReqId, r.Header)
	}
}

// Get returns the record for transactionId, or (zero, false) on a
// cache miss, an inactive partition, or a closed pool. Get never moves
// the frontier: the frontier tracks the most recent write target, and
// reordering it on a read would defeat the sequential-write fast path.
func (p *PartitionCache) Get(transactionId uint64) (feeddata.FeedData, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refCount <= 0 {
		return feeddata.FeedData{}, false
	}

	if p.frontier != nil {
		if fd, ok := p.frontier.Get(transactionId); ok {
			return fd, true
		}
	}

	key := block.KeyFor(p.partitionId, transactionId, p.blockSize)
	blk, ok := p.localPool.Get(key)
	if !ok {
		var status block.Status
		blk, status = p.checkOutLocked(key)
		if status != block.StatusOK {
			return feeddata.FeedData{}, false
		}
	}

	fd, ok := blk.Get(transactionId)
	if !ok {
		// The block covers this id's range but the slot is empty: a
		// genuine miss, reported for statistics only. An inactive
		// partition or closed pool never reaches this line.
		p.pool.MarkCacheMiss()
	}
	return fd, ok
}

// checkOutLocked evicts down to maxBlocks-1, then checks a block out
// of the shared pool and installs it. Evicting before checkout, not
// after, bounds the transient overshoot to exactly one slot: the
// block this call installs is the only way localPool can exceed
// maxBlocks, and installing it is this call's last action.
func (p *PartitionCache) checkOutLocked(key block.Key) (*block.Block, block.Status) {
	p.evictLocked(p.maxBlocks - 1)

	blk, status := p.pool.CheckOut(key)
	if status != block.StatusOK {
		if status == block.StatusClosed {
			p.log.Debug().Msg("shared pool closed, partition going inactive")
		}
		return nil, status
	}

	p.localPool.PushBack(key, blk)
	return blk, block.StatusOK
}

// evictLocked reduces the local pool to at most target blocks, oldest
// first, never evicting the frontier.
func (p *PartitionCache) evictLocked(target int) {
	if target < 0 {
		target = 0
	}
	for p.localPool.Len() > target {
		key, blk, ok := p.localPool.EvictOldestExcept(p.frontier)
		if !ok {
			break
		}
		p.pool.CheckIn(key, blk)
	}
}
