// Package api documents the two contracts the feed cache sits between,
// without being implemented against directly anywhere else in this
// module: a single place that states the public surface in one
// readable block, separate from the concrete types that satisfy it.
package api

import (
	"github.com/txfeed/feedcache/block"
	"github.com/txfeed/feedcache/feeddata"
)

// Consumer is the contract the server's feed-dispatch and record-
// ingest layers use. *partition.PartitionCache satisfies it.
type Consumer interface {
	// Open increments the reference count for a new subscriber.
	Open()

	// Close decrements the reference count; on the decrement to zero
	// (or below), the partition is cleared and deregistered.
	Close()

	// Add appends one record. Records must arrive in ascending
	// transactionId order. A no-op while there are no open
	// subscribers.
	Add(transactionId uint64, reqId feeddata.ReqId, header int32)

	// AddAll bulk-appends records, assumed already in ascending order.
	AddAll(records []feeddata.FeedData)

	// Get returns the record for transactionId, or (zero, false) on a
	// miss, an inactive partition, or a closed pool.
	Get(transactionId uint64) (feeddata.FeedData, bool)

	// SetMaxBlocks sets this partition's block capacity and evicts
	// down to it immediately.
	SetMaxBlocks(n int)

	MaxBlocks() int
	NumBlocks() int
}

// Provider is the contract the shared pool must supply to every
// PartitionCache. *feedcache.SharedPool satisfies it (as
// partition.Pool, which is the same method set under a name that
// avoids an import cycle between the partition and root packages).
type Provider interface {
	CheckOut(key block.Key) (*block.Block, block.Status)
	CheckIn(key block.Key, blk *block.Block)
	CheckInAll(entries []block.Entry)
	RemovePartition(partitionId int32)
	MarkCacheMiss()
}
