// Package dispatch plays the role of a feed dispatcher: the thing that
// calls PartitionCache.Get and, on a miss, consults storage. It is
// deliberately outside the cache's core (the core stays
// non-authoritative and never calls storage itself), but it is the
// obvious convenience to give callers who would otherwise repeat the
// same consult-cache-then-storage dance at every call site.
package dispatch

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/txfeed/feedcache"
	"github.com/txfeed/feedcache/feeddata"
)

// Storage is the read-through collaborator consulted on a cache miss.
type Storage interface {
	// Load fetches the record for (partitionId, transactionId) from
	// persistent storage. ok is false if no such record exists.
	Load(ctx context.Context, partitionId int32, transactionId uint64) (fd feeddata.FeedData, ok bool, err error)
}

// Dispatcher pairs a SharedPool with a Storage fallback. On a cache
// miss it lets exactly one caller per (partition, transactionId) hit
// storage while every other concurrent caller for the same pair waits
// for that result, via singleflight.
type Dispatcher struct {
	pool    *feedcache.SharedPool
	storage Storage
	sf      singleflight.Group
}

// New builds a Dispatcher over pool, falling back to storage on a
// cache miss.
func New(pool *feedcache.SharedPool, storage Storage) *Dispatcher {
	return &Dispatcher{pool: pool, storage: storage}
}

func dispatchKey(partitionId int32, transactionId uint64) string {
	return fmt.Sprintf("%d:%d", partitionId, transactionId)
}

// Get consults the partition's cache first; on a miss it loads from
// storage (deduplicated via singleflight), then makes a best-effort
// attempt to repopulate the cache so the next reader hits it.
//
// That repopulation is frequently a no-op by design: Add only succeeds
// when transactionId is exactly the next expected id in whatever block
// it targets, so backfilling a single record loaded out of commit
// order usually gets silently dropped (the same dense-fill invariant
// that protects the write path protects this one). This is intentional,
// not a bug: the cache does not coalesce requests or batch storage
// I/O, and it never claims to be a write-through buffer.
func (d *Dispatcher) Get(ctx context.Context, partitionId int32, transactionId uint64) (feeddata.FeedData, bool, error) {
	part := d.pool.Partition(partitionId)

	if fd, ok := part.Get(transactionId); ok {
		return fd, true, nil
	}

	key := dispatchKey(partitionId, transactionId)
	v, err, _ := d.sf.Do(key, func() (any, error) {
		fd, ok, err := d.storage.Load(ctx, partitionId, transactionId)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return fd, nil
	})
	if err != nil {
		return feeddata.FeedData{}, false, err
	}
	if v == nil {
		return feeddata.FeedData{}, false, nil
	}

	fd := v.(feeddata.FeedData)
	part.Add(fd.TransactionId, fd.ReqId, fd.Header)
	return fd, true, nil
}
