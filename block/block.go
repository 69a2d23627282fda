// Package block implements the fixed-capacity container the feed
// cache's shared pool allocates, recycles, and hands out under a Key.
package block

import "github.com/txfeed/feedcache/feeddata"

// Block is a fixed-capacity, contiguous run of feed data covering
// [key.BaseId, key.BaseId+size). Slots fill strictly in ascending
// order from offset 0; there are never holes below the fill level,
// because feed records are committed strictly in order and any gap
// would mean a skipped or out-of-order commit.
type Block struct {
	key       Key
	size      uint32
	fillLevel uint32
	slots     []feeddata.FeedData
}

// New allocates a block with the given capacity. The shared pool
// allocates these once and reuses them for the lifetime of the
// process via Reset, rather than reallocating per checkout.
func New(size uint32) *Block {
	return &Block{
		size:  size,
		slots: make([]feeddata.FeedData, size),
	}
}

// Key returns the block's current identity.
func (b *Block) Key() Key { return b.key }

// FillLevel returns how many slots, counted from offset 0, are filled.
func (b *Block) FillLevel() uint32 { return b.fillLevel }

// Size returns the block's fixed capacity in records.
func (b *Block) Size() uint32 { return b.size }

// Add stores the triple for transactionId iff it is exactly the next
// expected id in this block's range (transactionId equals
// key.BaseId+fillLevel and lies within [key.BaseId, key.BaseId+size)).
// Any other transactionId, including one already present, leaves the
// block untouched and returns false: that is the caller's signal to
// find or allocate a different block.
func (b *Block) Add(transactionId uint64, reqId feeddata.ReqId, header int32) bool {
	if transactionId < b.key.BaseId || transactionId >= b.key.BaseId+uint64(b.size) {
		return false
	}
	offset := transactionId - b.key.BaseId
	if offset != uint64(b.fillLevel) {
		return false
	}
	b.slots[offset] = feeddata.FeedData{TransactionId: transactionId, ReqId: reqId, Header: header}
	b.fillLevel++
	return true
}

// Get returns the record for transactionId if it has been filled.
// Reads never mutate the block.
func (b *Block) Get(transactionId uint64) (feeddata.FeedData, bool) {
	if transactionId < b.key.BaseId || transactionId >= b.key.BaseId+uint64(b.fillLevel) {
		return feeddata.FeedData{}, false
	}
	return b.slots[transactionId-b.key.BaseId], true
}

// Reset drains the block and rebinds it to key. It is pool-internal:
// the shared pool calls it on check-in, before the block becomes
// eligible for a future checkout under any key, and again on checkout
// to bind the block to the key it is handed out under.
func (b *Block) Reset(key Key) {
	b.key = key
	b.fillLevel = 0
}
