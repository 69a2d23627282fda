package block

// Key identifies a block: the partition it belongs to and the base
// transaction id of the range it covers. Key is a plain comparable
// struct, so two keys with the same fields are the same map key. Go's
// map equality already gives the by-value interning the cache needs;
// no separate interning table is required.
type Key struct {
	PartitionId int32
	BaseId      uint64
}

// KeyFor computes the key of the block that would hold transactionId,
// given the pool-wide block size in records.
func KeyFor(partitionId int32, transactionId uint64, size uint32) Key {
	n := uint64(size)
	return Key{PartitionId: partitionId, BaseId: transactionId - transactionId%n}
}
