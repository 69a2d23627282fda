// Package feeddata defines the triple the feed cache stores: a
// transaction id, its request id, and its record header flags.
package feeddata

// ReqIdSize is the fixed byte width of a request id.
const ReqIdSize = 24

// ReqId is an opaque, fixed-size request identifier attached to every
// committed record. It has no internal structure the cache cares about.
type ReqId [ReqIdSize]byte

// FeedData is the immutable triple describing one committed record.
// Everything downstream of the cache treats it as a value type: blocks
// copy it in and out of slots rather than holding pointers to it.
type FeedData struct {
	TransactionId uint64
	ReqId         ReqId
	Header        int32
}
