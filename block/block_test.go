package block

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/txfeed/feedcache/feeddata"
)

func reqId(b byte) feeddata.ReqId {
	var r feeddata.ReqId
	r[0] = b
	return r
}

func TestAddFillsContiguouslyFromBase(t *testing.T) {
	b := New(4)
	b.Reset(Key{PartitionId: 7, BaseId: 0})

	for i, tid := range []uint64{0, 1, 2, 3} {
		if !b.Add(tid, reqId(byte(i)), int32(i)) {
			t.Fatalf("add(%d) failed unexpectedly", tid)
		}
	}

	if b.FillLevel() != 4 {
		t.Fatalf("expected fill level 4, got %d", b.FillLevel())
	}
}

func TestAddRejectsOutOfRange(t *testing.T) {
	b := New(4)
	b.Reset(Key{PartitionId: 7, BaseId: 0})

	if b.Add(4, reqId(1), 1) {
		t.Fatalf("add(4) should fail: outside [0,4)")
	}
	if b.FillLevel() != 0 {
		t.Fatalf("failed add must not mutate fill level")
	}
}

func TestAddRejectsNonNextOffset(t *testing.T) {
	b := New(4)
	b.Reset(Key{PartitionId: 7, BaseId: 0})

	if b.Add(1, reqId(1), 1) {
		t.Fatalf("add(1) should fail before add(0)")
	}

	if !b.Add(0, reqId(1), 1) {
		t.Fatalf("add(0) should succeed")
	}

	// Re-adding an already-filled id is rejected too, even though it's
	// in range: the block is append-only within its range.
	if b.Add(0, reqId(2), 2) {
		t.Fatalf("re-add(0) should fail: already present")
	}
}

func TestGetIsNonDestructive(t *testing.T) {
	b := New(4)
	b.Reset(Key{PartitionId: 7, BaseId: 0})
	b.Add(0, reqId(9), 42)

	want := feeddata.FeedData{TransactionId: 0, ReqId: reqId(9), Header: 42}

	for i := 0; i < 3; i++ {
		got, ok := b.Get(0)
		if !ok {
			t.Fatalf("get(0) miss on attempt %d", i)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("get(0) mismatch on attempt %d:\n%s", i, diff)
		}
	}
}

func TestGetAbsentBeyondFillLevel(t *testing.T) {
	b := New(4)
	b.Reset(Key{PartitionId: 7, BaseId: 0})
	b.Add(0, reqId(1), 1)

	if _, ok := b.Get(1); ok {
		t.Fatalf("get(1) should be absent: not yet filled")
	}
	if _, ok := b.Get(10); ok {
		t.Fatalf("get(10) should be absent: out of range")
	}
}

func TestResetDrainsAndRebinds(t *testing.T) {
	b := New(4)
	b.Reset(Key{PartitionId: 7, BaseId: 0})
	b.Add(0, reqId(1), 1)
	b.Add(1, reqId(2), 2)

	b.Reset(Key{PartitionId: 9, BaseId: 100})

	if b.FillLevel() != 0 {
		t.Fatalf("reset must drain fill level, got %d", b.FillLevel())
	}
	if _, ok := b.Get(0); ok {
		t.Fatalf("reset block must not retain old data")
	}
	if !b.Add(100, reqId(3), 3) {
		t.Fatalf("block should accept base id of its new range after reset")
	}
}

func TestKeyFor(t *testing.T) {
	cases := []struct {
		tid  uint64
		size uint32
		base uint64
	}{
		{0, 64, 0},
		{63, 64, 0},
		{64, 64, 64},
		{127, 64, 64},
		{5, 4, 4},
	}
	for _, c := range cases {
		got := KeyFor(7, c.tid, c.size)
		if got.BaseId != c.base || got.PartitionId != 7 {
			t.Fatalf("KeyFor(7, %d, %d) = %+v, want base %d", c.tid, c.size, got, c.base)
		}
	}
}
