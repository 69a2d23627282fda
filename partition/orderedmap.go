package partition

import "github.com/txfeed/feedcache/block"

// node is one entry in the insertion-ordered local pool.
type node struct {
	key  block.Key
	blk  *block.Block
	prev *node
	next *node
}

// orderedBlocks is an insertion-ordered key->block map: O(1) lookup,
// O(1) append, O(1) removal by key. Unlike a plain LRU list, Get never
// reorders entries: the local pool's order is the order blocks were
// checked out in, not the order they were last read, because the
// frontier (not recency) is what the cache optimizes for. A doubly-linked list plus a map is one of several
// structures that satisfy this; an indexed ring buffer would do as
// well.
type orderedBlocks struct {
	nodes map[block.Key]*node
	head  *node // oldest
	tail  *node // newest
}

func newOrderedBlocks() *orderedBlocks {
	return &orderedBlocks{nodes: make(map[block.Key]*node)}
}

func (o *orderedBlocks) Len() int { return len(o.nodes) }

func (o *orderedBlocks) Get(key block.Key) (*block.Block, bool) {
	n, ok := o.nodes[key]
	if !ok {
		return nil, false
	}
	return n.blk, true
}

// PushBack appends key/blk as the newest entry. The caller guarantees
// key is not already present.
func (o *orderedBlocks) PushBack(key block.Key, blk *block.Block) {
	n := &node{key: key, blk: blk}
	o.nodes[key] = n
	if o.tail == nil {
		o.head, o.tail = n, n
		return
	}
	n.prev = o.tail
	o.tail.next = n
	o.tail = n
}

func (o *orderedBlocks) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		o.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		o.tail = n.prev
	}
	delete(o.nodes, n.key)
}

// Delete removes key if present.
func (o *orderedBlocks) Delete(key block.Key) {
	if n, ok := o.nodes[key]; ok {
		o.unlink(n)
	}
}

// EvictOldestExcept removes and returns the oldest entry whose block is
// not skip. ok is false when every remaining entry is skip, meaning
// only the frontier is left and there is nothing more to evict.
func (o *orderedBlocks) EvictOldestExcept(skip *block.Block) (key block.Key, blk *block.Block, ok bool) {
	for n := o.head; n != nil; n = n.next {
		if n.blk == skip {
			continue
		}
		key, blk = n.key, n.blk
		o.unlink(n)
		return key, blk, true
	}
	return block.Key{}, nil, false
}

// Entries returns every held block paired with its key, in insertion
// order. Used for bulk check-in on clear/teardown.
func (o *orderedBlocks) Entries() []block.Entry {
	out := make([]block.Entry, 0, len(o.nodes))
	for n := o.head; n != nil; n = n.next {
		out = append(out, block.Entry{Key: n.key, Block: n.blk})
	}
	return out
}

func (o *orderedBlocks) Clear() {
	o.nodes = make(map[block.Key]*node)
	o.head, o.tail = nil, nil
}
