// Package ledger implements the fixed-capacity slot table that tracks blocks
// for the allocator.
//
// # Slots
//
// A Ledger maps a small integer slot id to a block.Block or to nothing. The
// table never grows: when every slot is occupied Insert fails with
// ErrOutOfSlots. Ids are handed out with a first-empty policy, so an id freed by
// Remove is the next one Insert returns:
//
//	l := ledger.New(4)
//	a, _ := l.Insert(block.New(0, 10))  // 0
//	b, _ := l.Insert(block.New(10, 10)) // 1
//	_ = l.Remove(a)
//	c, _ := l.Insert(block.New(20, 10)) // 0 again
//
// Occupancy is kept in a roaring bitmap. The first empty slot is found with a
// rank search over the bitmap, and scans in slot order iterate the bitmap.
//
// # Address index
//
// Blocks held by one ledger never overlap, so the block starting at an address
// and the block ending at an address are each unique. A B-tree keyed by start
// offset answers both lookups (StartingAt, EndingAt) and gives address-ordered
// iteration (Ascend) without scanning every slot.
//
// # Coalescing
//
// InsertCoalesced is the free-list insert: it repeatedly absorbs any held block
// that is adjacent to the incoming one, then inserts the merged block. A ledger
// filled only through InsertCoalesced never holds two adjacent blocks.
//
// # Thread Safety
//
// Ledger instances are not thread-safe.
package ledger
