// Package alloc provides a first-fit allocator over a fixed, caller-owned byte arena.
//
// # Overview
//
// The allocator implements the malloc / realloc / free family entirely over a
// []byte supplied by the caller. It never grows the arena and never allocates
// arena memory itself. Two fixed-capacity ledgers (see package ledger) track the
// arena: the used ledger holds live allocations and the free ledger holds the
// rest. Together they partition the arena, byte for byte.
//
// # Operations
//
//   - Allocate(n): first-fit over the free ledger in slot order, splitting the chosen block
//   - Resize(h, n): shrink in place, grow into the adjacent free block, or relocate
//   - Release(h): return the block to the free ledger, merging with free neighbours
//   - Compact(): slide used blocks toward the base so free space collects at the top
//
// # Usage Example
//
//	buf := make([]byte, 64<<10)
//	a, err := alloc.New(buf, nil)
//	if err != nil {
//	    return err
//	}
//
//	h, err := a.Allocate(256)
//	if err != nil {
//	    return err
//	}
//	b, _ := a.Bytes(h)
//	copy(b, payload)
//
//	// Grow; the handle stays the same even if the bytes move.
//	if err := a.Resize(&h, 1024); errors.Is(err, alloc.ErrOutOfMemory) {
//	    a.Compact()
//	    err = a.Resize(&h, 1024)
//	}
//
//	_ = a.Release(&h) // h is now the null handle
//
// # Handles
//
// A Handle is a used-ledger slot id plus a generation. It does not hold an
// address: the allocator resolves the current block on every call, so Resize
// and Compact may move the bytes freely. Byte slices from Bytes alias the arena
// and go stale on the next Resize or Compact; re-fetch them afterwards.
//
// The zero Handle is the null handle. Resize on a null handle allocates.
// Release on a null or already released handle fails with ErrInvalidFree.
//
// # Resize Paths
//
// Growing by delta bytes first looks for a free block starting right after the
// allocation:
//
//	size >  delta  the free block's start moves right by delta (no copy)
//	size == delta  the free block is absorbed entirely (no copy)
//	otherwise      first-fit for the full new size, copy, free the old range
//
// The relocation search asks for the new size, not delta, and the used slot id
// is kept so the caller's handle needs no update.
//
// # Compaction
//
// Compact repeatedly picks the lowest used block that has a free block directly
// before it and copies it down over that gap. The vacated range is merged into
// the following free space. Blocks never change order, and when no used block
// has a gap before it all free space sits in one run at the top of the arena.
//
// # Errors
//
// Failures leave the ledgers and the arena untouched: fit and slot capacity are
// checked before anything is mutated. Nothing is retried internally.
//
//   - ErrOutOfMemory: no free block is large enough
//   - ErrOutOfSlots: a ledger has no empty slot for a block the operation must insert
//   - ErrInvalidFree: release of a null or released handle
//   - ErrInvalidSlot: a handle whose slot holds no block, or a stale handle
//   - ErrInvalidSize: a non-positive size
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Shared use needs one mutex per
// Allocator held around every call; coalescing and compaction touch arbitrary
// slots, so finer locking is not safe.
//
// # Debug Logging
//
// Out-of-memory refusals, relocations and compaction moves are logged at debug
// level to Options.Logger, falling back to the process logger. Setting
// ARENAKIT_LOG_ALLOC sends them to stderr instead.
package alloc
