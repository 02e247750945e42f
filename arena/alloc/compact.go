package alloc

import (
	"fmt"

	"github.com/joshuapare/arenakit/arena/block"
	"github.com/joshuapare/arenakit/arena/ledger"
)

// gap is a used block with a free block immediately to its left.
type gap struct {
	usedID ledger.ID
	used   block.Block
	freeID ledger.ID
	free   block.Block
}

// Compact slides used blocks toward the arena base until no used block has a
// free block immediately to its left. Each step moves the lowest such block
// down by exactly the size of that gap, copying its bytes. Handles stay valid.
// It returns the number of blocks moved; calling it again right away moves none.
func (a *Allocator) Compact() int {
	a.stats.CompactCalls++
	moves := 0
	for {
		g, ok := a.lowestGap()
		if !ok {
			break
		}
		a.slide(g)
		moves++
	}
	if moves > 0 {
		a.logger().Debug("alloc: compacted", "moves", moves, "largest_free", a.largestFree())
	}
	return moves
}

// lowestGap finds the used block with the smallest start that has a free
// block ending right before it.
func (a *Allocator) lowestGap() (gap, bool) {
	var g gap
	found := false
	a.used.Ascend(func(uid ledger.ID, ub block.Block) bool {
		fid, fb, ok := a.free.EndingAt(ub.Start() - 1)
		if !ok {
			return true
		}
		g = gap{usedID: uid, used: ub, freeID: fid, free: fb}
		found = true
		return false
	})
	return g, found
}

// slide moves g.used down to g.free's start and frees the vacated range after
// its new end. Removing the gap frees a slot before the insert, so the ledger
// calls cannot run out of room; any error here means the ledgers disagree.
func (a *Allocator) slide(g gap) {
	dst := g.free.Start()
	copy(a.arena[dst:dst+g.used.Size()], a.arena[g.used.Start():g.used.End()+1])
	moved := block.New(dst, g.used.Size())

	if err := a.free.Remove(g.freeID); err != nil {
		panic(fmt.Sprintf("alloc: compact: %v", err))
	}
	if err := a.used.Set(g.usedID, moved); err != nil {
		panic(fmt.Sprintf("alloc: compact: %v", err))
	}
	if err := a.insertFree(block.Span(moved.End()+1, g.used.End())); err != nil {
		panic(fmt.Sprintf("alloc: compact: %v", err))
	}

	a.stats.CompactMoves++
	a.stats.BytesMoved += int64(g.used.Size())
	a.logger().Debug("alloc: compact move",
		"slot", g.usedID, "from", g.used.Start(), "to", dst, "size", g.used.Size())
}
