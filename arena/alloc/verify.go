package alloc

import (
	"fmt"
	"sort"

	"github.com/joshuapare/arenakit/arena/block"
	"github.com/joshuapare/arenakit/arena/ledger"
)

// Verify checks the ledger invariants:
//
//   - every block lies inside the arena and covers at least one byte
//   - used and free blocks together cover the arena exactly once
//   - no two free blocks are adjacent
//
// It returns an error wrapping ErrCorrupt describing the first violation.
func (a *Allocator) Verify() error {
	type entry struct {
		b    block.Block
		free bool
		id   ledger.ID
	}
	all := make([]entry, 0, a.used.Len()+a.free.Len())
	collect := func(l *ledger.Ledger, free bool) {
		l.Each(func(id ledger.ID, b block.Block) bool {
			all = append(all, entry{b: b, free: free, id: id})
			return true
		})
	}
	collect(a.used, false)
	collect(a.free, true)

	sort.Slice(all, func(i, j int) bool { return all[i].b.Start() < all[j].b.Start() })

	kind := func(e entry) string {
		if e.free {
			return "free"
		}
		return "used"
	}

	next := 0
	for i, e := range all {
		b := e.b
		if b.Size() < 1 || b.End() != b.Start()+b.Size()-1 {
			return fmt.Errorf("%w: %s slot %d has malformed block %v", ErrCorrupt, kind(e), e.id, b)
		}
		if b.Start() < 0 || b.End() >= len(a.arena) {
			return fmt.Errorf("%w: %s slot %d block %v outside arena of %d bytes",
				ErrCorrupt, kind(e), e.id, b, len(a.arena))
		}
		switch {
		case b.Start() > next:
			return fmt.Errorf("%w: bytes [%d,%d] belong to no block", ErrCorrupt, next, b.Start()-1)
		case b.Start() < next:
			return fmt.Errorf("%w: %s slot %d block %v overlaps its predecessor",
				ErrCorrupt, kind(e), e.id, b)
		}
		if i > 0 && e.free && all[i-1].free {
			return fmt.Errorf("%w: free slots %d and %d are adjacent", ErrCorrupt, all[i-1].id, e.id)
		}
		next = b.End() + 1
	}
	if next != len(a.arena) {
		return fmt.Errorf("%w: bytes [%d,%d] belong to no block", ErrCorrupt, next, len(a.arena)-1)
	}
	return nil
}
