package ledger

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/google/btree"

	"github.com/joshuapare/arenakit/arena/block"
)

// ID identifies a slot in a Ledger.
type ID = int

const (
	// Null is the id of no slot.
	Null ID = -1

	// DefaultCapacity is the slot count used when New is given a non-positive capacity.
	DefaultCapacity = 2048

	// indexDegree is the B-tree node degree for the address index.
	indexDegree = 16
)

// addrEntry is one address index record: the start offset of the block held in slot id.
type addrEntry struct {
	start int
	id    ID
}

func lessByStart(a, b addrEntry) bool { return a.start < b.start }

// Coalesce counts the neighbours absorbed by one InsertCoalesced call.
type Coalesce struct {
	Backward int // blocks merged from the left
	Forward  int // blocks merged from the right
}

// Merged returns the total number of absorbed blocks.
func (c Coalesce) Merged() int { return c.Backward + c.Forward }

// Ledger is a fixed-capacity slot table of blocks.
type Ledger struct {
	slots    []block.Block
	occupied *roaring.Bitmap
	byStart  *btree.BTreeG[addrEntry]
}

// New creates an empty ledger with capacity slots.
// If capacity <= 0, DefaultCapacity is used.
func New(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		slots:    make([]block.Block, capacity),
		occupied: roaring.New(),
		byStart:  btree.NewG[addrEntry](indexDegree, lessByStart),
	}
}

// Cap returns the number of slots.
func (l *Ledger) Cap() int { return len(l.slots) }

// Len returns the number of occupied slots.
func (l *Ledger) Len() int { return int(l.occupied.GetCardinality()) }

// Full reports whether every slot is occupied.
func (l *Ledger) Full() bool { return l.Len() == len(l.slots) }

// Has reports whether slot id holds a block.
func (l *Ledger) Has(id ID) bool {
	return id >= 0 && id < len(l.slots) && l.occupied.Contains(uint32(id))
}

// Get returns the block held in slot id.
func (l *Ledger) Get(id ID) (block.Block, bool) {
	if !l.Has(id) {
		return block.Block{}, false
	}
	return l.slots[id], true
}

// Insert stores b in the first empty slot and returns its id.
func (l *Ledger) Insert(b block.Block) (ID, error) {
	id, ok := l.firstVacant()
	if !ok {
		return Null, ErrOutOfSlots
	}
	l.slots[id] = b
	l.occupied.Add(uint32(id))
	l.byStart.ReplaceOrInsert(addrEntry{start: b.Start(), id: id})
	return id, nil
}

// Remove empties slot id.
func (l *Ledger) Remove(id ID) error {
	if !l.Has(id) {
		return fmt.Errorf("%w: remove %d", ErrInvalidSlot, id)
	}
	l.byStart.Delete(addrEntry{start: l.slots[id].Start()})
	l.occupied.Remove(uint32(id))
	l.slots[id] = block.Block{}
	return nil
}

// Set replaces the block held in slot id, keeping the id.
func (l *Ledger) Set(id ID, b block.Block) error {
	if !l.Has(id) {
		return fmt.Errorf("%w: set %d", ErrInvalidSlot, id)
	}
	l.byStart.Delete(addrEntry{start: l.slots[id].Start()})
	l.slots[id] = b
	l.byStart.ReplaceOrInsert(addrEntry{start: b.Start(), id: id})
	return nil
}

// FirstFit returns the lowest slot id whose block holds at least n bytes.
func (l *Ledger) FirstFit(n int) (ID, block.Block, bool) {
	it := l.occupied.Iterator()
	for it.HasNext() {
		id := ID(it.Next())
		if l.slots[id].Size() >= n {
			return id, l.slots[id], true
		}
	}
	return Null, block.Block{}, false
}

// StartingAt returns the block whose first byte is addr.
func (l *Ledger) StartingAt(addr int) (ID, block.Block, bool) {
	e, ok := l.byStart.Get(addrEntry{start: addr})
	if !ok {
		return Null, block.Block{}, false
	}
	return e.id, l.slots[e.id], true
}

// EndingAt returns the block whose last byte is addr.
func (l *Ledger) EndingAt(addr int) (ID, block.Block, bool) {
	found := Null
	l.byStart.DescendLessOrEqual(addrEntry{start: addr}, func(e addrEntry) bool {
		if l.slots[e.id].End() == addr {
			found = e.id
		}
		return false
	})
	if found == Null {
		return Null, block.Block{}, false
	}
	return found, l.slots[found], true
}

// Each calls fn for every held block in ascending slot order until fn returns false.
// fn must not modify the ledger.
func (l *Ledger) Each(fn func(ID, block.Block) bool) {
	it := l.occupied.Iterator()
	for it.HasNext() {
		id := ID(it.Next())
		if !fn(id, l.slots[id]) {
			return
		}
	}
}

// Ascend calls fn for every held block in ascending address order until fn returns false.
// fn must not modify the ledger.
func (l *Ledger) Ascend(fn func(ID, block.Block) bool) {
	l.byStart.Ascend(func(e addrEntry) bool {
		return fn(e.id, l.slots[e.id])
	})
}

// IDs returns the occupied slot ids in ascending order.
func (l *Ledger) IDs() []ID {
	raw := l.occupied.ToArray()
	ids := make([]ID, len(raw))
	for i, v := range raw {
		ids[i] = ID(v)
	}
	return ids
}

// Neighbours returns the slots holding the blocks adjacent-left and adjacent-right
// of b, or Null where there is none.
func (l *Ledger) Neighbours(b block.Block) (left, right ID) {
	left, right = Null, Null
	if id, _, ok := l.EndingAt(b.Start() - 1); ok {
		left = id
	}
	if id, _, ok := l.StartingAt(b.End() + 1); ok {
		right = id
	}
	return left, right
}

// CanAbsorb reports whether InsertCoalesced(b) would succeed.
func (l *Ledger) CanAbsorb(b block.Block) bool {
	if !l.Full() {
		return true
	}
	left, right := l.Neighbours(b)
	return left != Null || right != Null
}

// InsertCoalesced merges b with every adjacent held block and inserts the result.
// On ErrOutOfSlots nothing was changed: a merge always frees a slot first.
func (l *Ledger) InsertCoalesced(b block.Block) (ID, Coalesce, error) {
	var c Coalesce
	for {
		if id, prev, ok := l.EndingAt(b.Start() - 1); ok {
			if err := l.Remove(id); err != nil {
				return Null, c, err
			}
			b.ShiftStart(prev.Start())
			c.Backward++
			continue
		}
		if id, next, ok := l.StartingAt(b.End() + 1); ok {
			if err := l.Remove(id); err != nil {
				return Null, c, err
			}
			b.ShiftEnd(next.End())
			c.Forward++
			continue
		}
		break
	}
	id, err := l.Insert(b)
	return id, c, err
}

// firstVacant finds the lowest empty slot. Rank(x) counts occupied ids <= x, so
// it equals x+1 exactly while [0, x] is fully occupied.
func (l *Ledger) firstVacant() (ID, bool) {
	n := len(l.slots)
	x := sort.Search(n, func(x int) bool {
		return l.occupied.Rank(uint32(x)) <= uint64(x)
	})
	if x == n {
		return Null, false
	}
	return x, true
}
