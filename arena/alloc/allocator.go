package alloc

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joshuapare/arenakit/arena/block"
	"github.com/joshuapare/arenakit/arena/ledger"
	"github.com/joshuapare/arenakit/internal/logger"
)

// Runtime debug flag for allocation logging - controlled by ARENAKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("ARENAKIT_LOG_ALLOC") != ""

// Options configures an Allocator. A nil *Options selects every default.
type Options struct {
	// Capacity is the slot count of each ledger. Default: ledger.DefaultCapacity.
	Capacity int

	// Logger receives allocator events. Default: logger.L, or a stderr debug
	// logger when ARENAKIT_LOG_ALLOC is set.
	Logger *slog.Logger
}

// Allocator hands out first-fit blocks of a fixed arena.
//
// Every byte of the arena belongs to exactly one block held by either the used
// or the free ledger. Handles refer to used-ledger slots.
type Allocator struct {
	arena []byte
	used  *ledger.Ledger
	free  *ledger.Ledger

	// gens holds one generation per used slot, bumped on release so a copy of a
	// released handle is detected even after its slot is reused.
	gens []uint32

	log   *slog.Logger
	stats Stats
}

// New creates an allocator over buf. The caller keeps ownership of buf; the
// allocator only reads and moves bytes within it.
func New(buf []byte, opts *Options) (*Allocator, error) {
	if opts == nil {
		opts = &Options{}
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty arena", ErrInvalidSize)
	}

	a := &Allocator{
		arena: buf,
		used:  ledger.New(opts.Capacity),
		free:  ledger.New(opts.Capacity),
		log:   opts.Logger,
	}
	a.gens = make([]uint32, a.used.Cap())
	if a.log == nil && logAlloc {
		a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	if _, err := a.free.Insert(block.New(0, len(buf))); err != nil {
		return nil, err
	}
	return a, nil
}

// Size returns the arena size in bytes.
func (a *Allocator) Size() int { return len(a.arena) }

// Capacity returns the slot count of each ledger.
func (a *Allocator) Capacity() int { return a.used.Cap() }

// Allocate reserves n bytes from the first free block, in slot order, that can
// hold them.
func (a *Allocator) Allocate(n int) (Handle, error) {
	a.stats.AllocCalls++
	if n <= 0 {
		return Handle{}, fmt.Errorf("%w: allocate %d", ErrInvalidSize, n)
	}

	fid, fb, ok := a.free.FirstFit(n)
	if !ok {
		a.outOfMemory("allocate", n)
		return Handle{}, fmt.Errorf("%w: allocate %d", ErrOutOfMemory, n)
	}
	if a.used.Full() {
		a.outOfSlots("allocate", a.used)
		return Handle{}, fmt.Errorf("%w: allocate %d", ErrOutOfSlots, n)
	}

	ub := fb
	if fb.Size() == n {
		if err := a.free.Remove(fid); err != nil {
			return Handle{}, err
		}
	} else {
		ub = block.New(fb.Start(), n)
		fb.ShiftStart(fb.Start() + n)
		if err := a.free.Set(fid, fb); err != nil {
			return Handle{}, err
		}
		a.stats.Splits++
	}

	uid, err := a.used.Insert(ub)
	if err != nil {
		return Handle{}, err
	}
	a.stats.BytesAllocated += int64(n)
	return Handle{ref: uid + 1, gen: a.gens[uid]}, nil
}

// Release returns the allocation named by h to the free ledger and nulls h.
func (a *Allocator) Release(h *Handle) error {
	a.stats.ReleaseCalls++
	if h == nil || h.IsNull() {
		return ErrInvalidFree
	}
	ub, err := a.lookup(*h)
	if err != nil {
		return fmt.Errorf("%w: handle %v", ErrInvalidFree, *h)
	}
	if !a.free.CanAbsorb(ub) {
		a.outOfSlots("release", a.free)
		return fmt.Errorf("%w: release %v", ErrOutOfSlots, *h)
	}

	id := h.ID()
	if err := a.used.Remove(id); err != nil {
		return err
	}
	a.gens[id]++
	if err := a.insertFree(ub); err != nil {
		return err
	}
	a.stats.BytesReleased += int64(ub.Size())
	*h = Handle{}
	return nil
}

// Resize changes the allocation named by h to n bytes, like realloc. A null h
// is allocated and populated. The handle stays valid on every path; when the
// block has to move, the first min(old, n) bytes are carried over.
func (a *Allocator) Resize(h *Handle, n int) error {
	a.stats.ResizeCalls++
	if h == nil {
		return fmt.Errorf("%w: nil handle", ErrInvalidSlot)
	}
	if n <= 0 {
		return fmt.Errorf("%w: resize %d", ErrInvalidSize, n)
	}
	if h.IsNull() {
		nh, err := a.Allocate(n)
		if err != nil {
			return err
		}
		*h = nh
		return nil
	}

	ub, err := a.lookup(*h)
	if err != nil {
		return err
	}
	switch {
	case n == ub.Size():
		return nil
	case n < ub.Size():
		return a.shrink(h.ID(), ub, n)
	default:
		return a.grow(h.ID(), ub, n)
	}
}

// Bytes returns the arena bytes of the allocation named by h. The slice aliases
// the arena and is only valid until the next Resize or Compact.
func (a *Allocator) Bytes(h Handle) ([]byte, error) {
	b, err := a.lookup(h)
	if err != nil {
		return nil, err
	}
	return a.arena[b.Start() : b.End()+1 : b.End()+1], nil
}

// Range returns the current placement of the allocation named by h.
func (a *Allocator) Range(h Handle) (Range, error) {
	b, err := a.lookup(h)
	if err != nil {
		return Range{}, err
	}
	return Range{ID: h.ID(), Offset: b.Start(), Size: b.Size()}, nil
}

// shrink gives the tail beyond n bytes back to the free ledger in place.
func (a *Allocator) shrink(id ledger.ID, ub block.Block, n int) error {
	tail := block.Span(ub.Start()+n, ub.End())
	if !a.free.CanAbsorb(tail) {
		a.outOfSlots("shrink", a.free)
		return fmt.Errorf("%w: shrink to %d", ErrOutOfSlots, n)
	}

	ub.ShiftEnd(ub.Start() + n - 1)
	if err := a.used.Set(id, ub); err != nil {
		return err
	}
	if err := a.insertFree(tail); err != nil {
		return err
	}
	a.stats.Shrinks++
	return nil
}

// grow extends into an adjacent-right free block when it is large enough and
// relocates otherwise.
func (a *Allocator) grow(id ledger.ID, ub block.Block, n int) error {
	delta := n - ub.Size()

	nid, next, ok := a.free.StartingAt(ub.End() + 1)
	if !ok || next.Size() < delta {
		return a.relocate(id, ub, n)
	}

	ub.ShiftEnd(ub.End() + delta)
	if next.Size() == delta {
		if err := a.free.Remove(nid); err != nil {
			return err
		}
	} else {
		next.ShiftStart(ub.End() + 1)
		if err := a.free.Set(nid, next); err != nil {
			return err
		}
	}
	if err := a.used.Set(id, ub); err != nil {
		return err
	}
	a.stats.InPlaceGrows++
	return nil
}

// relocate moves the allocation to the first free block holding n bytes and
// frees the old range. The used slot id is kept.
func (a *Allocator) relocate(id ledger.ID, ub block.Block, n int) error {
	did, dst, ok := a.free.FirstFit(n)
	if !ok {
		a.outOfMemory("resize", n)
		return fmt.Errorf("%w: resize to %d", ErrOutOfMemory, n)
	}
	exact := dst.Size() == n

	// A split keeps the destination slot busy, so the old range needs either a
	// vacant free slot or a neighbour to merge with.
	if !exact && a.free.Full() {
		left, right := a.free.Neighbours(ub)
		if left == ledger.Null && (right == ledger.Null || right == did) {
			a.outOfSlots("resize", a.free)
			return fmt.Errorf("%w: resize to %d", ErrOutOfSlots, n)
		}
	}

	moved := block.New(dst.Start(), n)
	copy(a.arena[moved.Start():moved.Start()+ub.Size()], a.arena[ub.Start():ub.End()+1])

	if exact {
		if err := a.free.Remove(did); err != nil {
			return err
		}
	} else {
		dst.ShiftStart(dst.Start() + n)
		if err := a.free.Set(did, dst); err != nil {
			return err
		}
		a.stats.Splits++
	}
	if err := a.used.Set(id, moved); err != nil {
		return err
	}
	if err := a.insertFree(ub); err != nil {
		return err
	}

	a.stats.Relocations++
	a.stats.BytesMoved += int64(ub.Size())
	a.logger().Debug("alloc: relocated",
		"slot", id, "from", ub.Start(), "to", moved.Start(), "old_size", ub.Size(), "size", n)
	return nil
}

// insertFree coalescing-inserts b into the free ledger and counts the merges.
func (a *Allocator) insertFree(b block.Block) error {
	_, c, err := a.free.InsertCoalesced(b)
	a.stats.CoalesceBackward += c.Backward
	a.stats.CoalesceForward += c.Forward
	return err
}

// lookup resolves h to its current block.
func (a *Allocator) lookup(h Handle) (block.Block, error) {
	id := h.ID()
	b, ok := a.used.Get(id)
	if h.IsNull() || !ok || a.gens[id] != h.gen {
		return block.Block{}, fmt.Errorf("%w: handle %v", ErrInvalidSlot, h)
	}
	return b, nil
}

func (a *Allocator) logger() *slog.Logger {
	if a.log != nil {
		return a.log
	}
	return logger.L
}

func (a *Allocator) outOfMemory(op string, n int) {
	a.stats.OutOfMemory++
	a.logger().Debug("alloc: out of memory",
		"op", op, "need", n, "free_bytes", a.freeBytes(), "largest_free", a.largestFree())
}

func (a *Allocator) outOfSlots(op string, l *ledger.Ledger) {
	which := "used"
	if l == a.free {
		which = "free"
	}
	a.logger().Warn("alloc: ledger full", "op", op, "ledger", which, "capacity", l.Cap())
}
