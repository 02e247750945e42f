package alloc

import (
	"errors"

	"github.com/joshuapare/arenakit/arena/ledger"
)

var (
	// ErrOutOfMemory indicates that no free block is large enough for the request.
	ErrOutOfMemory = errors.New("alloc: no free block large enough")

	// ErrOutOfSlots indicates that a ledger's slot table is full.
	ErrOutOfSlots = ledger.ErrOutOfSlots

	// ErrInvalidSlot indicates a handle or slot id that holds no block.
	ErrInvalidSlot = ledger.ErrInvalidSlot

	// ErrInvalidFree indicates a release of a null or already released handle.
	ErrInvalidFree = errors.New("alloc: release of null or freed handle")

	// ErrInvalidSize indicates a non-positive request size or an empty arena.
	ErrInvalidSize = errors.New("alloc: size must be positive")

	// ErrCorrupt indicates that Verify found the ledgers out of step with the arena.
	ErrCorrupt = errors.New("alloc: ledger invariant violated")
)
