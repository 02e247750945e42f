package ledger

import "errors"

var (
	// ErrOutOfSlots indicates that every slot of the table already holds a block.
	ErrOutOfSlots = errors.New("ledger: maximum pointers reached")

	// ErrInvalidSlot indicates an operation on a slot id that holds no block.
	ErrInvalidSlot = errors.New("ledger: slot holds no block")
)
