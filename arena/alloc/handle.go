package alloc

import (
	"fmt"

	"github.com/joshuapare/arenakit/arena/ledger"
)

// Handle names one live allocation: the block currently held in a used-ledger
// slot. It never caches an address, so Resize and Compact can move the bytes
// without invalidating it. The zero Handle is the null handle.
type Handle struct {
	ref int    // used slot id + 1
	gen uint32 // slot generation at allocation time
}

// ID returns the used-ledger slot id, or ledger.Null for the null handle.
func (h Handle) ID() ledger.ID { return h.ref - 1 }

// IsNull reports whether h denotes no allocation.
func (h Handle) IsNull() bool { return h.ref == 0 }

func (h Handle) String() string {
	if h.IsNull() {
		return "NULL"
	}
	return fmt.Sprintf("#%d/g%d", h.ID(), h.gen)
}
