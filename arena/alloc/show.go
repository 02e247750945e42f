package alloc

import (
	"fmt"
	"io"
	"strings"

	"github.com/joshuapare/arenakit/arena/block"
	"github.com/joshuapare/arenakit/arena/ledger"
)

// Range is one ledger entry as reported by Dump.
type Range struct {
	ID     int `json:"id"`
	Offset int `json:"offset"`
	Size   int `json:"size"`
}

// End returns the offset of the last byte in the range.
func (r Range) End() int { return r.Offset + r.Size - 1 }

// Snapshot lists the free and used ledgers in slot order.
type Snapshot struct {
	Size int     `json:"size"`
	Free []Range `json:"free"`
	Used []Range `json:"used"`
}

// Dump captures both ledgers. It is meant for diagnostics and tests.
func (a *Allocator) Dump() Snapshot {
	return Snapshot{
		Size: len(a.arena),
		Free: ranges(a.free),
		Used: ranges(a.used),
	}
}

func ranges(l *ledger.Ledger) []Range {
	out := make([]Range, 0, l.Len())
	l.Each(func(id ledger.ID, b block.Block) bool {
		out = append(out, Range{ID: id, Offset: b.Start(), Size: b.Size()})
		return true
	})
	return out
}

// Show writes both ledgers to w, one "[ start | size | end ]" entry per block.
func (a *Allocator) Show(w io.Writer) error {
	_, err := io.WriteString(w, a.String())
	return err
}

func (a *Allocator) String() string {
	var sb strings.Builder
	write := func(title string, l *ledger.Ledger) {
		sb.WriteString(title)
		sb.WriteString(":\n")
		sep := ""
		l.Each(func(_ ledger.ID, b block.Block) bool {
			fmt.Fprintf(&sb, "%s%s", sep, b)
			sep = " "
			return true
		})
		sb.WriteString("\n")
	}
	write("Free", a.free)
	write("Used", a.used)
	return sb.String()
}
