// Package block defines the contiguous byte range tracked by the ledgers.
//
// A Block is addressed by offsets from the arena base. Both edges are inclusive,
// so a Block always covers at least one byte:
//
//	size = end - start + 1
//
// Block is the innermost primitive and trusts its caller: the allocator never
// asks for a shift that would leave start > end.
package block

import "fmt"

// Block is an inclusive [start, end] byte range within an arena.
type Block struct {
	start int
	end   int
	size  int
}

// New returns the block of size bytes beginning at start.
func New(start, size int) Block {
	return Block{start: start, end: start + size - 1, size: size}
}

// Span returns the block covering [start, end].
func Span(start, end int) Block {
	return Block{start: start, end: end, size: end - start + 1}
}

func (b Block) Start() int { return b.start }
func (b Block) End() int   { return b.end }
func (b Block) Size() int  { return b.size }

// ShiftStart moves the left edge to start, keeping the end fixed.
func (b *Block) ShiftStart(start int) {
	b.start = start
	b.size = b.end - b.start + 1
}

// ShiftEnd moves the right edge to end, keeping the start fixed.
func (b *Block) ShiftEnd(end int) {
	b.end = end
	b.size = b.end - b.start + 1
}

// AdjacentRight reports whether next begins on the byte after b ends.
func (b Block) AdjacentRight(next Block) bool {
	return b.end+1 == next.start
}

// AdjacentLeft reports whether prev ends on the byte before b begins.
func (b Block) AdjacentLeft(prev Block) bool {
	return prev.end+1 == b.start
}

// Overlaps reports whether the two ranges share at least one byte.
func (b Block) Overlaps(o Block) bool {
	return b.start <= o.end && o.start <= b.end
}

// String renders the block the way Allocator.Show prints it.
func (b Block) String() string {
	return fmt.Sprintf("[ %d | %d | %d ]", b.start, b.size, b.end)
}
