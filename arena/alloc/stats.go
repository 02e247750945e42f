package alloc

import (
	"github.com/joshuapare/arenakit/arena/block"
	"github.com/joshuapare/arenakit/arena/ledger"
)

// Stats holds operation counters since the allocator was created.
type Stats struct {
	AllocCalls   int // Allocate calls, including those made by Resize on a null handle
	ResizeCalls  int // Resize calls
	ReleaseCalls int // Release calls
	CompactCalls int // Compact calls

	Splits           int // free blocks split to satisfy a request
	CoalesceBackward int // free neighbours merged from the left
	CoalesceForward  int // free neighbours merged from the right
	Shrinks          int // in-place shrinks
	InPlaceGrows     int // grows absorbed by the adjacent free block
	Relocations      int // grows that moved the allocation
	CompactMoves     int // blocks slid by Compact
	OutOfMemory      int // requests refused for lack of a large enough block

	BytesAllocated int64 // bytes handed out by Allocate
	BytesReleased  int64 // bytes returned by Release
	BytesMoved     int64 // bytes copied by relocation and compaction
}

// Stats returns a copy of the operation counters.
func (a *Allocator) Stats() Stats { return a.stats }

// Metrics is a snapshot of arena occupancy.
type Metrics struct {
	Size        int `json:"size"`         // arena size in bytes
	InUse       int `json:"in_use"`       // bytes held by used blocks
	Free        int `json:"free"`         // bytes held by free blocks
	LargestFree int `json:"largest_free"` // size of the largest free block
	UsedBlocks  int `json:"used_blocks"`  // occupied used-ledger slots
	FreeBlocks  int `json:"free_blocks"`  // occupied free-ledger slots
	Capacity    int `json:"capacity"`     // slots per ledger

	// Fragmentation is 1 - LargestFree/Free: 0 when all free space is one
	// block, approaching 1 as it splinters.
	Fragmentation float64 `json:"fragmentation"`
}

// Metrics returns occupancy figures for the arena.
func (a *Allocator) Metrics() Metrics {
	free := a.freeBytes()
	largest := a.largestFree()
	m := Metrics{
		Size:        len(a.arena),
		InUse:       len(a.arena) - free,
		Free:        free,
		LargestFree: largest,
		UsedBlocks:  a.used.Len(),
		FreeBlocks:  a.free.Len(),
		Capacity:    a.used.Cap(),
	}
	if free > 0 {
		m.Fragmentation = 1 - float64(largest)/float64(free)
	}
	return m
}

func (a *Allocator) freeBytes() int {
	total := 0
	a.free.Each(func(_ ledger.ID, b block.Block) bool {
		total += b.Size()
		return true
	})
	return total
}

func (a *Allocator) largestFree() int {
	largest := 0
	a.free.Each(func(_ ledger.ID, b block.Block) bool {
		largest = max(largest, b.Size())
		return true
	})
	return largest
}
