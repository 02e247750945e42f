package alloc

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/arenakit/arena/ledger"
)

func TestNewRejectsEmptyArena(t *testing.T) {
	_, err := New(nil, nil)
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestNewSingleFreeBlock(t *testing.T) {
	a := newTestAllocator(t, 1000, 0)
	require.Equal(t, 1000, a.Size())
	require.Equal(t, ledger.DefaultCapacity, a.Capacity())

	snap := a.Dump()
	require.Equal(t, [][2]int{{0, 1000}}, spans(snap.Free))
	require.Empty(t, snap.Used)
	requireValid(t, a)
}

func TestAllocateSplitsFirstFit(t *testing.T) {
	a := newTestAllocator(t, 1000, 0)

	h1 := mustAllocate(t, a, 100)
	h2 := mustAllocate(t, a, 100)

	require.Equal(t, 0, h1.ID())
	require.Equal(t, 1, h2.ID())
	requireRange(t, a, h1, 0, 100)
	requireRange(t, a, h2, 100, 100)

	snap := a.Dump()
	require.Equal(t, [][2]int{{200, 800}}, spans(snap.Free))
	require.Equal(t, 2, a.Stats().Splits)
}

func TestAllocateExactFitMovesBlock(t *testing.T) {
	a := newTestAllocator(t, 300, 0)
	h1 := mustAllocate(t, a, 100)
	_ = mustAllocate(t, a, 100)
	require.NoError(t, a.Release(&h1))

	// [0,99] is free in slot 1; slot 0 holds [200,299]. Both fit 100 exactly,
	// slot order picks [200,299].
	h3 := mustAllocate(t, a, 100)
	requireRange(t, a, h3, 200, 100)
	require.Equal(t, [][2]int{{0, 100}}, spans(a.Dump().Free))

	h4 := mustAllocate(t, a, 100)
	requireRange(t, a, h4, 0, 100)
	require.Empty(t, a.Dump().Free)

	_, err := a.Allocate(1)
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func TestAllocateInvalidSize(t *testing.T) {
	a := newTestAllocator(t, 100, 0)
	_, err := a.Allocate(0)
	require.ErrorIs(t, err, ErrInvalidSize)
	_, err = a.Allocate(-5)
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestAllocateOutOfMemoryLeavesState(t *testing.T) {
	a := newTestAllocator(t, 100, 0)
	_ = mustAllocate(t, a, 60)
	before := a.Dump()

	_, err := a.Allocate(41)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, before, a.Dump())
	require.Equal(t, 1, a.Stats().OutOfMemory)
}

func TestAllocateOutOfSlots(t *testing.T) {
	a := newTestAllocator(t, 100, 2)
	_ = mustAllocate(t, a, 10)
	_ = mustAllocate(t, a, 10)
	before := a.Dump()

	_, err := a.Allocate(10)
	require.ErrorIs(t, err, ErrOutOfSlots)
	require.Equal(t, before, a.Dump(), "free block must not be split on failure")
	requireValid(t, a)
}

// Scenario: release of the first block leaves it separate from the tail.
func TestReleaseDoesNotMergeDistantFree(t *testing.T) {
	a := newTestAllocator(t, 1000, 0)
	hA := mustAllocate(t, a, 100)
	_ = mustAllocate(t, a, 100)

	require.NoError(t, a.Release(&hA))
	require.True(t, hA.IsNull())

	free := a.Dump().Free
	require.Len(t, free, 2)
	require.ElementsMatch(t, [][2]int{{0, 100}, {200, 800}}, spans(free))
	requireValid(t, a)
}

func TestReleaseCoalescesBothSides(t *testing.T) {
	a := newTestAllocator(t, 400, 0)
	h1 := mustAllocate(t, a, 100)
	h2 := mustAllocate(t, a, 100)
	h3 := mustAllocate(t, a, 100)
	_ = mustAllocate(t, a, 100)

	require.NoError(t, a.Release(&h1))
	require.NoError(t, a.Release(&h3))
	require.Len(t, a.Dump().Free, 2)

	require.NoError(t, a.Release(&h2))
	require.Equal(t, [][2]int{{0, 300}}, spans(a.Dump().Free))

	st := a.Stats()
	assert.Equal(t, 1, st.CoalesceBackward)
	assert.Equal(t, 1, st.CoalesceForward)
	requireValid(t, a)
}

func TestReleaseNullHandle(t *testing.T) {
	a := newTestAllocator(t, 100, 0)
	var h Handle
	require.ErrorIs(t, a.Release(&h), ErrInvalidFree)
	require.ErrorIs(t, a.Release(nil), ErrInvalidFree)

	h = mustAllocate(t, a, 10)
	require.NoError(t, a.Release(&h))
	require.ErrorIs(t, a.Release(&h), ErrInvalidFree, "double release")
}

func TestStaleHandleAfterSlotReuse(t *testing.T) {
	a := newTestAllocator(t, 100, 0)
	h := mustAllocate(t, a, 10)
	stale := h
	require.NoError(t, a.Release(&h))

	fresh := mustAllocate(t, a, 20)
	require.Equal(t, stale.ID(), fresh.ID(), "slot is reused")

	require.ErrorIs(t, a.Release(&stale), ErrInvalidFree)
	require.ErrorIs(t, a.Resize(&stale, 30), ErrInvalidSlot)
	_, err := a.Bytes(stale)
	require.ErrorIs(t, err, ErrInvalidSlot)

	requireRange(t, a, fresh, 0, 20)
}

func TestReleaseFreeLedgerFull(t *testing.T) {
	a := newTestAllocator(t, 100, 2)
	hA := mustAllocate(t, a, 10) // [0,9]
	hB := mustAllocate(t, a, 10) // [10,19]
	require.NoError(t, a.Release(&hA))
	_ = mustAllocate(t, a, 10) // [20,29]

	// Free ledger holds [30,99] and [0,9]; [10,19] touches neither.
	require.Equal(t, 2, len(a.Dump().Free))
	before := a.Dump()

	err := a.Resize(&hB, 5)
	require.ErrorIs(t, err, ErrOutOfSlots)
	require.Equal(t, before, a.Dump())

	// Releasing hB merges with [0,9], so no new slot is needed.
	require.NoError(t, a.Release(&hB))
	requireValid(t, a)
}

func TestBytesAliasArena(t *testing.T) {
	buf := make([]byte, 64)
	a, err := New(buf, nil)
	require.NoError(t, err)

	_ = mustAllocate(t, a, 16)
	h := mustAllocate(t, a, 8)
	b, err := a.Bytes(h)
	require.NoError(t, err)
	require.Len(t, b, 8)
	require.Equal(t, 8, cap(b), "slice must not reach past the block")

	copy(b, "arenakit")
	require.Equal(t, []byte("arenakit"), buf[16:24])

	var null Handle
	_, err = a.Bytes(null)
	require.ErrorIs(t, err, ErrInvalidSlot)
}

func TestShowFormat(t *testing.T) {
	a := newTestAllocator(t, 1000, 0)
	_ = mustAllocate(t, a, 100)

	var buf bytes.Buffer
	require.NoError(t, a.Show(&buf))
	require.Equal(t, "Free:\n[ 100 | 900 | 999 ]\nUsed:\n[ 0 | 100 | 99 ]\n", buf.String())
}

func TestMetrics(t *testing.T) {
	a := newTestAllocator(t, 1000, 16)
	h1 := mustAllocate(t, a, 100)
	_ = mustAllocate(t, a, 100)
	require.NoError(t, a.Release(&h1))

	m := a.Metrics()
	assert.Equal(t, 1000, m.Size)
	assert.Equal(t, 100, m.InUse)
	assert.Equal(t, 900, m.Free)
	assert.Equal(t, 800, m.LargestFree)
	assert.Equal(t, 1, m.UsedBlocks)
	assert.Equal(t, 2, m.FreeBlocks)
	assert.Equal(t, 16, m.Capacity)
	assert.InDelta(t, 1-800.0/900.0, m.Fragmentation, 1e-9)
}

func TestLoggerReceivesEvents(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a, err := New(make([]byte, 100), &Options{Logger: log})
	require.NoError(t, err)

	_, err = a.Allocate(200)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Contains(t, buf.String(), "out of memory")
	require.Contains(t, buf.String(), "need=200")
}
