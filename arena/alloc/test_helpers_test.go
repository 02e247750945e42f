package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestAllocator creates an allocator over a fresh arena of size bytes.
func newTestAllocator(t testing.TB, size, capacity int) *Allocator {
	t.Helper()
	a, err := New(make([]byte, size), &Options{Capacity: capacity})
	require.NoError(t, err)
	return a
}

// mustAllocate allocates n bytes and fails the test on error.
func mustAllocate(t testing.TB, a *Allocator, n int) Handle {
	t.Helper()
	h, err := a.Allocate(n)
	require.NoError(t, err)
	requireValid(t, a)
	return h
}

// requireValid fails the test if the ledgers no longer partition the arena.
func requireValid(t testing.TB, a *Allocator) {
	t.Helper()
	require.NoError(t, a.Verify())
}

// requireRange asserts the current placement of h.
func requireRange(t testing.TB, a *Allocator, h Handle, offset, size int) {
	t.Helper()
	r, err := a.Range(h)
	require.NoError(t, err)
	require.Equal(t, offset, r.Offset, "offset of %v", h)
	require.Equal(t, size, r.Size, "size of %v", h)
}

// fillPattern writes a position-dependent pattern seeded by seed into h.
func fillPattern(t testing.TB, a *Allocator, h Handle, seed byte) {
	t.Helper()
	b, err := a.Bytes(h)
	require.NoError(t, err)
	for i := range b {
		b[i] = seed + byte(i)
	}
}

// requirePattern checks the first n bytes of h against fillPattern(seed).
func requirePattern(t testing.TB, a *Allocator, h Handle, seed byte, n int) {
	t.Helper()
	b, err := a.Bytes(h)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(b), n)
	for i := range n {
		require.Equal(t, seed+byte(i), b[i], "byte %d of %v", i, h)
	}
}

// spans flattens ranges to [offset, size] pairs for compact assertions.
func spans(rs []Range) [][2]int {
	out := make([][2]int, len(rs))
	for i, r := range rs {
		out[i] = [2]int{r.Offset, r.Size}
	}
	return out
}
