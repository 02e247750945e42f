package block

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	b := New(100, 50)
	require.Equal(t, 100, b.Start())
	require.Equal(t, 149, b.End())
	require.Equal(t, 50, b.Size())

	one := New(7, 1)
	require.Equal(t, one.Start(), one.End(), "single-byte block")
	require.Equal(t, one, Span(7, 7))
}

func TestShiftStartKeepsEnd(t *testing.T) {
	b := New(0, 1000)
	b.ShiftStart(100)
	require.Equal(t, 100, b.Start())
	require.Equal(t, 999, b.End())
	require.Equal(t, 900, b.Size())

	// Growing to the left is also a start shift.
	b.ShiftStart(40)
	require.Equal(t, 960, b.Size())
}

func TestShiftEndKeepsStart(t *testing.T) {
	b := New(200, 100)
	b.ShiftEnd(249)
	require.Equal(t, 200, b.Start())
	require.Equal(t, 50, b.Size())

	b.ShiftEnd(399)
	require.Equal(t, 200, b.Size())
}

func TestAdjacency(t *testing.T) {
	a := New(0, 100)
	b := New(100, 100)
	c := New(201, 10)

	require.True(t, a.AdjacentRight(b))
	require.True(t, b.AdjacentLeft(a))
	require.False(t, b.AdjacentRight(c), "one byte gap")
	require.False(t, a.AdjacentLeft(b))
}

func TestOverlaps(t *testing.T) {
	require.True(t, New(0, 10).Overlaps(New(9, 5)))
	require.False(t, New(0, 10).Overlaps(New(10, 5)))
	require.True(t, New(5, 1).Overlaps(New(0, 10)))
}

func TestString(t *testing.T) {
	require.Equal(t, "[ 0 | 100 | 99 ]", New(0, 100).String())
}
