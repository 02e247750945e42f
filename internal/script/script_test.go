package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	src := `
# allocate two blocks
alloc a 100
alloc b 0x40   # hex size
fill a 0xAB
check a 171 10
resize b 200
free a
COMPACT
dump
verify
`
	ops, err := ParseString(src)
	require.NoError(t, err)
	require.Len(t, ops, 9)

	assert.Equal(t, Op{Line: 3, Kind: KindAlloc, Name: "a", Size: 100}, ops[0])
	assert.Equal(t, Op{Line: 4, Kind: KindAlloc, Name: "b", Size: 64}, ops[1])
	assert.Equal(t, Op{Line: 5, Kind: KindFill, Name: "a", Value: 0xAB}, ops[2])
	assert.Equal(t, Op{Line: 6, Kind: KindCheck, Name: "a", Value: 0xAB, Size: 10}, ops[3])
	assert.Equal(t, Op{Line: 7, Kind: KindResize, Name: "b", Size: 200}, ops[4])
	assert.Equal(t, Op{Line: 8, Kind: KindFree, Name: "a"}, ops[5])
	assert.Equal(t, KindCompact, ops[6].Kind)
	assert.Equal(t, KindDump, ops[7].Kind)
	assert.Equal(t, KindVerify, ops[8].Kind)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown op", "grow a 10", `unknown operation "grow"`},
		{"missing size", "alloc a", "alloc takes [2] arguments"},
		{"bad size", "alloc a ten", `bad size "ten"`},
		{"negative size", "resize a -5", `bad size "-5"`},
		{"byte overflow", "fill a 256", `bad byte "256"`},
		{"extra args", "compact now", "compact takes [0] arguments"},
		{"check too many", "check a 1 2 3", "check takes [2 3] arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString("alloc ok 1\n" + tt.src)
			require.ErrorIs(t, err, ErrSyntax)
			assert.Contains(t, err.Error(), "line 2")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOpString(t *testing.T) {
	ops, err := ParseString("alloc a 10\nfree a\nfill a 7\ncheck a 7 3\ncheck a 7\ncompact")
	require.NoError(t, err)

	var got []string
	for _, op := range ops {
		got = append(got, op.String())
	}
	assert.Equal(t, []string{
		"alloc a 10",
		"free a",
		"fill a 0x07",
		"check a 0x07 3",
		"check a 0x07",
		"compact",
	}, got)

	// String output parses back to the same operations.
	again, err := ParseString(strings.Join(got, "\n"))
	require.NoError(t, err)
	for i := range ops {
		assert.Equal(t, ops[i].Kind, again[i].Kind)
		assert.Equal(t, ops[i].Name, again[i].Name)
		assert.Equal(t, ops[i].Size, again[i].Size)
		assert.Equal(t, ops[i].Value, again[i].Value)
	}
}

func TestKindStringUnknown(t *testing.T) {
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
