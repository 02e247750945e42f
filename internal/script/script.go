// Package script parses and runs allocator operation scripts.
//
// A script is one operation per line. Blank lines and text after '#' are
// ignored. Names bind handles; a name that was never allocated behaves as the
// null handle.
//
//	alloc  NAME SIZE        allocate SIZE bytes and bind them to NAME
//	resize NAME SIZE        resize NAME (allocates when NAME is null)
//	free   NAME             release NAME
//	fill   NAME BYTE        set every byte of NAME to BYTE
//	check  NAME BYTE [LEN]  require the first LEN bytes (default all) to equal BYTE
//	compact                 run compaction
//	dump                    print both ledgers
//	verify                  check the ledger invariants
//
// Sizes and bytes accept decimal or 0x-prefixed hex.
package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrSyntax indicates a malformed script line.
var ErrSyntax = errors.New("script: syntax error")

// Kind is the operation of one script line.
type Kind uint8

const (
	KindAlloc Kind = iota + 1
	KindResize
	KindFree
	KindFill
	KindCheck
	KindCompact
	KindDump
	KindVerify
)

var kindNames = map[Kind]string{
	KindAlloc:   "alloc",
	KindResize:  "resize",
	KindFree:    "free",
	KindFill:    "fill",
	KindCheck:   "check",
	KindCompact: "compact",
	KindDump:    "dump",
	KindVerify:  "verify",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Op is one parsed script line.
type Op struct {
	Line  int
	Kind  Kind
	Name  string
	Size  int  // alloc, resize; check length (0 = whole block)
	Value byte // fill, check
}

func (o Op) String() string {
	switch o.Kind {
	case KindAlloc, KindResize:
		return fmt.Sprintf("%s %s %d", o.Kind, o.Name, o.Size)
	case KindFree:
		return fmt.Sprintf("%s %s", o.Kind, o.Name)
	case KindFill:
		return fmt.Sprintf("%s %s 0x%02x", o.Kind, o.Name, o.Value)
	case KindCheck:
		if o.Size > 0 {
			return fmt.Sprintf("%s %s 0x%02x %d", o.Kind, o.Name, o.Value, o.Size)
		}
		return fmt.Sprintf("%s %s 0x%02x", o.Kind, o.Name, o.Value)
	default:
		return o.Kind.String()
	}
}

// Parse reads a script.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		op, err := parseLine(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		op.Line = line
		ops = append(ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

// ParseString parses a script held in memory.
func ParseString(s string) ([]Op, error) {
	return Parse(strings.NewReader(s))
}

func parseLine(f []string) (Op, error) {
	verb := strings.ToLower(f[0])
	args := f[1:]
	want := func(n ...int) error {
		for _, k := range n {
			if len(args) == k {
				return nil
			}
		}
		return fmt.Errorf("%w: %s takes %v arguments, got %d", ErrSyntax, verb, n, len(args))
	}

	switch verb {
	case "alloc", "resize":
		if err := want(2); err != nil {
			return Op{}, err
		}
		size, err := parseInt(args[1])
		if err != nil {
			return Op{}, err
		}
		kind := KindAlloc
		if verb == "resize" {
			kind = KindResize
		}
		return Op{Kind: kind, Name: args[0], Size: size}, nil

	case "free":
		if err := want(1); err != nil {
			return Op{}, err
		}
		return Op{Kind: KindFree, Name: args[0]}, nil

	case "fill":
		if err := want(2); err != nil {
			return Op{}, err
		}
		v, err := parseByte(args[1])
		if err != nil {
			return Op{}, err
		}
		return Op{Kind: KindFill, Name: args[0], Value: v}, nil

	case "check":
		if err := want(2, 3); err != nil {
			return Op{}, err
		}
		v, err := parseByte(args[1])
		if err != nil {
			return Op{}, err
		}
		op := Op{Kind: KindCheck, Name: args[0], Value: v}
		if len(args) == 3 {
			if op.Size, err = parseInt(args[2]); err != nil {
				return Op{}, err
			}
		}
		return op, nil

	case "compact", "dump", "verify":
		if err := want(0); err != nil {
			return Op{}, err
		}
		kind := map[string]Kind{"compact": KindCompact, "dump": KindDump, "verify": KindVerify}[verb]
		return Op{Kind: kind}, nil
	}
	return Op{}, fmt.Errorf("%w: unknown operation %q", ErrSyntax, f[0])
}

func parseInt(s string) (int, error) {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad size %q", ErrSyntax, s)
	}
	return int(n), nil
}

func parseByte(s string) (byte, error) {
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: bad byte %q", ErrSyntax, s)
	}
	return byte(n), nil
}
