package script

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/arenakit/arena/alloc"
	"github.com/joshuapare/arenakit/internal/logger"
)

var (
	// ErrNameInUse indicates an alloc onto a name that still holds a live handle.
	ErrNameInUse = errors.New("script: name already allocated")

	// ErrCheckFailed indicates a check operation found unexpected bytes.
	ErrCheckFailed = errors.New("script: check failed")
)

// Step records the outcome of one executed operation.
type Step struct {
	Op    Op
	Err   error
	Moves int // blocks moved by compact
}

// Runner executes operations against an allocator, tracking named handles.
type Runner struct {
	a       *alloc.Allocator
	out     io.Writer
	handles map[string]*alloc.Handle

	// Strict stops Run at the first failing operation.
	Strict bool
}

// NewRunner creates a runner over a. dump output goes to out; a nil out discards it.
func NewRunner(a *alloc.Allocator, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{a: a, out: out, handles: make(map[string]*alloc.Handle)}
}

// Handle returns the handle bound to name; unknown names are the null handle.
func (r *Runner) Handle(name string) alloc.Handle {
	if h, ok := r.handles[name]; ok {
		return *h
	}
	return alloc.Handle{}
}

// Names returns the names bound to live handles.
func (r *Runner) Names() []string {
	var names []string
	for name, h := range r.handles {
		if !h.IsNull() {
			names = append(names, name)
		}
	}
	return names
}

// Run executes ops in order. Failed operations are recorded in their Step;
// Run itself only fails in Strict mode.
func (r *Runner) Run(ops []Op) ([]Step, error) {
	steps := make([]Step, 0, len(ops))
	for _, op := range ops {
		st := r.Exec(op)
		steps = append(steps, st)
		if st.Err != nil {
			logger.Debug("script: step failed", "line", op.Line, "op", op.String(), "err", st.Err)
			if r.Strict {
				return steps, fmt.Errorf("line %d: %s: %w", op.Line, op, st.Err)
			}
		}
	}
	return steps, nil
}

// Exec executes a single operation.
func (r *Runner) Exec(op Op) Step {
	st := Step{Op: op}
	switch op.Kind {
	case KindAlloc:
		if h, ok := r.handles[op.Name]; ok && !h.IsNull() {
			st.Err = fmt.Errorf("%w: %s", ErrNameInUse, op.Name)
			break
		}
		h, err := r.a.Allocate(op.Size)
		if err != nil {
			st.Err = err
			break
		}
		r.handles[op.Name] = &h

	case KindResize:
		h := r.slot(op.Name)
		st.Err = r.a.Resize(h, op.Size)

	case KindFree:
		st.Err = r.a.Release(r.slot(op.Name))

	case KindFill:
		b, err := r.a.Bytes(r.Handle(op.Name))
		if err != nil {
			st.Err = err
			break
		}
		for i := range b {
			b[i] = op.Value
		}

	case KindCheck:
		st.Err = r.check(op)

	case KindCompact:
		st.Moves = r.a.Compact()

	case KindDump:
		st.Err = r.a.Show(r.out)

	case KindVerify:
		st.Err = r.a.Verify()

	default:
		st.Err = fmt.Errorf("%w: unknown operation %v", ErrSyntax, op.Kind)
	}
	return st
}

// slot returns the handle bound to name, binding a null handle if needed.
func (r *Runner) slot(name string) *alloc.Handle {
	h, ok := r.handles[name]
	if !ok {
		h = &alloc.Handle{}
		r.handles[name] = h
	}
	return h
}

func (r *Runner) check(op Op) error {
	b, err := r.a.Bytes(r.Handle(op.Name))
	if err != nil {
		return err
	}
	n := len(b)
	if op.Size > 0 {
		if op.Size > n {
			return fmt.Errorf("%w: %s holds %d bytes, want %d", ErrCheckFailed, op.Name, n, op.Size)
		}
		n = op.Size
	}
	for i := range n {
		if b[i] != op.Value {
			return fmt.Errorf("%w: %s byte %d is 0x%02x, want 0x%02x",
				ErrCheckFailed, op.Name, i, b[i], op.Value)
		}
	}
	return nil
}
