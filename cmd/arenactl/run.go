package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/arenakit/arena/alloc"
	"github.com/joshuapare/arenakit/internal/script"
)

var (
	runArena  arenaFlags
	runStrict bool
)

func init() {
	cmd := newRunCmd()
	runArena.register(cmd)
	cmd.Flags().BoolVar(&runStrict, "strict", false, "Stop at the first failing operation")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Execute an allocation script",
		Long: `The run command executes an allocation script against a fresh arena and
prints the outcome of every failing operation, the final ledgers and the
occupancy summary. Use "-" to read the script from stdin.

Script operations:
  alloc NAME SIZE     resize NAME SIZE    free NAME
  fill NAME BYTE      check NAME BYTE [LEN]
  compact             dump                verify

Example:
  arenactl run workload.txt
  arenactl run workload.txt --size 4096 --capacity 64
  arenactl run workload.txt --file arena.bin --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args)
		},
	}
	return cmd
}

// stepResult is the JSON form of one executed operation.
type stepResult struct {
	Line  int    `json:"line"`
	Op    string `json:"op"`
	Error string `json:"error,omitempty"`
	Moves int    `json:"moves,omitempty"`
}

// runResult is the JSON form of a whole script run.
type runResult struct {
	Script   string         `json:"script"`
	Steps    []stepResult   `json:"steps"`
	Failed   int            `json:"failed"`
	Snapshot alloc.Snapshot `json:"snapshot"`
	Metrics  alloc.Metrics  `json:"metrics"`
	Stats    alloc.Stats    `json:"stats"`
}

// scriptRun is a finished run whose allocator is still open.
type scriptRun struct {
	alloc   *alloc.Allocator
	runner  *script.Runner
	steps   []script.Step
	cleanup func() error
}

// readScript parses the script at path, or stdin for "-".
func readScript(path string) ([]script.Op, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		r = f
	}
	ops, err := script.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	return ops, nil
}

// executeScript opens an arena per flags and runs the script over it. Dump
// operations write to dumpTo.
func executeScript(path string, flags *arenaFlags, strict bool, dumpTo io.Writer) (*scriptRun, error) {
	ops, err := readScript(path)
	if err != nil {
		return nil, err
	}
	arena, err := flags.resolve()
	if err != nil {
		return nil, err
	}
	a, cleanup, err := openArena(arena)
	if err != nil {
		return nil, err
	}

	printVerbose("Running %d operations over %s bytes\n", len(ops), numbers.Sprintf("%d", a.Size()))
	r := script.NewRunner(a, dumpTo)
	r.Strict = strict
	steps, err := r.Run(ops)
	if err != nil {
		_ = cleanup()
		return nil, err
	}
	return &scriptRun{alloc: a, runner: r, steps: steps, cleanup: cleanup}, nil
}

func runRun(args []string) (err error) {
	dumpTo := stdout
	if jsonOut || quiet {
		dumpTo = io.Discard
	}
	sr, err := executeScript(args[0], &runArena, runStrict, dumpTo)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sr.cleanup(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to flush arena: %w", cerr)
		}
	}()

	res := runResult{
		Script:   args[0],
		Steps:    make([]stepResult, 0, len(sr.steps)),
		Snapshot: sr.alloc.Dump(),
		Metrics:  sr.alloc.Metrics(),
		Stats:    sr.alloc.Stats(),
	}
	for _, st := range sr.steps {
		s := stepResult{Line: st.Op.Line, Op: st.Op.String(), Moves: st.Moves}
		if st.Err != nil {
			s.Error = st.Err.Error()
			res.Failed++
		}
		res.Steps = append(res.Steps, s)
	}

	if jsonOut {
		return printJSON(res)
	}

	for _, st := range sr.steps {
		switch {
		case st.Err != nil:
			printInfo("line %d: %s: %v\n", st.Op.Line, st.Op, st.Err)
		case st.Op.Kind == script.KindCompact:
			printVerbose("line %d: %s: %d moves\n", st.Op.Line, st.Op, st.Moves)
		default:
			printVerbose("line %d: %s: ok\n", st.Op.Line, st.Op)
		}
	}

	printInfo("\n%s", sr.alloc.String())
	printMetrics(res.Metrics)
	printInfo("\n%d operations, %d failed\n", len(sr.steps), res.Failed)

	for _, st := range sr.steps {
		if errors.Is(st.Err, alloc.ErrCorrupt) {
			return fmt.Errorf("line %d: %w", st.Op.Line, st.Err)
		}
	}
	return nil
}
