package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/arenakit/arena/alloc"
	"github.com/joshuapare/arenakit/internal/script"
)

func init() {
	rootCmd.AddCommand(newDemoCmd())
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk through the allocator's core behaviours",
		Long: `The demo command runs a few short scenarios over a 1000-byte arena and
prints both ledgers after every operation: relocation after slot reuse,
release without coalescing, and compaction when nothing can move.

Example:
  arenactl demo
  arenactl demo --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo()
		},
	}
	return cmd
}

const demoArenaSize = 1000

// demoScenario is a named script run on a fresh arena.
type demoScenario struct {
	Name   string
	Script string
}

var demoScenarios = []demoScenario{
	{
		Name: "Relocating resize",
		Script: `alloc A 100
alloc B 100
fill B 0x42
free A
alloc C 50
resize B 150
check B 0x42 100`,
	},
	{
		Name: "Release without neighbours",
		Script: `alloc A 100
alloc B 100
free A`,
	},
	{
		Name: "Compaction with nothing to move",
		Script: `alloc A 100
alloc B 100
free B
compact`,
	},
}

// demoStep is one operation and the ledgers after it.
type demoStep struct {
	Op       string         `json:"op"`
	Error    string         `json:"error,omitempty"`
	Moves    int            `json:"moves,omitempty"`
	Snapshot alloc.Snapshot `json:"snapshot"`
}

type demoResult struct {
	Name  string     `json:"name"`
	Steps []demoStep `json:"steps"`
}

func runDemo() error {
	results := make([]demoResult, 0, len(demoScenarios))
	for _, sc := range demoScenarios {
		res, err := playScenario(sc)
		if err != nil {
			return fmt.Errorf("%s: %w", sc.Name, err)
		}
		results = append(results, res)
	}
	if jsonOut {
		return printJSON(results)
	}
	return nil
}

// playScenario runs sc on a fresh arena, printing each step in text mode.
func playScenario(sc demoScenario) (demoResult, error) {
	ops, err := script.ParseString(sc.Script)
	if err != nil {
		return demoResult{}, err
	}
	a, err := alloc.New(make([]byte, demoArenaSize), &alloc.Options{Capacity: cfg.Arena.Capacity})
	if err != nil {
		return demoResult{}, err
	}
	r := script.NewRunner(a, nil)

	res := demoResult{Name: sc.Name}
	if !jsonOut {
		printInfo("== %s ==\n\n", sc.Name)
		printInfo("%s\n", a)
	}
	for _, op := range ops {
		st := r.Exec(op)
		ds := demoStep{Op: op.String(), Moves: st.Moves, Snapshot: a.Dump()}
		if st.Err != nil {
			ds.Error = st.Err.Error()
		}
		res.Steps = append(res.Steps, ds)

		if jsonOut {
			continue
		}
		switch {
		case st.Err != nil:
			printInfo("> %s  (%v)\n", op, st.Err)
		case op.Kind == script.KindCompact:
			printInfo("> %s  (%d moves)\n", op, st.Moves)
		default:
			printInfo("> %s\n", op)
		}
		printInfo("%s\n", a)
	}
	if err := a.Verify(); err != nil {
		return res, err
	}
	return res, nil
}
