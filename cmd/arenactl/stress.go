package main

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/joshuapare/arenakit/arena/alloc"
)

var (
	stressArena        arenaFlags
	stressSeed         uint64
	stressOps          int
	stressMaxAlloc     int
	stressCompactEvery int
)

func init() {
	cmd := newStressCmd()
	stressArena.register(cmd)
	cmd.Flags().Uint64Var(&stressSeed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&stressOps, "ops", 10000, "Number of operations")
	cmd.Flags().IntVar(&stressMaxAlloc, "max-alloc", 512, "Largest single request in bytes")
	cmd.Flags().IntVar(&stressCompactEvery, "compact-every", 0, "Compact after this many operations (0 = on out-of-memory only)")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a seeded random workload and verify the allocator",
		Long: `The stress command issues random allocate, resize and release calls,
tags every live block with a byte pattern, and after each operation checks
the ledger invariants and that moved blocks kept their contents. The run is
reproducible from --seed.

Example:
  arenactl stress
  arenactl stress --seed 42 --ops 100000 --size 1048576
  arenactl stress --capacity 32 --compact-every 100 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
	return cmd
}

// stressReport summarizes a stress run.
type stressReport struct {
	Seed        uint64        `json:"seed"`
	Ops         int           `json:"ops"`
	Live        int           `json:"live"`
	OutOfMemory int           `json:"out_of_memory"`
	OutOfSlots  int           `json:"out_of_slots"`
	Compactions int           `json:"compactions"`
	Moves       int           `json:"moves"`
	Metrics     alloc.Metrics `json:"metrics"`
	Stats       alloc.Stats   `json:"stats"`
}

// tagged is a live allocation whose bytes all equal tag.
type tagged struct {
	h   alloc.Handle
	tag byte
}

type stressor struct {
	a      *alloc.Allocator
	rng    *rand.Rand
	live   []tagged
	maxReq int
	next   byte
	report stressReport
}

func runStress() (err error) {
	if stressOps < 0 || stressMaxAlloc <= 0 || stressCompactEvery < 0 {
		return fmt.Errorf("ops, max-alloc and compact-every must not be negative")
	}
	arena, err := stressArena.resolve()
	if err != nil {
		return err
	}
	a, cleanup, err := openArena(arena)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cleanup(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to flush arena: %w", cerr)
		}
	}()

	s := newStressor(a, stressSeed, stressMaxAlloc)
	printVerbose("Stress: seed %d, %s ops over %s bytes\n",
		stressSeed, numbers.Sprintf("%d", stressOps), numbers.Sprintf("%d", a.Size()))
	if err := s.run(stressOps, stressCompactEvery); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(s.report)
	}
	r := s.report
	printInfo("Stress run (seed %d)\n", r.Seed)
	printInfo("  Operations:    %s\n", numbers.Sprintf("%d", r.Ops))
	printInfo("  Live blocks:   %d\n", r.Live)
	printInfo("  Out of memory: %s\n", numbers.Sprintf("%d", r.OutOfMemory))
	printInfo("  Out of slots:  %s\n", numbers.Sprintf("%d", r.OutOfSlots))
	printInfo("  Compactions:   %d (%s moves)\n", r.Compactions, numbers.Sprintf("%d", r.Moves))
	printInfo("  Relocations:   %s\n", numbers.Sprintf("%d", r.Stats.Relocations))
	printInfo("  Bytes moved:   %s\n", numbers.Sprintf("%d", r.Stats.BytesMoved))
	printMetrics(r.Metrics)
	printInfo("\n✓ All invariants held\n")
	return nil
}

func newStressor(a *alloc.Allocator, seed uint64, maxReq int) *stressor {
	return &stressor{
		a:      a,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		maxReq: maxReq,
		next:   1,
		report: stressReport{Seed: seed},
	}
}

// run performs ops random operations, verifying after each one.
func (s *stressor) run(ops, compactEvery int) error {
	for i := range ops {
		if err := s.step(); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
		if compactEvery > 0 && (i+1)%compactEvery == 0 {
			if err := s.compact(); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
		}
		s.report.Ops++
	}
	s.report.Live = len(s.live)
	s.report.Metrics = s.a.Metrics()
	s.report.Stats = s.a.Stats()
	return nil
}

func (s *stressor) step() error {
	var err error
	switch p := s.rng.IntN(10); {
	case p < 4 || len(s.live) == 0:
		err = s.allocate()
	case p < 7:
		err = s.resize(s.rng.IntN(len(s.live)))
	default:
		err = s.release(s.rng.IntN(len(s.live)))
	}

	switch {
	case errors.Is(err, alloc.ErrOutOfMemory):
		s.report.OutOfMemory++
		if err := s.compact(); err != nil {
			return err
		}
	case errors.Is(err, alloc.ErrOutOfSlots):
		s.report.OutOfSlots++
	case err != nil:
		return err
	}
	return s.a.Verify()
}

func (s *stressor) allocate() error {
	h, err := s.a.Allocate(1 + s.rng.IntN(s.maxReq))
	if err != nil {
		return err
	}
	t := tagged{h: h, tag: s.next}
	s.next++
	if s.next == 0 {
		s.next = 1
	}
	s.live = append(s.live, t)
	return s.fill(t)
}

func (s *stressor) resize(i int) error {
	t := &s.live[i]
	before, err := s.a.Range(t.h)
	if err != nil {
		return err
	}
	n := 1 + s.rng.IntN(s.maxReq)
	if err := s.a.Resize(&t.h, n); err != nil {
		return err
	}
	if err := s.check(*t, min(before.Size, n)); err != nil {
		return err
	}
	return s.fill(*t)
}

func (s *stressor) release(i int) error {
	t := s.live[i]
	if err := s.check(t, 0); err != nil {
		return err
	}
	if err := s.a.Release(&t.h); err != nil {
		return err
	}
	s.live[i] = s.live[len(s.live)-1]
	s.live = s.live[:len(s.live)-1]
	return nil
}

// compact runs compaction and checks every live block kept its contents.
func (s *stressor) compact() error {
	s.report.Compactions++
	s.report.Moves += s.a.Compact()
	for _, t := range s.live {
		if err := s.check(t, 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *stressor) fill(t tagged) error {
	b, err := s.a.Bytes(t.h)
	if err != nil {
		return err
	}
	for i := range b {
		b[i] = t.tag
	}
	return nil
}

// check requires the first n bytes of t (all when n is 0) to equal its tag.
func (s *stressor) check(t tagged, n int) error {
	b, err := s.a.Bytes(t.h)
	if err != nil {
		return err
	}
	if n > 0 {
		b = b[:n]
	}
	for i, v := range b {
		if v != t.tag {
			return fmt.Errorf("%w: handle %v byte %d is 0x%02x, want 0x%02x", alloc.ErrCorrupt, t.h, i, v, t.tag)
		}
	}
	return nil
}
