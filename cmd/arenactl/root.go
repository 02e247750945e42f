package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/arenakit/arena/alloc"
	"github.com/joshuapare/arenakit/internal/config"
	"github.com/joshuapare/arenakit/internal/logger"
	"github.com/joshuapare/arenakit/internal/mmfile"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	noColor    bool
	configPath string

	// cfg is loaded before every command runs.
	cfg = config.Default()

	// stdout is where commands write; tests swap it.
	stdout io.Writer = os.Stdout

	// numbers formats byte counts with digit grouping.
	numbers = message.NewPrinter(language.English)
)

var rootCmd = &cobra.Command{
	Use:   "arenactl",
	Short: "Drive and inspect a first-fit arena allocator",
	Long: `arenactl runs allocation scripts against a fixed-size arena, renders
the resulting layout, and stress-tests the allocator with random workloads.
The arena is a heap buffer by default or a memory-mapped file with --file.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Close()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration file and initializes logging.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	opts, err := cfg.LoggerOptions()
	if err != nil {
		return err
	}
	if verbose && opts.File == "" {
		opts.Enabled = true
		opts.Level = min(opts.Level, slog.LevelDebug)
	}
	return logger.Init(opts)
}

// arenaFlags are the per-command overrides of the [arena] table.
type arenaFlags struct {
	size     int
	capacity int
	file     string
}

func (f *arenaFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.size, "size", 0, "Arena size in bytes (default from config, 65536)")
	cmd.Flags().IntVar(&f.capacity, "capacity", 0, "Slots per ledger (default from config, 2048)")
	cmd.Flags().StringVar(&f.file, "file", "", "Map this file as the arena instead of a heap buffer")
}

// resolve applies the flags over the loaded configuration.
func (f *arenaFlags) resolve() (config.Arena, error) {
	a := cfg.Arena
	if f.size != 0 {
		a.Size = f.size
	}
	if f.capacity != 0 {
		a.Capacity = f.capacity
	}
	if f.file != "" {
		a.File = f.file
	}
	c := cfg
	c.Arena = a
	if err := c.Validate(); err != nil {
		return config.Arena{}, err
	}
	return a, nil
}

// openArena creates an allocator over a heap buffer or a mapped file. The
// returned cleanup flushes a mapped file and must always be called.
func openArena(a config.Arena) (*alloc.Allocator, func() error, error) {
	var (
		buf     []byte
		cleanup = func() error { return nil }
	)
	if a.File != "" {
		printVerbose("Mapping %s (%s bytes)\n", a.File, numbers.Sprintf("%d", a.Size))
		data, unmap, err := mmfile.Map(a.File, a.Size)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to map arena file: %w", err)
		}
		buf, cleanup = data, unmap
	} else {
		buf = make([]byte, a.Size)
	}

	al, err := alloc.New(buf, &alloc.Options{Capacity: a.Capacity})
	if err != nil {
		_ = cleanup()
		return nil, nil, err
	}
	return al, cleanup, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// printMetrics writes the occupancy summary.
func printMetrics(m alloc.Metrics) {
	printInfo("\nArena:\n")
	printInfo("  Size:          %s bytes\n", numbers.Sprintf("%d", m.Size))
	printInfo("  In use:        %s bytes in %d blocks\n", numbers.Sprintf("%d", m.InUse), m.UsedBlocks)
	printInfo("  Free:          %s bytes in %d blocks\n", numbers.Sprintf("%d", m.Free), m.FreeBlocks)
	printInfo("  Largest free:  %s bytes\n", numbers.Sprintf("%d", m.LargestFree))
	printInfo("  Fragmentation: %.1f%%\n", m.Fragmentation*100)
}
