package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/joshuapare/arenakit/arena/alloc"
)

var (
	mapArena arenaFlags
	mapWidth int
	mapRows  int
)

func init() {
	cmd := newMapCmd()
	mapArena.register(cmd)
	cmd.Flags().IntVar(&mapWidth, "width", 64, "Cells per row")
	cmd.Flags().IntVar(&mapRows, "rows", 8, "Maximum number of rows")
	rootCmd.AddCommand(cmd)
}

func newMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map <script>",
		Short: "Run a script and draw the arena layout",
		Long: `The map command runs an allocation script and draws the final arena as a
grid of cells. Each used block gets a letter, free space is shown as dots.
A cell shows the block holding its first byte.

Example:
  arenactl map workload.txt
  arenactl map workload.txt --width 100 --rows 4 --no-color`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(args)
		},
	}
	return cmd
}

var (
	mapPalette = []lipgloss.Color{"#5FAFFF", "#FFAF5F", "#87D787", "#D787D7", "#FFD75F", "#5FD7D7"}
	freeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#585858"))
	titleStyle = lipgloss.NewStyle().Bold(true)
)

const freeCell = '.'

// mapEntry is one used block on the map.
type mapEntry struct {
	Mark   string      `json:"mark"`
	Name   string      `json:"name"`
	Range  alloc.Range `json:"range"`
	colour int
}

// arenaMap is a rendered-to-be layout.
type arenaMap struct {
	BytesPerCell int        `json:"bytes_per_cell"`
	Rows         []string   `json:"rows"`
	Legend       []mapEntry `json:"legend"`
	owners       []int
}

func runMap(args []string) (err error) {
	if mapWidth <= 0 || mapRows <= 0 {
		return fmt.Errorf("width and rows must be positive")
	}
	sr, err := executeScript(args[0], &mapArena, false, io.Discard)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sr.cleanup(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to flush arena: %w", cerr)
		}
	}()

	names := make(map[int]string)
	for _, name := range sr.runner.Names() {
		names[sr.runner.Handle(name).ID()] = name
	}
	m := buildMap(sr.alloc.Dump(), names, mapWidth, mapRows)

	if jsonOut {
		return printJSON(m)
	}
	printInfo("%s", m.render(!noColor, mapWidth))
	printMetrics(sr.alloc.Metrics())
	return nil
}

// buildMap lays out the snapshot over at most width*rows cells.
func buildMap(s alloc.Snapshot, names map[int]string, width, rows int) arenaMap {
	used := slices.Clone(s.Used)
	slices.SortFunc(used, func(a, b alloc.Range) int { return a.Offset - b.Offset })

	m := arenaMap{Legend: make([]mapEntry, len(used))}
	for i, r := range used {
		name := names[r.ID]
		if name == "" {
			name = fmt.Sprintf("#%d", r.ID)
		}
		m.Legend[i] = mapEntry{Mark: string(markFor(i)), Name: name, Range: r, colour: i % len(mapPalette)}
	}

	maxCells := width * rows
	m.BytesPerCell = (s.Size + maxCells - 1) / maxCells
	cells := (s.Size + m.BytesPerCell - 1) / m.BytesPerCell

	m.owners = make([]int, cells)
	next := 0
	for c := range m.owners {
		off := c * m.BytesPerCell
		for next < len(used) && used[next].End() < off {
			next++
		}
		m.owners[c] = -1
		if next < len(used) && used[next].Offset <= off {
			m.owners[c] = next
		}
	}

	for start := 0; start < cells; start += width {
		var sb strings.Builder
		for _, o := range m.owners[start:min(start+width, cells)] {
			if o < 0 {
				sb.WriteByte(freeCell)
			} else {
				sb.WriteByte(markFor(o))
			}
		}
		m.Rows = append(m.Rows, sb.String())
	}
	return m
}

// markFor names the i-th used block: A-Z, then a-z, then '#'.
func markFor(i int) byte {
	switch {
	case i < 26:
		return byte('A' + i)
	case i < 52:
		return byte('a' + i - 26)
	default:
		return '#'
	}
}

func (m arenaMap) render(colour bool, width int) string {
	var sb strings.Builder
	title := fmt.Sprintf("Layout (%s bytes per cell)", numbers.Sprintf("%d", m.BytesPerCell))
	if colour {
		title = titleStyle.Render(title)
	}
	sb.WriteString(title + "\n")

	for row := range m.Rows {
		start := row * width
		sb.WriteString("  ")
		for i, ch := range []byte(m.Rows[row]) {
			cell := string(ch)
			if colour {
				if o := m.owners[start+i]; o < 0 {
					cell = freeStyle.Render(cell)
				} else {
					cell = lipgloss.NewStyle().Foreground(mapPalette[m.Legend[o].colour]).Render(cell)
				}
			}
			sb.WriteString(cell)
		}
		sb.WriteString("\n")
	}

	if len(m.Legend) > 0 {
		sb.WriteString("\nBlocks:\n")
	}
	for _, e := range m.Legend {
		mark := e.Mark
		if colour {
			mark = lipgloss.NewStyle().Foreground(mapPalette[e.colour]).Render(mark)
		}
		fmt.Fprintf(&sb, "  %s  %-12s offset %-8s size %s\n", mark, e.Name,
			numbers.Sprintf("%d", e.Range.Offset), numbers.Sprintf("%d", e.Range.Size))
	}
	return sb.String()
}
