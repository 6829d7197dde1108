package cli

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// table is a simple table formatter with dynamic, terminal-aware column
// widths, adapted from the teacher's cli.Table. The last column (typically
// a free-text explanation/reason field) is truncated with an ellipsis to fit the remaining
// terminal width, the way the teacher's table sizes its preview column.
type table struct {
	headers []string
	rows    [][]string
	padding int
}

func newTable(headers []string) *table {
	return &table{headers: headers, padding: 2}
}

func (t *table) addRow(row []string) {
	if len(row) != len(t.headers) {
		padded := make([]string, len(t.headers))
		copy(padded, row)
		t.rows = append(t.rows, padded)
		return
	}
	t.rows = append(t.rows, row)
}

func (t *table) render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	t.shrinkLastColumnToTerminal(widths)

	var b strings.Builder
	writeRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = padRight(truncate(c, widths[i]), widths[i])
		}
		b.WriteString(strings.Join(parts, strings.Repeat(" ", t.padding)))
		b.WriteString("\n")
	}
	writeRow(t.headers)

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	b.WriteString(strings.Join(sep, strings.Repeat(" ", t.padding)))
	b.WriteString("\n")

	for _, row := range t.rows {
		writeRow(row)
	}
	return b.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// truncate shortens s to fit width, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}

// shrinkLastColumnToTerminal caps the last column's width so the rendered
// row fits the stdout terminal width, matching the teacher's
// EnableTerminalAwareWidth behavior for its preview column. When stdout is
// not a TTY the widths are left untouched.
func (t *table) shrinkLastColumnToTerminal(widths []int) {
	if len(widths) == 0 {
		return
	}
	termWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || termWidth <= 0 {
		return
	}

	last := len(widths) - 1
	used := (len(widths) - 1) * t.padding
	for i, w := range widths {
		if i != last {
			used += w
		}
	}
	available := termWidth - used
	if available < 8 {
		available = 8
	}
	if widths[last] > available {
		widths[last] = available
	}
}
