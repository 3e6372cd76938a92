package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/hipert/internal/pert"
)

// MaxPatternSize is the largest system RenderPattern draws in full.
const MaxPatternSize = 120

// RenderPattern colours a sparsity grid: 'D' in the primary colour,
// 'X' in the accent and '.' muted. Grids wider than MaxPatternSize are
// cropped to the top-left corner.
func RenderPattern(rows []string, theme Theme) string {
	diag := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	dep := lipgloss.NewStyle().Foreground(theme.Accent)
	empty := lipgloss.NewStyle().Foreground(theme.Muted)

	n := min(len(rows), MaxPatternSize)
	var b strings.Builder
	for _, row := range rows[:n] {
		if len(row) > n {
			row = row[:n]
		}
		for _, c := range row {
			switch c {
			case 'D':
				b.WriteString(diag.Render("D"))
			case 'X':
				b.WriteString(dep.Render("X"))
			default:
				b.WriteString(empty.Render("."))
			}
		}
		b.WriteByte('\n')
	}
	if len(rows) > n {
		b.WriteString(Subtle.Render(fmt.Sprintf("... %d of %d rows shown\n", n, len(rows))))
	}
	return b.String()
}

// Summary is the boxed overview printed after assembly.
func Summary(vars []pert.Variable, upper, lower, upperOrig, lowerOrig int) string {
	owners := map[int]int{}
	order := []int{}
	for _, v := range vars {
		if _, ok := owners[v.Owner]; !ok {
			order = append(order, v.Owner)
		}
		owners[v.Owner]++
	}

	var b strings.Builder
	b.WriteString(Title.Render("System") + "\n")
	line := func(label, value string) {
		b.WriteString(MetricLabel.Render(fmt.Sprintf("%-18s", label)) + MetricValue.Render(value) + "\n")
	}
	line("variables", fmt.Sprint(len(vars)))
	line("bandwidth", fmt.Sprintf("(%d, %d)", upper, lower))
	line("before reordering", fmt.Sprintf("(%d, %d)", upperOrig, lowerOrig))
	for _, o := range order {
		name := fmt.Sprintf("component %d", o)
		if o == pert.GravityOwner {
			name = "gravity"
		}
		line(name, fmt.Sprintf("%d vars", owners[o]))
	}
	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}

// Plot draws one or more series on a shared asciigraph chart.
func Plot(series [][]float64, caption string, width, height int) string {
	if len(series) == 0 || len(series[0]) == 0 {
		return Subtle.Render("no data")
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
