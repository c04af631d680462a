package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"finhealth/internal/core"
)

// Flexoki dark, matching the dashboard palette.
var (
	colorBorder = lipgloss.Color("#575653")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorYellow = lipgloss.Color("#D0A215")
	colorOrange = lipgloss.Color("#DA702C")
	colorRed    = lipgloss.Color("#D14D41")
)

// printer renders to out with a color profile detected from out itself, so
// pipes and test buffers get plain text.
type printer struct {
	out io.Writer
	r   *lipgloss.Renderer
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out, r: lipgloss.NewRenderer(out)}
}

// table writes a bordered table. colorize, when set, styles a body cell.
func (p *printer) table(headers []string, rows [][]string, colorize func(row, col int) lipgloss.Style) {
	header := p.r.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cell := p.r.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.r.NewStyle().Foreground(colorBorder)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if colorize != nil {
				return cell.Inherit(colorize(row, col))
			}
			return cell
		})
	fmt.Fprintln(p.out, t.Render())
}

func (p *printer) statusStyle(status string) lipgloss.Style {
	s := p.r.NewStyle()
	switch status {
	case core.StatusExcellent.String():
		return s.Foreground(colorGreen)
	case core.StatusGood.String():
		return s.Foreground(colorYellow)
	case core.StatusWarning.String():
		return s.Foreground(colorOrange)
	case core.StatusDanger.String():
		return s.Foreground(colorRed)
	}
	return s
}

func (p *printer) classificationStyle(c core.Classification) lipgloss.Style {
	s := p.r.NewStyle().Bold(true)
	switch c {
	case core.ClassificationGood:
		return s.Foreground(colorGreen)
	case core.ClassificationFair:
		return s.Foreground(colorOrange)
	case core.ClassificationPoor:
		return s.Foreground(colorRed)
	}
	return s
}
