package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/verte-zerg/tsplit/internal/stats"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// palette colors cell text when enabled.
type palette struct {
	enabled bool
}

func newPalette(w io.Writer) palette {
	return palette{enabled: stats.UseColor(w)}
}

func (p palette) paint(s string, colors ...text.Color) string {
	if !p.enabled || s == "" {
		return s
	}
	return text.Colors(colors).Sprint(s)
}

func (p palette) good(s string) string  { return p.paint(s, text.FgGreen) }
func (p palette) bad(s string) string   { return p.paint(s, text.FgRed) }
func (p palette) gold(s string) string  { return p.paint(s, text.FgYellow, text.Bold) }
func (p palette) muted(s string) string { return p.paint(s, text.FgHiBlack) }
