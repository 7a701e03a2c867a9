package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableColumn describes one console table column. Numeric columns (ranks,
// signal levels, spreads) are right aligned.
type tableColumn struct {
	Title   string
	Numeric bool
}

// tableRow is one rendered row. Muted rows mark entries that need no
// attention, like weak receivers and failed runs, and are dimmed when the
// output is a terminal.
type tableRow struct {
	Cells []string
	Muted bool
}

func renderTable(columns []tableColumn, rows []tableRow) string {
	if len(columns) == 0 {
		return ""
	}
	dim := stdoutIsTerminal()

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	for i, col := range columns {
		header[i] = col.Title
	}
	tw.AppendHeader(header)

	muted := text.Colors{text.FgHiBlack}
	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			cell := ""
			if i < len(row.Cells) {
				cell = row.Cells[i]
			}
			if row.Muted && dim && cell != "" {
				cell = muted.Sprint(cell)
			}
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, col := range columns {
		align := text.AlignLeft
		if col.Numeric {
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
