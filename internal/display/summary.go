package display

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Counter is one labeled value in the end-of-run summary table.
type Counter struct {
	Label string
	Value int
}

// RenderCounters renders the summary counters as a two-column table.
func RenderCounters(counters []Counter) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Outcome", "Count"})

	for _, c := range counters {
		tw.AppendRow(table.Row{c.Label, strconv.Itoa(c.Value)})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}
