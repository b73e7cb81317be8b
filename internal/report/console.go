package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

// undefinedCell marks warm-up positions in the console table.
const undefinedCell = "-"

// Console prints the last rows days of the series with their indicators.
// rows <= 0 prints every day.
func Console(w io.Writer, info model.StockInfo, s *model.Series, set *model.IndicatorSet, rows int) error {
	if err := checkAligned(s, set); err != nil {
		return err
	}
	cols := consoleColumns(s, set)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title(info, s))

	header := table.Row{"Date"}
	configs := []table.ColumnConfig{{Number: 1, Align: text.AlignLeft}}
	for i, c := range cols {
		header = append(header, c.name)
		configs = append(configs, table.ColumnConfig{Number: i + 2, Align: text.AlignRight})
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(configs)

	from := 0
	if rows > 0 && rows < s.Len() {
		from = s.Len() - rows
	}
	for i := from; i < s.Len(); i++ {
		row := table.Row{s.Bar(i).Date.Format(model.DateLayout)}
		for _, c := range cols {
			row = append(row, formatCell(c, i))
		}
		t.AppendRow(row)
	}
	t.Render()
	return nil
}

func formatCell(c column, i int) string {
	v, ok := c.value(i)
	if !ok {
		return undefinedCell
	}
	return fmt.Sprintf("%.2f", v)
}

func title(info model.StockInfo, s *model.Series) string {
	name := info.Name
	if name == "" {
		name = s.Code()
	}
	first, last := s.Bar(0).Date, s.Bar(s.Len()-1).Date
	return fmt.Sprintf("%s (%s) %s ~ %s", name, s.Code(),
		first.Format(model.DateLayout), last.Format(model.DateLayout))
}
