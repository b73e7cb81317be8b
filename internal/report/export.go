package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

const indicatorSheet = "Indicators"

// WriteXLSX writes one row per bar to the "Indicators" sheet of a new
// workbook at path. Undefined points are left as empty cells.
func WriteXLSX(path string, s *model.Series, set *model.IndicatorSet) error {
	if err := checkAligned(s, set); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()
	if err := fx.SetSheetName(fx.GetSheetName(0), indicatorSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	cols := exportColumns(s, set)
	header := make([]any, 0, len(cols)+1)
	header = append(header, "trade_date")
	for _, c := range cols {
		header = append(header, c.name)
	}
	if err := fx.SetSheetRow(indicatorSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := fx.SetCellStyle(indicatorSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := fx.SetColWidth(indicatorSheet, "A", "A", 12); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	for i := 0; i < s.Len(); i++ {
		row := make([]any, 0, len(cols)+1)
		row = append(row, s.Bar(i).Date.Format(model.DateLayout))
		for _, c := range cols {
			if v, ok := c.value(i); ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(indicatorSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := fx.SetPanes(indicatorSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	return fx.SaveAs(path)
}

// WriteCSV writes the same columns as WriteXLSX. Undefined points are empty
// fields.
func WriteCSV(w io.Writer, s *model.Series, set *model.IndicatorSet) error {
	if err := checkAligned(s, set); err != nil {
		return err
	}
	cols := exportColumns(s, set)
	cw := csv.NewWriter(w)

	header := []string{"trade_date"}
	for _, c := range cols {
		header = append(header, c.name)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < s.Len(); i++ {
		rec := make([]string, 0, len(header))
		rec = append(rec, s.Bar(i).Date.Format(model.DateLayout))
		for _, c := range cols {
			if v, ok := c.value(i); ok {
				rec = append(rec, strconv.FormatFloat(v, 'f', 4, 64))
			} else {
				rec = append(rec, "")
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes to path, choosing XLSX or CSV by extension.
func Export(path string, s *model.Series, set *model.IndicatorSet) error {
	switch filepath.Ext(path) {
	case ".xlsx":
		return WriteXLSX(path, s, set)
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := WriteCSV(f, s, set); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	default:
		return fmt.Errorf("unsupported export format %q, use .xlsx or .csv", filepath.Ext(path))
	}
}
