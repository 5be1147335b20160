package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"econdash/internal/view"
)

const sheetName = "Data"

// writeXLSX writes the table to a single-sheet workbook. Missing values
// are left as empty cells.
func writeXLSX(out io.Writer, t view.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	if len(t.Columns) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("failed to create header style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, "A1", last, style); err != nil {
			return fmt.Errorf("failed to style headers: %w", err)
		}
	}

	for i, row := range t.Rows {
		cells := make([]interface{}, 0, len(row.Values)+1)
		cells = append(cells, row.Label)
		for _, v := range row.Values {
			if v == nil {
				cells = append(cells, nil)
				continue
			}
			cells = append(cells, *v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
