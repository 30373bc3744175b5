package workbook

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/statforms/statforms-engine/pkg/models"
)

// openXLSX loads a ZIP-based workbook (.xlsx/.xlsm) via excelize.
func openXLSX(data []byte) ([]Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx workbook: %w", err)
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		grid := make(models.Grid, len(rows))
		for i, row := range rows {
			cells := make([]models.Cell, len(row))
			for j, raw := range row {
				cells[j] = models.StringCell(raw)
			}
			grid[i] = cells
		}
		sheets = append(sheets, Sheet{Name: name, Grid: grid})
	}
	return sheets, nil
}
