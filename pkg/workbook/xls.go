package workbook

import (
	"bytes"
	"fmt"

	"github.com/shakinm/xlsReader/xls"

	"github.com/statforms/statforms-engine/pkg/models"
)

// openXLS loads a legacy OLE2 workbook via xlsReader.
func openXLS(data []byte) ([]Sheet, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xls workbook: %w", err)
	}

	var sheets []Sheet
	for i := 0; i < wb.GetNumberSheets(); i++ {
		sheet, err := wb.GetSheet(i)
		if err != nil {
			return nil, fmt.Errorf("read sheet %d: %w", i, err)
		}

		grid := make(models.Grid, 0, sheet.GetNumberRows())
		for r := 0; r < sheet.GetNumberRows(); r++ {
			row, err := sheet.GetRow(r)
			if err != nil {
				grid = append(grid, nil)
				continue
			}
			cols := row.GetCols()
			cells := make([]models.Cell, len(cols))
			for j, col := range cols {
				cells[j] = models.StringCell(col.GetString())
			}
			grid = append(grid, cells)
		}
		sheets = append(sheets, Sheet{Name: sheet.GetName(), Grid: grid})
	}
	return sheets, nil
}
