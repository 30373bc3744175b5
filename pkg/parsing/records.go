package parsing

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/statforms/statforms-engine/pkg/models"
)

// Scope carries the workbook-level fields stamped onto every record built
// from one sheet.
type Scope struct {
	Year     *int
	Reporter string
	Section  string
	FileID   uuid.UUID
	FormID   *uuid.UUID
}

// BuildRecords flattens extracted sheet data into long records. Order is
// columns by horizontal order, rows within a column by vertical order.
// With skipEmpty set, absent and sentinel values contribute nothing; the
// operation is idempotent over its own output.
func BuildRecords(data *models.ExtractedSheetData, scope Scope, skipEmpty bool) []models.LongRecord {
	if data == nil {
		return nil
	}

	reporter := strings.ToUpper(scope.Reporter)
	var records []models.LongRecord
	for _, col := range data.Columns {
		for _, v := range col.Values {
			value := v.Value
			if skipEmpty && value.IsEmpty() {
				continue
			}
			if value.Kind == models.CellFloat && math.IsNaN(value.Float) {
				value = models.IntCell(0)
			}
			value = value.Coerce()

			records = append(records, models.LongRecord{
				Year:     scope.Year,
				Reporter: reporter,
				Section:  scope.Section,
				Row:      v.Row,
				Column:   col.Name,
				Value:    value,
				FileID:   scope.FileID,
				FormID:   scope.FormID,
			})
		}
	}
	return records
}
