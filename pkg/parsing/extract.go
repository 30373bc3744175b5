package parsing

import (
	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/models"
)

// ExtractOptions tunes data extraction for one sheet.
type ExtractOptions struct {
	// Deduplicate collapses duplicate horizontal header names, keeping the
	// first occurrence, and coerces value cells to typed values.
	Deduplicate bool
}

// ExtractData pairs every horizontal header with its column of row-labelled
// values. Column positions are offset by one: column 0 of the data zone
// carries the vertical headers.
func ExtractData(grid models.Grid, s *models.TableStructure, headers *models.ParsedHeaders, opts ExtractOptions) (*models.ExtractedSheetData, error) {
	if s == nil {
		return nil, Critical("MISSING_STRUCTURE", apperrors.ErrMissingStructure)
	}
	if headers == nil || len(headers.Horizontal) == 0 || len(headers.Vertical) == 0 {
		return nil, Critical("MISSING_HEADERS", apperrors.ErrMissingHeaders)
	}

	if opts.Deduplicate {
		return extractDeduplicated(grid, s, headers), nil
	}
	return extractSimple(grid, s, headers), nil
}

func extractSimple(grid models.Grid, s *models.TableStructure, headers *models.ParsedHeaders) *models.ExtractedSheetData {
	data := &models.ExtractedSheetData{}
	for pos, name := range headers.Horizontal {
		col := models.ExtractedColumn{Name: name}
		for i, row := range headers.Vertical {
			col.Values = append(col.Values, models.ExtractedValue{
				Row:   row,
				Value: grid.Cell(s.DataStartRow+i, pos+1),
			})
		}
		data.Columns = append(data.Columns, col)
	}
	return data
}

func extractDeduplicated(grid models.Grid, s *models.TableStructure, headers *models.ParsedHeaders) *models.ExtractedSheetData {
	firstPos := make(map[string]int, len(headers.Horizontal))
	var order []string
	for pos, name := range headers.Horizontal {
		if _, seen := firstPos[name]; !seen {
			firstPos[name] = pos
			order = append(order, name)
		}
	}

	data := &models.ExtractedSheetData{}
	for _, name := range order {
		pos := firstPos[name]
		col := models.ExtractedColumn{Name: name}
		for i, row := range headers.Vertical {
			col.Values = append(col.Values, models.ExtractedValue{
				Row:   row,
				Value: grid.Cell(s.DataStartRow+i, pos+1).Coerce(),
			})
		}
		data.Columns = append(data.Columns, col)
	}
	return data
}
