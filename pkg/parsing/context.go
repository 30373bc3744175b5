package parsing

import "github.com/statforms/statforms-engine/pkg/models"

// SheetContext is the mutable state one sheet's step pipeline operates on.
// Steps communicate only through it; each context is owned by exactly one
// pipeline run.
type SheetContext struct {
	SheetName  string
	SheetIndex int
	RawGrid    models.Grid
	Form       *models.Form
	Scope      Scope

	// Slots filled by steps.
	Structure     *models.TableStructure
	ProcessedGrid models.Grid
	Headers       *models.ParsedHeaders
	Extracted     *models.ExtractedSheetData
	Records       []models.LongRecord
	Warnings      []string
}

// NewSheetContext builds the context for one sheet of one workbook.
func NewSheetContext(name string, index int, grid models.Grid, form *models.Form, scope Scope) *SheetContext {
	scope.Section = name
	return &SheetContext{
		SheetName:     name,
		SheetIndex:    index,
		RawGrid:       grid,
		ProcessedGrid: grid,
		Form:          form,
		Scope:         scope,
	}
}
