package models

// TableStructure pins the parsing rectangle of one worksheet.
// Invariant: HeaderStartRow <= HeaderEndRow < DataStartRow, all zero-based;
// header rows are inclusive.
type TableStructure struct {
	HeaderStartRow       int
	HeaderEndRow         int
	DataStartRow         int
	VerticalHeaderColumn int
}

// Valid reports whether the structure satisfies its ordering invariant.
func (s TableStructure) Valid() bool {
	return s.HeaderStartRow <= s.HeaderEndRow &&
		s.HeaderEndRow < s.DataStartRow &&
		s.VerticalHeaderColumn >= 0
}

// ParsedHeaders carries the reconstructed header strings of one sheet.
// Horizontal entries are column paths joined by " | "; Vertical entries are
// the row labels in data order.
type ParsedHeaders struct {
	Horizontal []string
	Vertical   []string
}

// ExtractedColumn is one data column paired with its row-labelled values.
type ExtractedColumn struct {
	Name   string
	Values []ExtractedValue
}

// ExtractedValue is a (row label, raw value) pair inside a column.
type ExtractedValue struct {
	Row   string
	Value Cell
}

// ExtractedSheetData is the rectangular result of data extraction for one
// sheet, columns in horizontal-header order.
type ExtractedSheetData struct {
	Columns []ExtractedColumn
}

// SheetModel summarizes one ingested sheet for the upload response.
type SheetModel struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	Rows    int      `json:"rows"`
	Records int      `json:"records"`
}
