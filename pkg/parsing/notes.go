package parsing

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/statforms/statforms-engine/pkg/models"
)

// The notes block of manual-family sheets is anchored by this marker; form
// requisites may extend the recognition set.
const referenceMarker = "Reference:"

// referenceColumnName is the synthetic column the expanded note values land in.
const referenceColumnName = "Reference"

var noteCodeRe = regexp.MustCompile(`^\((\d+)\)$`)

// ExpandNotes detects the reference block embedded after a sheet's main table
// and expands each noted quantity into a regular data row. Rows carrying the
// marker itself, and rows left without both a label and a reference value,
// are dropped from the body.
func ExpandNotes(grid models.Grid, headerRows int, extraKeywords []string) (models.Grid, error) {
	if headerRows <= 0 || headerRows >= grid.Rows() {
		return nil, fmt.Errorf("notes: header rows %d out of range for %d grid rows", headerRows, grid.Rows())
	}

	markers := map[string]struct{}{referenceMarker: {}}
	for _, kw := range extraKeywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			markers[kw] = struct{}{}
		}
	}
	isMarker := func(c models.Cell) bool {
		_, ok := markers[strings.TrimSpace(c.Text())]
		return ok
	}

	width := grid.Cols()
	refCol := findReferenceColumn(grid, headerRows, width)
	if refCol < 0 {
		refCol = width
		width++
	}

	header := copyRows(grid[:headerRows], width)
	for r := range header {
		if header[r][refCol].IsEmpty() {
			header[r][refCol] = models.StringCell(referenceColumnName)
		}
	}

	body := copyRows(grid[headerRows:], width)
	for _, row := range body {
		row[refCol] = models.StringCell(models.ServiceEmpty)
	}

	var newRows []([]models.Cell)
	for r := 0; r < len(body); r++ {
		for c := 0; c < width; c++ {
			if !isMarker(body[r][c]) {
				continue
			}
			newRows = append(newRows, expandAnchor(body, r, c, width, refCol, isMarker)...)
		}
	}

	combined := append(body, newRows...)
	var filtered []([]models.Cell)
	for _, row := range combined {
		if rowHasMarker(row, isMarker) {
			continue
		}
		if row[0].IsEmpty() && row[refCol].IsEmpty() {
			continue
		}
		filtered = append(filtered, row)
	}

	result := make(models.Grid, 0, len(header)+len(filtered))
	result = append(result, header...)
	result = append(result, filtered...)
	return result, nil
}

// expandAnchor walks the rows under one "Reference:" marker and synthesizes a
// data row per noted quantity.
func expandAnchor(body [][]models.Cell, r, c, width, refCol int, isMarker func(models.Cell) bool) [][]models.Cell {
	var rows [][]models.Cell
	prevLabel := ""

	for rr := r; rr < len(body); rr++ {
		var entry []models.Cell
		for cc := c; cc < width; cc++ {
			cell := body[rr][cc]
			if cell.IsEmpty() || isMarker(cell) {
				continue
			}
			entry = append(entry, cell)
		}
		if len(entry) == 0 {
			continue
		}

		allLabels := true
		for _, cell := range entry {
			if classifyNote(cell) != noteLabel {
				allLabels = false
				break
			}
		}
		if allLabels {
			// A lone label line names the section the following notes
			// belong to.
			prevLabel = strings.TrimSpace(entry[0].Text())
			continue
		}

		rowLabel := prevLabel
		if classifyNote(entry[0]) == noteLabel {
			rowLabel = strings.TrimSpace(entry[0].Text())
		}

		code, unit := "", ""
		var value models.Cell
		haveValue := false
		for i, cell := range entry {
			switch classifyNote(cell) {
			case noteCode:
				if code == "" {
					code = strings.TrimSpace(cell.Text())
				}
			case noteNumber:
				if !haveValue {
					v, _ := cell.Numeric()
					if v == math.Trunc(v) {
						value = models.IntCell(int64(v))
					} else {
						value = models.FloatCell(v)
					}
					haveValue = true
				}
			case noteLabel:
				if i > 0 && unit == "" {
					unit = strings.TrimSpace(cell.Text())
				}
			}
		}

		if rowLabel == "" || !haveValue {
			continue
		}

		label := rowLabel
		if unit != "" {
			label += " (" + unit + ")"
		}
		row := make([]models.Cell, width)
		for i := range row {
			row[i] = models.StringCell(models.ServiceEmpty)
		}
		row[0] = models.StringCell(label)
		if code != "" && width > 1 {
			row[1] = models.StringCell(code) // row-code column of the form layout
		}
		row[refCol] = value
		rows = append(rows, row)
	}
	return rows
}

type noteKind int

const (
	noteLabel noteKind = iota
	noteCode
	noteNumber
)

func classifyNote(c models.Cell) noteKind {
	text := strings.TrimSpace(c.Text())
	if noteCodeRe.MatchString(text) {
		return noteCode
	}
	if v, ok := c.Numeric(); ok && v > 0 {
		return noteNumber
	}
	return noteLabel
}

func rowHasMarker(row []models.Cell, isMarker func(models.Cell) bool) bool {
	for _, cell := range row {
		if isMarker(cell) {
			return true
		}
	}
	return false
}

func findReferenceColumn(grid models.Grid, headerRows, width int) int {
	for c := 0; c < width; c++ {
		for r := 0; r < headerRows; r++ {
			if strings.TrimSpace(grid.Cell(r, c).Text()) == referenceColumnName {
				return c
			}
		}
	}
	return -1
}

func copyRows(rows []([]models.Cell), width int) [][]models.Cell {
	out := make([][]models.Cell, len(rows))
	for i, row := range rows {
		padded := make([]models.Cell, width)
		copy(padded, row)
		for j := len(row); j < width; j++ {
			padded[j] = models.EmptyCell()
		}
		out[i] = padded
	}
	return out
}
