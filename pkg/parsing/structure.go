package parsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/models"
)

// StructureDetector determines the parsing rectangle of one worksheet grid.
type StructureDetector interface {
	Detect(grid models.Grid) (models.TableStructure, error)
}

// FixedDetector returns a preconfigured structure verbatim. Used for manual
// forms where every named sheet has a known layout.
type FixedDetector struct {
	Structure models.TableStructure
}

func (d FixedDetector) Detect(models.Grid) (models.TableStructure, error) {
	if !d.Structure.Valid() {
		return models.TableStructure{}, Critical("INVALID_STRUCTURE",
			fmt.Errorf("%w: fixed structure %+v", apperrors.ErrInvalidStructure, d.Structure))
	}
	return d.Structure, nil
}

// AutoDetector scans the grid heuristically. The layout assumption is the
// common one for FK workbooks: a multi-row merged header block, a row of
// column-number annotations directly under it, then data.
type AutoDetector struct{}

const (
	autoScanRows = 50 // rows inspected at most

	// first substantive row
	minCellsInRow   = 2
	sustainWindow   = 10
	maxEmptyRun     = 5
	densityWindow   = 12
	densityMinRows  = 6
	densityMinCells = 3

	// column-number row
	columnNumberWindow  = 15
	columnNumberMinHits = 8
	numericRowWindow    = 20
	numericRowMinHits   = 3
)

var positiveIntRe = regexp.MustCompile(`^\d+$`)

func (d AutoDetector) Detect(grid models.Grid) (models.TableStructure, error) {
	limit := grid.Rows()
	if limit > autoScanRows {
		limit = autoScanRows
	}
	if limit == 0 {
		return models.TableStructure{}, Critical("INVALID_STRUCTURE",
			fmt.Errorf("%w: empty grid", apperrors.ErrInvalidStructure))
	}

	start := d.findFirstSubstantiveRow(grid, limit)
	colNumRow := d.findColumnNumberRow(grid, start)

	s := models.TableStructure{
		HeaderStartRow: start,
		HeaderEndRow:   colNumRow - 1,
		DataStartRow:   colNumRow + 1,
	}
	if s.HeaderEndRow < s.HeaderStartRow {
		return models.TableStructure{}, Critical("INVALID_STRUCTURE",
			fmt.Errorf("%w: header rows [%d, %d]", apperrors.ErrInvalidStructure,
				s.HeaderStartRow, s.HeaderEndRow))
	}

	s.VerticalHeaderColumn = d.findVerticalHeaderColumn(grid, s)
	return s, nil
}

// findFirstSubstantiveRow returns the first row that both anchors a sustained
// column and sits on top of a dense block. Falls back to the row with the
// most non-empty cells.
func (d AutoDetector) findFirstSubstantiveRow(grid models.Grid, limit int) int {
	for r := 0; r < limit; r++ {
		if grid.NonEmptyInRow(r) < minCellsInRow {
			continue
		}
		if d.hasSustainedColumn(grid, r) && d.hasSustainedDensity(grid, r) {
			return r
		}
	}

	best, bestCount := 0, -1
	for r := 0; r < limit; r++ {
		if n := grid.NonEmptyInRow(r); n > bestCount {
			best, bestCount = r, n
		}
	}
	return best
}

// hasSustainedColumn reports whether at least one non-empty cell of row r has
// no run of more than maxEmptyRun consecutive empty cells below it within the
// sustain window.
func (d AutoDetector) hasSustainedColumn(grid models.Grid, r int) bool {
	if r >= grid.Rows() {
		return false
	}
	for c := 0; c < len(grid[r]); c++ {
		if grid[r][c].IsEmpty() {
			continue
		}
		run, worst := 0, 0
		for rr := r + 1; rr <= r+sustainWindow && rr < grid.Rows(); rr++ {
			if grid.Cell(rr, c).IsEmpty() {
				run++
				if run > worst {
					worst = run
				}
			} else {
				run = 0
			}
		}
		if worst <= maxEmptyRun {
			return true
		}
	}
	return false
}

// hasSustainedDensity reports whether enough of the rows right below r are
// themselves populated.
func (d AutoDetector) hasSustainedDensity(grid models.Grid, r int) bool {
	dense := 0
	for rr := r + 1; rr <= r+densityWindow && rr < grid.Rows(); rr++ {
		if grid.NonEmptyInRow(rr) >= densityMinCells {
			dense++
		}
	}
	return dense >= densityMinRows
}

// findColumnNumberRow locates the row of "column #" annotations that closes
// the header block.
func (d AutoDetector) findColumnNumberRow(grid models.Grid, start int) int {
	for r := start; r <= start+columnNumberWindow && r < grid.Rows(); r++ {
		hits := 0
		for _, cell := range grid[r] {
			text := strings.TrimSpace(cell.Text())
			if positiveIntRe.MatchString(text) {
				if v, err := strconv.Atoi(text); err == nil && v > 0 {
					hits++
				}
			}
		}
		if hits >= columnNumberMinHits {
			return r
		}
	}

	// No explicit annotation row: the first clearly numeric row marks where
	// data begins, so the row above it plays the part.
	for r := start + 1; r <= start+numericRowWindow && r < grid.Rows(); r++ {
		hits := 0
		for _, cell := range grid[r] {
			if _, ok := cell.Numeric(); ok {
				hits++
			}
		}
		if hits >= numericRowMinHits {
			return r - 1
		}
	}

	return start + 2
}

// findVerticalHeaderColumn picks the first column that actually holds data
// zone values, skipping pandas-style unnamed filler columns.
func (d AutoDetector) findVerticalHeaderColumn(grid models.Grid, s models.TableStructure) int {
	for c := 0; c < grid.Cols(); c++ {
		if strings.HasPrefix(d.columnName(grid, s, c), "Unnamed_Column_") {
			continue
		}
		count := 0
		for r := s.DataStartRow; r < grid.Rows(); r++ {
			if !grid.Cell(r, c).IsEmpty() {
				count++
			}
		}
		if count > 0 {
			return c
		}
	}
	return 0
}

// columnName returns the first non-empty header cell of a column.
func (d AutoDetector) columnName(grid models.Grid, s models.TableStructure, c int) string {
	for r := s.HeaderStartRow; r <= s.HeaderEndRow && r < grid.Rows(); r++ {
		if cell := grid.Cell(r, c); !cell.IsEmpty() {
			return strings.TrimSpace(cell.Text())
		}
	}
	return ""
}
