package parsing

import (
	"fmt"

	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/models"
)

// HeaderPathSeparator joins the levels of a multi-row merged header into the
// serialized column path.
const HeaderPathSeparator = " | "

// ParseHeaders reconstructs the horizontal column paths and vertical row
// labels of one sheet from its merged-cell header block.
//
// Merged cells arrive as one value followed by blanks, so the header subgrid
// is first filled upward within each column and then leftward within each
// row; the column path is then the sequence of distinct values top to bottom.
func ParseHeaders(grid models.Grid, s *models.TableStructure, norm *Normalizer) (*models.ParsedHeaders, error) {
	if s == nil {
		return nil, Critical("MISSING_STRUCTURE", apperrors.ErrMissingStructure)
	}
	if !s.Valid() || s.HeaderStartRow >= grid.Rows() {
		return nil, Critical("INVALID_STRUCTURE",
			fmt.Errorf("%w: %+v against %d rows", apperrors.ErrInvalidStructure, *s, grid.Rows()))
	}

	width := grid.Cols()
	depth := s.HeaderEndRow - s.HeaderStartRow + 1

	header := make([][]string, depth)
	for i := 0; i < depth; i++ {
		header[i] = make([]string, width)
		for c := 0; c < width; c++ {
			if cell := grid.Cell(s.HeaderStartRow+i, c); !cell.IsEmpty() {
				header[i][c] = cell.Text()
			}
		}
	}

	fillUpward(header)
	fillLeftward(header)

	horizontal := make([]string, 0, width-1)
	for c := 1; c < width; c++ {
		horizontal = append(horizontal, norm.Fix(columnPath(header, c)))
	}

	var vertical []string
	for r := s.DataStartRow; r < grid.Rows(); r++ {
		cell := grid.Cell(r, s.VerticalHeaderColumn)
		if cell.IsEmpty() {
			continue
		}
		vertical = append(vertical, norm.Fix(cell.Text()))
	}

	return &models.ParsedHeaders{Horizontal: horizontal, Vertical: vertical}, nil
}

// fillUpward copies the nearest value above into each empty header cell,
// column by column.
func fillUpward(header [][]string) {
	for c := 0; c < len(header[0]); c++ {
		for r := 0; r < len(header); r++ {
			if header[r][c] != "" {
				continue
			}
			for k := r - 1; k >= 0; k-- {
				if header[k][c] != "" {
					header[r][c] = header[k][c]
					break
				}
			}
		}
	}
}

// fillLeftward copies the left neighbour into each remaining empty cell, row
// by row.
func fillLeftward(header [][]string) {
	for r := 0; r < len(header); r++ {
		for c := 1; c < len(header[r]); c++ {
			if header[r][c] == "" {
				header[r][c] = header[r][c-1]
			}
		}
	}
}

// columnPath walks a filled header column top to bottom and serializes its
// distinct values in order. Repeats from merged cells collapse; hierarchy is
// preserved.
func columnPath(header [][]string, c int) string {
	path := ""
	current := header[0][c]
	for r := 1; r < len(header); r++ {
		if header[r][c] != current {
			if path == "" {
				path = current
			} else {
				path += HeaderPathSeparator + current
			}
			current = header[r][c]
		}
	}
	if path == "" {
		return current
	}
	return path + HeaderPathSeparator + current
}
