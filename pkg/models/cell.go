package models

import (
	"math"
	"strconv"
	"strings"
)

// ServiceEmpty marks a cell that is intentionally blank, as opposed to one
// that was never filled. It must never leak into persisted record values.
const ServiceEmpty = "__service_empty__"

// CellKind discriminates the value held by a Cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellString
	CellInt
	CellFloat
)

// Cell is a tagged union over the value types a worksheet cell can hold.
// Mixed-type columns are the norm in this domain, so every grid position
// carries its own kind instead of a runtime-checked any.
type Cell struct {
	Kind  CellKind
	Str   string
	Int   int64
	Float float64
}

func EmptyCell() Cell          { return Cell{Kind: CellEmpty} }
func StringCell(s string) Cell { return Cell{Kind: CellString, Str: s} }
func IntCell(v int64) Cell     { return Cell{Kind: CellInt, Int: v} }
func FloatCell(v float64) Cell { return Cell{Kind: CellFloat, Float: v} }

// emptyTokens are string renderings treated as absent values.
var emptyTokens = map[string]struct{}{
	"":        {},
	"nan":     {},
	"none":    {},
	"null":    {},
	"nat":     {},
	"_x0000_": {},
	"_x000d_": {},
}

// IsEmpty reports whether the cell holds no usable value: an empty kind, a
// NaN float, the service-empty sentinel, or a string that renders to one of
// the known empty tokens after trimming and lowercasing.
func (c Cell) IsEmpty() bool {
	switch c.Kind {
	case CellEmpty:
		return true
	case CellFloat:
		return math.IsNaN(c.Float)
	case CellString:
		if c.Str == ServiceEmpty {
			return true
		}
		_, ok := emptyTokens[strings.ToLower(strings.TrimSpace(c.Str))]
		return ok
	default:
		return false
	}
}

// Text renders the cell as a string. Integral floats drop the fraction.
func (c Cell) Text() string {
	switch c.Kind {
	case CellString:
		return c.Str
	case CellInt:
		return strconv.FormatInt(c.Int, 10)
	case CellFloat:
		if c.Float == math.Trunc(c.Float) && !math.IsInf(c.Float, 0) && !math.IsNaN(c.Float) {
			return strconv.FormatInt(int64(c.Float), 10)
		}
		return strconv.FormatFloat(c.Float, 'f', -1, 64)
	default:
		return ""
	}
}

// Numeric reports the cell as a finite float if it looks numeric: native
// int/float kinds, or a string that parses after stripping spaces and
// replacing the decimal comma.
func (c Cell) Numeric() (float64, bool) {
	switch c.Kind {
	case CellInt:
		return float64(c.Int), true
	case CellFloat:
		if math.IsNaN(c.Float) || math.IsInf(c.Float, 0) {
			return 0, false
		}
		return c.Float, true
	case CellString:
		return ParseNumeric(c.Str)
	default:
		return 0, false
	}
}

// ParseNumeric applies the shared numeric predicate to a raw string:
// spaces removed, comma treated as decimal point, must parse to a finite
// float.
func ParseNumeric(s string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Coerce normalizes a cell for storage: numeric strings become ints or
// floats (int when integral), empties collapse to the empty cell.
func (c Cell) Coerce() Cell {
	if c.IsEmpty() {
		return EmptyCell()
	}
	if c.Kind == CellString {
		if v, ok := ParseNumeric(c.Str); ok {
			if v == math.Trunc(v) {
				return IntCell(int64(v))
			}
			return FloatCell(v)
		}
		return c
	}
	if c.Kind == CellFloat && c.Float == math.Trunc(c.Float) {
		return IntCell(int64(c.Float))
	}
	return c
}

// Grid is a rectangular-ish worksheet snapshot. Rows may be ragged; Cell
// performs bounds checks so callers can treat it as rectangular.
type Grid [][]Cell

// Rows returns the number of rows in the grid.
func (g Grid) Rows() int { return len(g) }

// Cols returns the widest row length.
func (g Grid) Cols() int {
	max := 0
	for _, row := range g {
		if len(row) > max {
			max = len(row)
		}
	}
	return max
}

// Cell returns the cell at (row, col), or the empty cell when out of range.
func (g Grid) Cell(row, col int) Cell {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return EmptyCell()
	}
	return g[row][col]
}

// NonEmptyInRow counts non-empty cells in a row.
func (g Grid) NonEmptyInRow(row int) int {
	if row < 0 || row >= len(g) {
		return 0
	}
	n := 0
	for _, c := range g[row] {
		if !c.IsEmpty() {
			n++
		}
	}
	return n
}
