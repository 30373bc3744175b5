package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/repositories"
)

// User-facing dimension names, in presentation order, mapped to store fields.
var (
	DimensionNames = []string{"год", "субъект", "раздел", "строка", "колонка"}

	dimensionFields = map[string]string{
		"год":     "year",
		"субъект": "reporter",
		"раздел":  "section",
		"строка":  "row",
		"колонка": "column",
	}
)

// DataHeaders are the column names of the filtered-data projection.
var DataHeaders = []string{"год", "субъект", "раздел", "строка", "колонка", "значение"}

// AppliedFilter is one user-supplied dimension restriction.
type AppliedFilter struct {
	Dimension string
	Values    []string
}

// DataPage is one page of the six-tuple projection plus the total match
// count.
type DataPage struct {
	Rows  [][]any
	Total int64
}

// QueryService serves the multi-dimensional filter read path.
type QueryService interface {
	// FilterValues returns the ordered distinct values of one dimension
	// under the applied filters, optionally narrowed to one form and a
	// case-insensitive substring pattern.
	FilterValues(ctx context.Context, dimension string, filters []AppliedFilter, pattern string, formID *uuid.UUID) ([]any, error)

	// FilteredData returns one ordered page of (year, reporter, section,
	// row, column, value) rows plus the total count.
	FilteredData(ctx context.Context, filters []AppliedFilter, limit, offset int, formID *uuid.UUID) (*DataPage, error)
}

type queryService struct {
	records repositories.RecordRepository
}

// NewQueryService creates the query-building service over the record store.
func NewQueryService(records repositories.RecordRepository) QueryService {
	return &queryService{records: records}
}

// translateFilters maps user-facing dimension names to store fields and
// uppercases reporter values, which are stored uppercase.
func translateFilters(filters []AppliedFilter) ([]repositories.FieldFilter, error) {
	var out []repositories.FieldFilter
	for _, f := range filters {
		field, ok := dimensionFields[f.Dimension]
		if !ok {
			return nil, &ValidationError{Message: fmt.Sprintf("unknown filter name %q", f.Dimension)}
		}
		values := f.Values
		if field == "reporter" {
			values = make([]string, len(f.Values))
			for i, v := range f.Values {
				values[i] = strings.ToUpper(v)
			}
		}
		out = append(out, repositories.FieldFilter{Field: field, Values: values})
	}
	return out, nil
}

func (s *queryService) FilterValues(ctx context.Context, dimension string, filters []AppliedFilter, pattern string, formID *uuid.UUID) ([]any, error) {
	field, ok := dimensionFields[dimension]
	if !ok {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown filter name %q", dimension)}
	}

	translated, err := translateFilters(filters)
	if err != nil {
		return nil, err
	}

	values, err := s.records.Distinct(ctx, field, translated, pattern, formID)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", dimension, err)
	}
	return values, nil
}

func (s *queryService) FilteredData(ctx context.Context, filters []AppliedFilter, limit, offset int, formID *uuid.UUID) (*DataPage, error) {
	translated, err := translateFilters(filters)
	if err != nil {
		return nil, err
	}

	rows, total, err := s.records.FindPage(ctx, translated, limit, offset, formID)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}

	page := &DataPage{Total: total, Rows: make([][]any, 0, len(rows))}
	for _, row := range rows {
		if row.Year == nil || row.Reporter == nil || row.Section == nil || row.Row == nil || row.Column == nil {
			return nil, fmt.Errorf("%w: %+v", apperrors.ErrMalformedRecord, row)
		}
		page.Rows = append(page.Rows, []any{
			*row.Year, *row.Reporter, *row.Section, *row.Row, *row.Column,
			presentValue(row),
		})
	}
	return page, nil
}

// presentValue renders a stored value for the projection: integral floats
// become ints, other floats are rounded to 2 decimals, NaN becomes 0,
// non-numeric values stay strings.
func presentValue(row repositories.RecordRow) any {
	if row.ValueNum == nil {
		return row.ValueRaw
	}
	v := *row.ValueNum
	if math.IsNaN(v) {
		return 0
	}
	if v == math.Trunc(v) {
		return int64(v)
	}
	return math.Round(v*100) / 100
}
