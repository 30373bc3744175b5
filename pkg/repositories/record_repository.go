package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/statforms/statforms-engine/pkg/database"
	"github.com/statforms/statforms-engine/pkg/models"
)

// Store field names of the five record dimensions, as exposed to the query
// layer, mapped to their SQL columns. Doubles as the allow-list keeping user
// input out of SQL identifiers.
var dimensionColumns = map[string]string{
	"year":     "year",
	"reporter": "reporter",
	"section":  "section",
	"row":      "row_label",
	"column":   "col_label",
}

// FieldFilter is one conjunction clause over a dimension: field ∈ values.
type FieldFilter struct {
	Field  string
	Values []string
}

// RecordRow is the stored shape of one long record as read back for queries.
// Dimension fields are pointers so the query layer can detect malformed rows.
type RecordRow struct {
	Year     *int
	Reporter *string
	Section  *string
	Row      *string
	Column   *string
	ValueRaw string
	ValueNum *float64
}

// RecordRepository is the data access layer for long-form records.
type RecordRepository interface {
	// BulkInsert writes records in one batch and returns the inserted count.
	BulkInsert(ctx context.Context, records []models.LongRecord) (int64, error)

	// InsertOne writes a single record; used as the per-document fallback
	// when a bulk insert fails.
	InsertOne(ctx context.Context, record *models.LongRecord) error

	// CountByFileID counts the records of one workbook.
	CountByFileID(ctx context.Context, fileID uuid.UUID) (int64, error)

	// DeleteByFileID removes all records of one workbook and returns the
	// deleted count.
	DeleteByFileID(ctx context.Context, fileID uuid.UUID) (int64, error)

	// Distinct returns the ordered distinct values of one dimension under
	// the given filters. Pattern, when non-empty, is matched as a
	// case-insensitive substring of the target dimension.
	Distinct(ctx context.Context, field string, filters []FieldFilter, pattern string, formID *uuid.UUID) ([]any, error)

	// FindPage returns one ordered page of records plus the total count
	// under the given filters.
	FindPage(ctx context.Context, filters []FieldFilter, limit, offset int, formID *uuid.UUID) ([]RecordRow, int64, error)
}

type recordRepository struct {
	db *database.DB
}

// NewRecordRepository creates a PostgreSQL-backed record repository.
func NewRecordRepository(db *database.DB) RecordRepository {
	return &recordRepository{db: db}
}

var longRecordColumns = []string{
	"year", "reporter", "section", "row_label", "col_label",
	"value_raw", "value_num", "file_id", "form_id",
}

func recordValues(rec *models.LongRecord) []any {
	var num *float64
	if v, ok := rec.Value.Numeric(); ok {
		num = &v
	}
	return []any{
		rec.Year, nullable(rec.Reporter), rec.Section, rec.Row, rec.Column,
		rec.Value.Text(), num, rec.FileID, rec.FormID,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *recordRepository) BulkInsert(ctx context.Context, records []models.LongRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	n, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"engine_long_records"},
		longRecordColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return recordValues(&records[i]), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("bulk insert records: %w", err)
	}
	return n, nil
}

func (r *recordRepository) InsertOne(ctx context.Context, record *models.LongRecord) error {
	query := fmt.Sprintf(
		`INSERT INTO engine_long_records (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		strings.Join(longRecordColumns, ", "))
	if _, err := r.db.Exec(ctx, query, recordValues(record)...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (r *recordRepository) CountByFileID(ctx context.Context, fileID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM engine_long_records WHERE file_id = $1`, fileID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

func (r *recordRepository) DeleteByFileID(ctx context.Context, fileID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM engine_long_records WHERE file_id = $1`, fileID)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return tag.RowsAffected(), nil
}

// buildWhere translates filters into a conjunction of value-list clauses.
// Dimension values are compared as text so mixed-type dimensions (year)
// filter uniformly.
func buildWhere(filters []FieldFilter, pattern, patternField string, formID *uuid.UUID) (string, []any, error) {
	var clauses []string
	var args []any

	for _, f := range filters {
		col, ok := dimensionColumns[f.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown dimension %q", f.Field)
		}
		if len(f.Values) == 0 {
			continue
		}
		args = append(args, f.Values)
		clauses = append(clauses, fmt.Sprintf("%s::text = ANY($%d)", col, len(args)))
	}

	if pattern != "" {
		col, ok := dimensionColumns[patternField]
		if !ok {
			return "", nil, fmt.Errorf("unknown dimension %q", patternField)
		}
		args = append(args, "%"+pattern+"%")
		clauses = append(clauses, fmt.Sprintf("%s::text ILIKE $%d", col, len(args)))
	}

	if formID != nil {
		args = append(args, *formID)
		clauses = append(clauses, fmt.Sprintf("form_id = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args, nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args, nil
}

func (r *recordRepository) Distinct(ctx context.Context, field string, filters []FieldFilter, pattern string, formID *uuid.UUID) ([]any, error) {
	col, ok := dimensionColumns[field]
	if !ok {
		return nil, fmt.Errorf("unknown dimension %q", field)
	}

	where, args, err := buildWhere(filters, pattern, field, formID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT DISTINCT %s FROM engine_long_records %s ORDER BY %s ASC`, col, where, col)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", field, err)
	}
	defer rows.Close()

	var values []any
	for rows.Next() {
		if field == "year" {
			var v *int
			if err := rows.Scan(&v); err != nil {
				return nil, fmt.Errorf("scan distinct %s: %w", field, err)
			}
			if v != nil {
				values = append(values, *v)
			}
			continue
		}
		var v *string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct %s: %w", field, err)
		}
		if v != nil {
			values = append(values, *v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("distinct %s: %w", field, err)
	}
	return values, nil
}

func (r *recordRepository) FindPage(ctx context.Context, filters []FieldFilter, limit, offset int, formID *uuid.UUID) ([]RecordRow, int64, error) {
	where, args, err := buildWhere(filters, "", "", formID)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM engine_long_records "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT year, reporter, section, row_label, col_label, value_raw, value_num
		FROM engine_long_records %s
		ORDER BY year ASC, reporter ASC, section ASC, row_label ASC, col_label ASC,
			value_num ASC NULLS LAST, value_raw ASC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("find records: %w", err)
	}
	defer rows.Close()

	var out []RecordRow
	for rows.Next() {
		var row RecordRow
		if err := rows.Scan(&row.Year, &row.Reporter, &row.Section, &row.Row,
			&row.Column, &row.ValueRaw, &row.ValueNum); err != nil {
			return nil, 0, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("find records: %w", err)
	}
	return out, total, nil
}
