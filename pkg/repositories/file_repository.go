package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/database"
	"github.com/statforms/statforms-engine/pkg/models"
)

// FileRepository is the data access layer for ingested workbook records.
type FileRepository interface {
	// Upsert inserts or updates a file record by file_id. Inserting a second
	// record with an existing filename fails with apperrors.ErrDuplicateFile.
	Upsert(ctx context.Context, record *models.FileRecord) error

	// GetByID retrieves one file record. apperrors.ErrNotFound if absent.
	GetByID(ctx context.Context, fileID uuid.UUID) (*models.FileRecord, error)

	// ExistsByFilename reports whether a record owns this filename.
	// Journal rows of rejected duplicate attempts do not count.
	ExistsByFilename(ctx context.Context, filename string) (bool, error)

	// List returns a page of file records, newest first, with the total
	// count. A non-nil year filters on it.
	List(ctx context.Context, limit, offset int, year *int) ([]*models.FileRecord, int64, error)

	// Delete removes one file record. apperrors.ErrNotFound if absent.
	Delete(ctx context.Context, fileID uuid.UUID) error
}

type fileRepository struct {
	db *database.DB
}

// NewFileRepository creates a PostgreSQL-backed file repository.
func NewFileRepository(db *database.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Upsert(ctx context.Context, record *models.FileRecord) error {
	sheets, err := json.Marshal(record.Sheets)
	if err != nil {
		return fmt.Errorf("marshal sheets: %w", err)
	}
	if record.Sheets == nil {
		sheets = []byte("[]")
	}

	query := `
		INSERT INTO engine_files
			(file_id, filename, form_id, year, reporter, status, error, sheets, size, uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (file_id) DO UPDATE SET
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			sheets = EXCLUDED.sheets,
			size = EXCLUDED.size,
			year = EXCLUDED.year,
			reporter = EXCLUDED.reporter,
			updated_at = now()`

	_, err = r.db.Exec(ctx, query,
		record.FileID, record.Filename, record.FormID, record.Year, record.Reporter,
		record.Status, record.Error, sheets, record.Size, record.UploadedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Unique filename index: a concurrent upload won the race.
			return fmt.Errorf("%w: %s", apperrors.ErrDuplicateFile, record.Filename)
		}
		return fmt.Errorf("upsert file record: %w", err)
	}
	return nil
}

func (r *fileRepository) GetByID(ctx context.Context, fileID uuid.UUID) (*models.FileRecord, error) {
	query := `
		SELECT file_id, filename, form_id, year, reporter, status, error, sheets, size, uploaded_at, updated_at
		FROM engine_files WHERE file_id = $1`

	record, err := scanFileRecord(r.db.QueryRow(ctx, query, fileID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: file %s", apperrors.ErrNotFound, fileID)
		}
		return nil, fmt.Errorf("get file record: %w", err)
	}
	return record, nil
}

func (r *fileRepository) ExistsByFilename(ctx context.Context, filename string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM engine_files WHERE filename = $1 AND status <> $2)`,
		filename, models.FileStatusDuplicate).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check filename uniqueness: %w", err)
	}
	return exists, nil
}

func (r *fileRepository) List(ctx context.Context, limit, offset int, year *int) ([]*models.FileRecord, int64, error) {
	where := ""
	args := []any{}
	if year != nil {
		where = "WHERE year = $1"
		args = append(args, *year)
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM engine_files "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count file records: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT file_id, filename, form_id, year, reporter, status, error, sheets, size, uploaded_at, updated_at
		FROM engine_files %s
		ORDER BY uploaded_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list file records: %w", err)
	}
	defer rows.Close()

	var records []*models.FileRecord
	for rows.Next() {
		record, err := scanFileRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan file record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list file records: %w", err)
	}
	return records, total, nil
}

func (r *fileRepository) Delete(ctx context.Context, fileID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM engine_files WHERE file_id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: file %s", apperrors.ErrNotFound, fileID)
	}
	return nil
}

func scanFileRecord(row pgx.Row) (*models.FileRecord, error) {
	var record models.FileRecord
	var sheets []byte
	if err := row.Scan(&record.FileID, &record.Filename, &record.FormID, &record.Year,
		&record.Reporter, &record.Status, &record.Error, &sheets, &record.Size,
		&record.UploadedAt, &record.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(sheets, &record.Sheets); err != nil {
		return nil, fmt.Errorf("unmarshal sheets: %w", err)
	}
	return &record, nil
}
