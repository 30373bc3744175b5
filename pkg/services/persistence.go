package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/models"
	"github.com/statforms/statforms-engine/pkg/repositories"
	"github.com/statforms/statforms-engine/pkg/retry"
)

// PersistenceCoordinator runs the two-phase save of one ingested file and its
// compensating rollback. The sequence (file record PROCESSING) -> (records in
// chunks) -> (file record SUCCESS) -> (count verification) is restartable
// from any step by deleting the file's records.
type PersistenceCoordinator interface {
	// ProcessAndSaveAll persists the file record and its long records
	// atomically from the client's point of view.
	ProcessAndSaveAll(ctx context.Context, record *models.FileRecord, records []models.LongRecord) error

	// Rollback best-effort deletes the file's long records and marks the
	// file record FAILED with the given error.
	Rollback(ctx context.Context, record *models.FileRecord, errMsg string)

	// SaveStub persists the stub record of a pipeline that died before
	// CreateFileRecord, so the client still sees the attempt. Status
	// defaults to FAILED when unset.
	SaveStub(ctx context.Context, record *models.FileRecord)
}

type persistenceCoordinator struct {
	files     repositories.FileRepository
	records   repositories.RecordRepository
	chunkSize int
	backoff   *retry.Config
	logger    *zap.Logger
}

// NewPersistenceCoordinator wires the coordinator with its repositories.
// chunkSize bounds each bulk insert.
func NewPersistenceCoordinator(
	files repositories.FileRepository,
	records repositories.RecordRepository,
	chunkSize int,
	logger *zap.Logger,
) PersistenceCoordinator {
	return &persistenceCoordinator{
		files:     files,
		records:   records,
		chunkSize: chunkSize,
		backoff:   retry.DefaultConfig(),
		logger:    logger,
	}
}

func (p *persistenceCoordinator) ProcessAndSaveAll(ctx context.Context, record *models.FileRecord, records []models.LongRecord) error {
	record.Status = models.FileStatusProcessing
	if err := p.files.Upsert(ctx, record); err != nil {
		return fmt.Errorf("save file record: %w", err)
	}

	var inserted int64
	for start := 0; start < len(records); start += p.chunkSize {
		end := start + p.chunkSize
		if end > len(records) {
			end = len(records)
		}
		n, err := p.insertChunk(ctx, records[start:end])
		inserted += n
		if err != nil {
			return err
		}
	}

	record.Status = models.FileStatusSuccess
	if inserted > 0 {
		record.Size = inserted
	}
	record.UpdatedAt = time.Now().UTC()
	if err := p.files.Upsert(ctx, record); err != nil {
		return fmt.Errorf("finalize file record: %w", err)
	}

	if len(records) > 0 {
		if err := p.verify(ctx, records); err != nil {
			return err
		}
	}
	return nil
}

// insertChunk bulk-inserts one chunk with backoff, falling back to
// per-document inserts when the bulk call keeps failing.
func (p *persistenceCoordinator) insertChunk(ctx context.Context, chunk []models.LongRecord) (int64, error) {
	n, err := retry.DoWithResult(ctx, p.backoff, func() (int64, error) {
		return p.records.BulkInsert(ctx, chunk)
	})
	if err == nil {
		return n, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Cancellation is not a transient store failure; the per-document
		// fallback would only fail record by record.
		return 0, fmt.Errorf("insert chunk of %d records: %w", len(chunk), err)
	}

	p.logger.Warn("Bulk insert failed, falling back to per-document inserts",
		zap.Int("chunk_size", len(chunk)),
		zap.Error(err))

	var saved int64
	var failed int
	for i := range chunk {
		if insErr := p.records.InsertOne(ctx, &chunk[i]); insErr != nil {
			failed++
			p.logger.Error("Record insert failed",
				zap.String("section", chunk[i].Section),
				zap.String("row", chunk[i].Row),
				zap.Error(insErr))
			continue
		}
		saved++
	}
	if saved == 0 {
		return 0, fmt.Errorf("insert chunk of %d records: %w", len(chunk), err)
	}
	if failed > 0 {
		p.logger.Warn("Chunk partially saved",
			zap.Int64("saved", saved),
			zap.Int("failed", failed))
	}
	return saved, nil
}

// verify re-reads the store after the writes: every file referenced by the
// batch must have at least one visible record.
func (p *persistenceCoordinator) verify(ctx context.Context, records []models.LongRecord) error {
	seen := make(map[uuid.UUID]struct{})
	for i := range records {
		seen[records[i].FileID] = struct{}{}
	}
	for fileID := range seen {
		count, err := p.records.CountByFileID(ctx, fileID)
		if err != nil {
			return fmt.Errorf("verify inserts for file %s: %w", fileID, err)
		}
		if count == 0 {
			return fmt.Errorf("%w: no records visible for file %s", apperrors.ErrVerificationFailed, fileID)
		}
	}
	return nil
}

func (p *persistenceCoordinator) Rollback(ctx context.Context, record *models.FileRecord, errMsg string) {
	deleted, err := p.records.DeleteByFileID(ctx, record.FileID)
	if err != nil {
		p.logger.Error("Rollback delete failed",
			zap.String("file_id", record.FileID.String()),
			zap.Error(err))
	}

	record.Status = models.FileStatusFailed
	record.Error = errMsg
	record.UpdatedAt = time.Now().UTC()
	if err := p.files.Upsert(ctx, record); err != nil {
		p.logger.Error("Rollback file record update failed",
			zap.String("file_id", record.FileID.String()),
			zap.Error(err))
	}

	p.logger.Info("Rolled back file",
		zap.String("file_id", record.FileID.String()),
		zap.String("filename", record.Filename),
		zap.Int64("records_deleted", deleted),
		zap.String("error", errMsg))
}

func (p *persistenceCoordinator) SaveStub(ctx context.Context, record *models.FileRecord) {
	if record.Status == "" {
		record.Status = models.FileStatusFailed
	}
	record.UpdatedAt = time.Now().UTC()
	if err := p.files.Upsert(ctx, record); err != nil {
		p.logger.Error("Stub file record save failed",
			zap.String("filename", record.Filename),
			zap.Error(err))
	}
}
