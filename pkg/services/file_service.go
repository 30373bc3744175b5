package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statforms/statforms-engine/pkg/models"
	"github.com/statforms/statforms-engine/pkg/repositories"
)

// FilePage is one page of file records plus the total count.
type FilePage struct {
	Files []*models.FileRecord `json:"files"`
	Total int64                `json:"total"`
}

// FileService serves the ingested-file management surface.
type FileService interface {
	// List returns a page of file records, optionally filtered by year.
	List(ctx context.Context, limit, offset int, year *int) (*FilePage, error)

	// Delete removes a file record and cascades to its long records, making
	// the filename available for re-upload.
	Delete(ctx context.Context, fileID uuid.UUID) error
}

type fileService struct {
	files   repositories.FileRepository
	records repositories.RecordRepository
	logger  *zap.Logger
}

// NewFileService creates the file management service.
func NewFileService(files repositories.FileRepository, records repositories.RecordRepository, logger *zap.Logger) FileService {
	return &fileService{files: files, records: records, logger: logger}
}

func (s *fileService) List(ctx context.Context, limit, offset int, year *int) (*FilePage, error) {
	files, total, err := s.files.List(ctx, limit, offset, year)
	if err != nil {
		return nil, err
	}
	return &FilePage{Files: files, Total: total}, nil
}

func (s *fileService) Delete(ctx context.Context, fileID uuid.UUID) error {
	// Existence check first so a missing file surfaces as 404 before any
	// cascading happens.
	record, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return err
	}

	deleted, err := s.records.DeleteByFileID(ctx, fileID)
	if err != nil {
		return err
	}
	if err := s.files.Delete(ctx, fileID); err != nil {
		return err
	}

	s.logger.Info("File deleted",
		zap.String("file_id", fileID.String()),
		zap.String("filename", record.Filename),
		zap.Int64("records_deleted", deleted))
	return nil
}
