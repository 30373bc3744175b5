package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/models"
	"github.com/statforms/statforms-engine/pkg/parsing"
	"github.com/statforms/statforms-engine/pkg/repositories"
	"github.com/statforms/statforms-engine/pkg/workbook"
)

// UploadFile is one file of an upload batch: a name and its unread stream.
type UploadFile struct {
	Filename string
	Reader   io.Reader
}

// FileResult is the per-file entry of the batch summary.
type FileResult struct {
	Filename string `json:"filename"`
	Status   string `json:"status"` // "success" | "failed"
	Error    string `json:"error,omitempty"`
}

// FileContext is the mutable state one file's pipeline operates on. Steps
// communicate only through it; a context is owned by exactly one pipeline
// run.
type FileContext struct {
	Upload UploadFile
	Form   *models.Form

	Filename    string
	Content     []byte
	Info        *models.FileInfo
	Record      *models.FileRecord
	SheetModels []models.SheetModel
	Records     []models.LongRecord
}

// uploadError is a file-level critical error with a user-actionable message.
type uploadError struct {
	Message string
	Err     error
}

func (e *uploadError) Error() string { return e.Message }
func (e *uploadError) Unwrap() error { return e.Err }

func failStep(err error, format string, args ...any) error {
	return &uploadError{Message: fmt.Sprintf(format, args...), Err: err}
}

// uploadPipeline runs the ordered file-level steps. Every step error is
// critical: it halts the pipeline, rolls back whatever was persisted, and
// leaves a FAILED record (or stub) behind.
type uploadPipeline struct {
	files        repositories.FileRepository
	coordinator  PersistenceCoordinator
	normalizer   *parsing.Normalizer
	maxFileBytes int64
	logger       *zap.Logger
}

type pipelineStep struct {
	name string
	run  func(ctx context.Context, fc *FileContext) error
}

func (p *uploadPipeline) steps() []pipelineStep {
	return []pipelineStep{
		{"ReadContent", p.readContent},
		{"ExtractMetadata", p.extractMetadata},
		{"CheckUniqueness", p.checkUniqueness},
		{"CreateFileRecord", p.createFileRecord},
		{"ProcessSheets", p.processSheets},
		{"EnrichRecords", p.enrichRecords},
		{"Persist", p.persist},
	}
}

// Run executes the pipeline for one file and reports its summary entry.
func (p *uploadPipeline) Run(ctx context.Context, fc *FileContext) FileResult {
	for _, step := range p.steps() {
		err := p.runStep(ctx, step, fc)
		if err == nil {
			continue
		}

		var ue *uploadError
		if !errors.As(err, &ue) {
			ue = &uploadError{Message: fmt.Sprintf("Unexpected error in step %s", step.name), Err: err}
		}

		p.logger.Error("Upload pipeline failed",
			zap.String("filename", fc.displayName()),
			zap.String("step", step.name),
			zap.Error(err))

		// Compensation must run even when the request context is already
		// cancelled, or the file record stays PROCESSING forever.
		cleanupCtx := context.WithoutCancel(ctx)
		if fc.Record != nil {
			p.coordinator.Rollback(cleanupCtx, fc.Record, ue.Message)
		} else {
			stub := p.stubRecord(fc, ue.Message)
			if errors.Is(err, apperrors.ErrDuplicateFile) {
				// Journaled attempt; the filename stays owned by the
				// original record.
				stub.Status = models.FileStatusDuplicate
			}
			p.coordinator.SaveStub(cleanupCtx, stub)
		}

		return FileResult{Filename: fc.displayName(), Status: "failed", Error: ue.Message}
	}

	return FileResult{Filename: fc.Filename, Status: "success"}
}

func (p *uploadPipeline) runStep(ctx context.Context, step pipelineStep, fc *FileContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in step %s: %v", step.name, r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return failStep(err, "Upload cancelled.")
	}
	return step.run(ctx, fc)
}

func (fc *FileContext) displayName() string {
	if fc.Filename != "" {
		return fc.Filename
	}
	return fc.Upload.Filename
}

// stubRecord builds the FAILED record saved when the pipeline died before
// CreateFileRecord.
func (p *uploadPipeline) stubRecord(fc *FileContext, errMsg string) *models.FileRecord {
	record := &models.FileRecord{
		FileID:     uuid.New(),
		Filename:   fc.displayName(),
		Status:     models.FileStatusFailed,
		Error:      errMsg,
		UploadedAt: time.Now().UTC(),
	}
	if fc.Form != nil {
		record.FormID = &fc.Form.ID
	}
	if fc.Info != nil {
		record.Year = &fc.Info.Year
		record.Reporter = fc.Info.Reporter
	}
	return record
}

func (p *uploadPipeline) readContent(_ context.Context, fc *FileContext) error {
	fc.Filename = fc.Upload.Filename

	content, err := io.ReadAll(io.LimitReader(fc.Upload.Reader, p.maxFileBytes+1))
	if err != nil {
		return failStep(err, "Could not read file '%s'.", fc.Filename)
	}
	if len(content) == 0 {
		return failStep(apperrors.ErrEmptyFile, "File '%s' is empty.", fc.Filename)
	}
	if int64(len(content)) > p.maxFileBytes {
		return failStep(nil, "File '%s' exceeds the size limit.", fc.Filename)
	}
	fc.Content = content
	return nil
}

func (p *uploadPipeline) extractMetadata(_ context.Context, fc *FileContext) error {
	info, err := parsing.ParseFilename(fc.Filename)
	if err != nil {
		return failStep(err, "Invalid filename '%s'. Expected: '<REPORTER> YYYY.ext' with extension xls, xlsx or xlsm.", fc.Filename)
	}
	fc.Info = info
	return nil
}

func (p *uploadPipeline) checkUniqueness(ctx context.Context, fc *FileContext) error {
	exists, err := p.files.ExistsByFilename(ctx, fc.Filename)
	if err != nil {
		return failStep(err, "Could not check uniqueness of '%s'.", fc.Filename)
	}
	if exists {
		return failStep(apperrors.ErrDuplicateFile, "File '%s' already uploaded.", fc.Filename)
	}
	return nil
}

func (p *uploadPipeline) createFileRecord(ctx context.Context, fc *FileContext) error {
	record := &models.FileRecord{
		FileID:     uuid.New(),
		Filename:   fc.Filename,
		FormID:     &fc.Form.ID,
		Year:       &fc.Info.Year,
		Reporter:   fc.Info.Reporter,
		Status:     models.FileStatusProcessing,
		Sheets:     []string{},
		UploadedAt: time.Now().UTC(),
	}
	if err := p.files.Upsert(ctx, record); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateFile) {
			// Lost the uniqueness race to a concurrent upload.
			return failStep(err, "File '%s' already uploaded.", fc.Filename)
		}
		return failStep(err, "Could not create record for '%s'.", fc.Filename)
	}
	fc.Record = record
	return nil
}

func (p *uploadPipeline) processSheets(ctx context.Context, fc *FileContext) error {
	sheets, err := workbook.Open(fc.Content)
	if err != nil {
		return failStep(err, "File '%s' is not a valid xls/xlsx workbook.", fc.Filename)
	}

	strategy, err := parsing.ForForm(fc.Form, p.normalizer)
	if err != nil {
		return failStep(err, "Form '%s' has no parsing strategy.", fc.Form.Name)
	}

	scope := parsing.Scope{
		Year:     &fc.Info.Year,
		Reporter: fc.Info.Reporter,
		FileID:   fc.Record.FileID,
		FormID:   &fc.Form.ID,
	}

	for i, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return failStep(err, "Upload cancelled.")
		}
		if !strategy.ShouldProcess(sheet.Name, i, fc.Form) {
			p.logger.Debug("Sheet skipped by form requisites",
				zap.String("filename", fc.Filename),
				zap.String("sheet", sheet.Name))
			continue
		}

		steps, err := strategy.BuildSteps(sheet.Name, fc.Form)
		if err != nil {
			p.logger.Error("Sheet has no step configuration",
				zap.String("filename", fc.Filename),
				zap.String("sheet", sheet.Name),
				zap.Error(err))
			continue
		}

		sc := parsing.NewSheetContext(sheet.Name, i, sheet.Grid, fc.Form, scope)
		if err := parsing.RunSteps(sc, steps, p.logger); err != nil {
			// The sheet contributes nothing; the file goes on.
			p.logger.Error("Sheet parsing failed",
				zap.String("filename", fc.Filename),
				zap.String("sheet", sheet.Name),
				zap.Error(err))
			continue
		}

		fc.Records = append(fc.Records, sc.Records...)
		fc.Record.Sheets = append(fc.Record.Sheets, sheet.Name)
		var headers []string
		if sc.Headers != nil {
			headers = sc.Headers.Horizontal
		}
		fc.SheetModels = append(fc.SheetModels, models.SheetModel{
			Name:    sheet.Name,
			Headers: headers,
			Rows:    rowCount(sc),
			Records: len(sc.Records),
		})
	}
	return nil
}

func rowCount(sc *parsing.SheetContext) int {
	if sc.Headers == nil {
		return 0
	}
	return len(sc.Headers.Vertical)
}

func (p *uploadPipeline) enrichRecords(_ context.Context, fc *FileContext) error {
	for i := range fc.Records {
		fc.Records[i].FileID = fc.Record.FileID
		fc.Records[i].FormID = &fc.Form.ID
	}
	return nil
}

func (p *uploadPipeline) persist(ctx context.Context, fc *FileContext) error {
	if err := p.coordinator.ProcessAndSaveAll(ctx, fc.Record, fc.Records); err != nil {
		return failStep(err, "Could not persist records of '%s'.", fc.Filename)
	}
	return nil
}
