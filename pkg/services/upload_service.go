package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statforms/statforms-engine/pkg/models"
	"github.com/statforms/statforms-engine/pkg/parsing"
	"github.com/statforms/statforms-engine/pkg/repositories"
)

// UploadOverrides are per-batch requisite overrides accepted alongside the
// files.
type UploadOverrides struct {
	SkipSheets        []int
	ReferenceKeywords []string
}

// UploadSummary is the batch response: one message plus per-file details.
type UploadSummary struct {
	Message string       `json:"message"`
	Details []FileResult `json:"details"`
}

// UploadService ingests batches of workbook files against one form template.
type UploadService interface {
	// Upload validates the batch, loads the form once, and runs the file
	// pipeline for every file independently: one file's failure never
	// affects the others.
	Upload(ctx context.Context, files []UploadFile, formID string, overrides *UploadOverrides) (*UploadSummary, error)
}

type uploadService struct {
	forms    repositories.FormRepository
	pipeline *uploadPipeline
	workers  int
	logger   *zap.Logger
}

// NewUploadService wires the upload orchestrator. workers bounds how many
// files of one batch run at once; 1 keeps processing strictly sequential.
func NewUploadService(
	files repositories.FileRepository,
	forms repositories.FormRepository,
	coordinator PersistenceCoordinator,
	normalizer *parsing.Normalizer,
	maxFileBytes int64,
	workers int,
	logger *zap.Logger,
) UploadService {
	if workers < 1 {
		workers = 1
	}
	return &uploadService{
		forms: forms,
		pipeline: &uploadPipeline{
			files:        files,
			coordinator:  coordinator,
			normalizer:   normalizer,
			maxFileBytes: maxFileBytes,
			logger:       logger,
		},
		workers: workers,
		logger:  logger,
	}
}

func (s *uploadService) Upload(ctx context.Context, files []UploadFile, formID string, overrides *UploadOverrides) (*UploadSummary, error) {
	formID = strings.TrimSpace(formID)
	if formID == "" {
		return nil, &ValidationError{Message: "form_id is required"}
	}
	if len(files) == 0 {
		return nil, &ValidationError{Message: "no files provided"}
	}
	id, err := uuid.Parse(formID)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("form_id %q is not a valid id", formID)}
	}

	// The form is loaded exactly once per batch.
	form, err := s.forms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	form.Type = models.DetectFormType(form.Name)
	applyOverrides(form, overrides)

	results := make([]FileResult, len(files))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i := range files {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fc := &FileContext{Upload: files[i], Form: form}
			results[i] = s.pipeline.Run(ctx, fc)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Status == "success" {
			succeeded++
		}
	}

	return &UploadSummary{
		Message: fmt.Sprintf("%d files processed successfully, %d failed.", succeeded, len(files)-succeeded),
		Details: results,
	}, nil
}

// applyOverrides merges batch-level requisites into the loaded form copy.
// The stored template is left untouched.
func applyOverrides(form *models.Form, overrides *UploadOverrides) {
	if overrides == nil {
		return
	}
	if len(overrides.SkipSheets) > 0 {
		form.Requisites.SkipSheets = overrides.SkipSheets
	}
	if len(overrides.ReferenceKeywords) > 0 {
		form.Requisites.ReferenceKeywords = append(
			form.Requisites.ReferenceKeywords, overrides.ReferenceKeywords...)
	}
}

// ValidationError is a client-fault request error, surfaced as 4xx.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
