package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/statforms/statforms-engine/pkg/models"
	"github.com/statforms/statforms-engine/pkg/services"
)

// Service stubs with per-test function hooks. A nil hook makes the call
// panic, which surfaces routing mistakes immediately.

type stubUploadService struct {
	uploadFn func(ctx context.Context, files []services.UploadFile, formID string, overrides *services.UploadOverrides) (*services.UploadSummary, error)
}

func (s *stubUploadService) Upload(ctx context.Context, files []services.UploadFile, formID string, overrides *services.UploadOverrides) (*services.UploadSummary, error) {
	return s.uploadFn(ctx, files, formID, overrides)
}

type stubQueryService struct {
	filterValuesFn func(ctx context.Context, dimension string, filters []services.AppliedFilter, pattern string, formID *uuid.UUID) ([]any, error)
	filteredDataFn func(ctx context.Context, filters []services.AppliedFilter, limit, offset int, formID *uuid.UUID) (*services.DataPage, error)
}

func (s *stubQueryService) FilterValues(ctx context.Context, dimension string, filters []services.AppliedFilter, pattern string, formID *uuid.UUID) ([]any, error) {
	return s.filterValuesFn(ctx, dimension, filters, pattern, formID)
}

func (s *stubQueryService) FilteredData(ctx context.Context, filters []services.AppliedFilter, limit, offset int, formID *uuid.UUID) (*services.DataPage, error) {
	return s.filteredDataFn(ctx, filters, limit, offset, formID)
}

type stubFileService struct {
	listFn   func(ctx context.Context, limit, offset int, year *int) (*services.FilePage, error)
	deleteFn func(ctx context.Context, fileID uuid.UUID) error
}

func (s *stubFileService) List(ctx context.Context, limit, offset int, year *int) (*services.FilePage, error) {
	return s.listFn(ctx, limit, offset, year)
}

func (s *stubFileService) Delete(ctx context.Context, fileID uuid.UUID) error {
	return s.deleteFn(ctx, fileID)
}

type stubFormService struct {
	createFn func(ctx context.Context, name string, requisites models.Requisites) (*models.Form, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*models.Form, error)
	listFn   func(ctx context.Context) ([]*models.Form, error)
	updateFn func(ctx context.Context, id uuid.UUID, name string, requisites models.Requisites) (*models.Form, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (s *stubFormService) Create(ctx context.Context, name string, requisites models.Requisites) (*models.Form, error) {
	return s.createFn(ctx, name, requisites)
}

func (s *stubFormService) Get(ctx context.Context, id uuid.UUID) (*models.Form, error) {
	return s.getFn(ctx, id)
}

func (s *stubFormService) List(ctx context.Context) ([]*models.Form, error) {
	return s.listFn(ctx)
}

func (s *stubFormService) Update(ctx context.Context, id uuid.UUID, name string, requisites models.Requisites) (*models.Form, error) {
	return s.updateFn(ctx, id, name, requisites)
}

func (s *stubFormService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}
