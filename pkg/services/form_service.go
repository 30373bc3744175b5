package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/statforms/statforms-engine/pkg/models"
	"github.com/statforms/statforms-engine/pkg/repositories"
)

// FormService manages the form template catalog.
type FormService interface {
	Create(ctx context.Context, name string, requisites models.Requisites) (*models.Form, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Form, error)
	List(ctx context.Context) ([]*models.Form, error)
	Update(ctx context.Context, id uuid.UUID, name string, requisites models.Requisites) (*models.Form, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type formService struct {
	forms repositories.FormRepository
}

// NewFormService creates the form template service.
func NewFormService(forms repositories.FormRepository) FormService {
	return &formService{forms: forms}
}

func validateRequisites(requisites models.Requisites) error {
	for _, idx := range requisites.SkipSheets {
		if idx < 0 {
			return &ValidationError{Message: fmt.Sprintf("skip_sheets index %d is negative", idx)}
		}
	}
	return nil
}

func (s *formService) Create(ctx context.Context, name string, requisites models.Requisites) (*models.Form, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Message: "form name is required"}
	}
	if err := validateRequisites(requisites); err != nil {
		return nil, err
	}

	form := &models.Form{
		ID:         uuid.New(),
		Name:       name,
		Type:       models.DetectFormType(name),
		Requisites: requisites,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.forms.Create(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

func (s *formService) Get(ctx context.Context, id uuid.UUID) (*models.Form, error) {
	form, err := s.forms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	form.Type = models.DetectFormType(form.Name)
	return form, nil
}

func (s *formService) List(ctx context.Context) ([]*models.Form, error) {
	forms, err := s.forms.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, form := range forms {
		form.Type = models.DetectFormType(form.Name)
	}
	return forms, nil
}

func (s *formService) Update(ctx context.Context, id uuid.UUID, name string, requisites models.Requisites) (*models.Form, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Message: "form name is required"}
	}
	if err := validateRequisites(requisites); err != nil {
		return nil, err
	}

	form, err := s.forms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	form.Name = name
	form.Type = models.DetectFormType(name)
	form.Requisites = requisites

	if err := s.forms.Update(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

func (s *formService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.forms.Delete(ctx, id)
}
