package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/database"
	"github.com/statforms/statforms-engine/pkg/models"
)

// FormRepository is the data access layer for form templates.
type FormRepository interface {
	Create(ctx context.Context, form *models.Form) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Form, error)
	List(ctx context.Context) ([]*models.Form, error)
	Update(ctx context.Context, form *models.Form) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type formRepository struct {
	db *database.DB
}

// NewFormRepository creates a PostgreSQL-backed form repository.
func NewFormRepository(db *database.DB) FormRepository {
	return &formRepository{db: db}
}

func (r *formRepository) Create(ctx context.Context, form *models.Form) error {
	requisites, err := json.Marshal(form.Requisites)
	if err != nil {
		return fmt.Errorf("marshal requisites: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO engine_forms (id, name, form_type, requisites, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		form.ID, form.Name, form.Type, requisites, form.CreatedAt)
	if err != nil {
		return fmt.Errorf("create form: %w", err)
	}
	return nil
}

func (r *formRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Form, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, form_type, requisites, created_at
		FROM engine_forms WHERE id = $1`, id)

	form, err := scanForm(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: form %s", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get form: %w", err)
	}
	return form, nil
}

func (r *formRepository) List(ctx context.Context) ([]*models.Form, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, form_type, requisites, created_at
		FROM engine_forms ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	defer rows.Close()

	var forms []*models.Form
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan form: %w", err)
		}
		forms = append(forms, form)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	return forms, nil
}

func (r *formRepository) Update(ctx context.Context, form *models.Form) error {
	requisites, err := json.Marshal(form.Requisites)
	if err != nil {
		return fmt.Errorf("marshal requisites: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE engine_forms SET name = $2, form_type = $3, requisites = $4
		WHERE id = $1`,
		form.ID, form.Name, form.Type, requisites)
	if err != nil {
		return fmt.Errorf("update form: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: form %s", apperrors.ErrNotFound, form.ID)
	}
	return nil
}

func (r *formRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM engine_forms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: form %s", apperrors.ErrNotFound, id)
	}
	return nil
}

func scanForm(row pgx.Row) (*models.Form, error) {
	var form models.Form
	var requisites []byte
	if err := row.Scan(&form.ID, &form.Name, &form.Type, &requisites, &form.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(requisites, &form.Requisites); err != nil {
		return nil, fmt.Errorf("unmarshal requisites: %w", err)
	}
	return &form, nil
}
