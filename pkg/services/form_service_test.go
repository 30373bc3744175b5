package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/models"
)

func TestFormService_CreateDetectsType(t *testing.T) {
	svc := NewFormService(newFakeFormRepo())

	cases := []struct {
		name string
		want models.FormType
	}{
		{"5FK quarterly", models.FormTypeAuto},
		{"1fk annual", models.FormTypeManual},
		{"fk report", models.FormTypeManual},
		{"2fk report", models.FormTypeUnknown},
	}
	for _, tc := range cases {
		form, err := svc.Create(context.Background(), tc.name, models.Requisites{})
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, form.Type, tc.name)
		assert.NotEqual(t, uuid.Nil, form.ID)
		assert.False(t, form.CreatedAt.IsZero())
	}
}

func TestFormService_CreateValidation(t *testing.T) {
	svc := NewFormService(newFakeFormRepo())

	var ve *ValidationError
	_, err := svc.Create(context.Background(), "   ", models.Requisites{})
	require.ErrorAs(t, err, &ve)

	_, err = svc.Create(context.Background(), "1fk", models.Requisites{SkipSheets: []int{0, -1}})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "-1")
}

func TestFormService_GetAndList(t *testing.T) {
	forms := newFakeFormRepo()
	svc := NewFormService(forms)

	created, err := svc.Create(context.Background(), "5fk energy",
		models.Requisites{SkipSheets: []int{0}, ReferenceKeywords: []string{"справочно:"}})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, models.FormTypeAuto, got.Type)
	assert.Equal(t, []int{0}, got.Requisites.SkipSheets)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.FormTypeAuto, list[0].Type)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFormService_Update(t *testing.T) {
	svc := NewFormService(newFakeFormRepo())

	created, err := svc.Create(context.Background(), "1fk annual", models.Requisites{})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, "5fk annual",
		models.Requisites{DeduplicateColumns: true})
	require.NoError(t, err)
	assert.Equal(t, "5fk annual", updated.Name)
	// Renaming re-derives the type.
	assert.Equal(t, models.FormTypeAuto, updated.Type)
	assert.True(t, updated.Requisites.DeduplicateColumns)

	_, err = svc.Update(context.Background(), uuid.New(), "1fk", models.Requisites{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	var ve *ValidationError
	_, err = svc.Update(context.Background(), created.ID, "", models.Requisites{})
	assert.ErrorAs(t, err, &ve)
}

func TestFormService_Delete(t *testing.T) {
	svc := NewFormService(newFakeFormRepo())

	created, err := svc.Create(context.Background(), "1fk annual", models.Requisites{})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	_, err = svc.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(context.Background(), created.ID), apperrors.ErrNotFound)
}
