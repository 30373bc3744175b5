package services

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/models"
	"github.com/statforms/statforms-engine/pkg/parsing"
)

type uploadTestEnv struct {
	files   *fakeFileRepo
	records *fakeRecordRepo
	forms   *fakeFormRepo
	service UploadService
	formID  uuid.UUID
}

func newUploadTestEnv(t *testing.T, formName string) *uploadTestEnv {
	t.Helper()

	files := newFakeFileRepo()
	records := &fakeRecordRepo{}
	forms := newFakeFormRepo()

	form := &models.Form{
		ID:        uuid.New(),
		Name:      formName,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, forms.Create(context.Background(), form))

	normalizer, err := parsing.NewNormalizer(filepath.Join(t.TempDir(), "map.yaml"), nil)
	require.NoError(t, err)

	coordinator := &persistenceCoordinator{
		files:     files,
		records:   records,
		chunkSize: 100,
		backoff:   fastBackoff,
		logger:    zap.NewNop(),
	}

	return &uploadTestEnv{
		files:   files,
		records: records,
		forms:   forms,
		service: NewUploadService(files, forms, coordinator, normalizer, 1<<20, 2, zap.NewNop()),
		formID:  form.ID,
	}
}

// manualWorkbook builds an xlsx with one sheet laid out like the manual
// Section0 template: title row, headers on rows 1..3, column numbers on
// row 4, data from row 5.
func manualWorkbook(t *testing.T, sheetName string) []byte {
	t.Helper()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", sheetName))

	rows := [][]any{
		{"1FK annual report"},
		{"Indicator", "Plan", "Fact"},
		{"", "total", "total"},
		{"", "", ""},
		{"1", "2", "3"},
		{"Output", 10, 30},
		{"Costs", "", 31},
	}
	for i, row := range rows {
		for j, v := range row {
			if v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheetName, cell, v))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestUpload_Success(t *testing.T) {
	env := newUploadTestEnv(t, "1FK annual")
	content := manualWorkbook(t, "Section0")

	summary, err := env.service.Upload(context.Background(),
		[]UploadFile{{Filename: "alfa 2023.xlsx", Reader: bytes.NewReader(content)}},
		env.formID.String(), nil)
	require.NoError(t, err)

	assert.Equal(t, "1 files processed successfully, 0 failed.", summary.Message)
	require.Len(t, summary.Details, 1)
	assert.Equal(t, "success", summary.Details[0].Status)

	record := env.files.byFilename("alfa 2023.xlsx")
	require.NotNil(t, record)
	assert.Equal(t, models.FileStatusSuccess, record.Status)
	assert.Equal(t, []string{"Section0"}, record.Sheets)
	require.NotNil(t, record.Year)
	assert.Equal(t, 2023, *record.Year)
	assert.Equal(t, "ALFA", record.Reporter)

	require.NotEmpty(t, env.records.stored)
	for _, rec := range env.records.stored {
		assert.Equal(t, record.FileID, rec.FileID)
		assert.Equal(t, "ALFA", rec.Reporter)
		assert.Equal(t, "Section0", rec.Section)
	}
}

func TestUpload_InvalidFilename(t *testing.T) {
	env := newUploadTestEnv(t, "1FK annual")

	summary, err := env.service.Upload(context.Background(),
		[]UploadFile{{Filename: "no-year.xlsx", Reader: bytes.NewReader([]byte("data"))}},
		env.formID.String(), nil)
	require.NoError(t, err)

	require.Len(t, summary.Details, 1)
	assert.Equal(t, "failed", summary.Details[0].Status)
	assert.Contains(t, summary.Details[0].Error, "Invalid filename")

	// A FAILED stub is left behind so the attempt stays visible.
	stub := env.files.byFilename("no-year.xlsx")
	require.NotNil(t, stub)
	assert.Equal(t, models.FileStatusFailed, stub.Status)
}

func TestUpload_EmptyFile(t *testing.T) {
	env := newUploadTestEnv(t, "1FK annual")

	summary, err := env.service.Upload(context.Background(),
		[]UploadFile{{Filename: "alfa 2023.xlsx", Reader: bytes.NewReader(nil)}},
		env.formID.String(), nil)
	require.NoError(t, err)

	require.Len(t, summary.Details, 1)
	assert.Equal(t, "failed", summary.Details[0].Status)
	assert.Contains(t, summary.Details[0].Error, "is empty")
}

func TestUpload_DuplicateFilename(t *testing.T) {
	env := newUploadTestEnv(t, "1FK annual")
	content := manualWorkbook(t, "Section0")

	_, err := env.service.Upload(context.Background(),
		[]UploadFile{{Filename: "alfa 2023.xlsx", Reader: bytes.NewReader(content)}},
		env.formID.String(), nil)
	require.NoError(t, err)

	summary, err := env.service.Upload(context.Background(),
		[]UploadFile{{Filename: "alfa 2023.xlsx", Reader: bytes.NewReader(content)}},
		env.formID.String(), nil)
	require.NoError(t, err)

	require.Len(t, summary.Details, 1)
	assert.Equal(t, "failed", summary.Details[0].Status)
	assert.Contains(t, summary.Details[0].Error, "already uploaded")

	// The rejected attempt is journaled as DUPLICATE; the original SUCCESS
	// record is untouched and keeps the filename.
	records := env.files.allByFilename("alfa 2023.xlsx")
	require.Len(t, records, 2)
	statuses := map[models.FileStatus]int{}
	for _, r := range records {
		statuses[r.Status]++
	}
	assert.Equal(t, 1, statuses[models.FileStatusSuccess])
	assert.Equal(t, 1, statuses[models.FileStatusDuplicate])
	for _, r := range records {
		if r.Status == models.FileStatusDuplicate {
			assert.Contains(t, r.Error, "already uploaded")
		}
	}
}

func TestUpload_NotAWorkbook(t *testing.T) {
	env := newUploadTestEnv(t, "1FK annual")

	summary, err := env.service.Upload(context.Background(),
		[]UploadFile{{Filename: "alfa 2023.xlsx", Reader: bytes.NewReader([]byte("<html>error</html>"))}},
		env.formID.String(), nil)
	require.NoError(t, err)

	require.Len(t, summary.Details, 1)
	assert.Equal(t, "failed", summary.Details[0].Status)
	assert.Contains(t, summary.Details[0].Error, "not a valid")

	// The record was created before parsing, so it is rolled back to FAILED.
	record := env.files.byFilename("alfa 2023.xlsx")
	require.NotNil(t, record)
	assert.Equal(t, models.FileStatusFailed, record.Status)
	assert.Empty(t, env.records.stored)
}

func TestUpload_UnknownSheetContributesNothing(t *testing.T) {
	env := newUploadTestEnv(t, "1FK annual")
	content := manualWorkbook(t, "Mystery")

	summary, err := env.service.Upload(context.Background(),
		[]UploadFile{{Filename: "alfa 2023.xlsx", Reader: bytes.NewReader(content)}},
		env.formID.String(), nil)
	require.NoError(t, err)

	// Sheet-level failures do not fail the file.
	require.Len(t, summary.Details, 1)
	assert.Equal(t, "success", summary.Details[0].Status)
	assert.Empty(t, env.records.stored)

	record := env.files.byFilename("alfa 2023.xlsx")
	require.NotNil(t, record)
	assert.Empty(t, record.Sheets)
}

func TestUpload_SkipSheetsOverride(t *testing.T) {
	env := newUploadTestEnv(t, "1FK annual")
	content := manualWorkbook(t, "Section0")

	summary, err := env.service.Upload(context.Background(),
		[]UploadFile{{Filename: "alfa 2023.xlsx", Reader: bytes.NewReader(content)}},
		env.formID.String(), &UploadOverrides{SkipSheets: []int{0}})
	require.NoError(t, err)

	require.Len(t, summary.Details, 1)
	assert.Equal(t, "success", summary.Details[0].Status)
	assert.Empty(t, env.records.stored)
}

func TestUpload_CancelledMidPersistRollsBack(t *testing.T) {
	env := newUploadTestEnv(t, "1FK annual")
	content := manualWorkbook(t, "Section0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.records.bulkHook = func(int) { cancel() }

	summary, err := env.service.Upload(ctx,
		[]UploadFile{{Filename: "alfa 2023.xlsx", Reader: bytes.NewReader(content)}},
		env.formID.String(), nil)
	require.NoError(t, err)

	require.Len(t, summary.Details, 1)
	assert.Equal(t, "failed", summary.Details[0].Status)

	// Compensation still runs against the cancelled request: the record
	// ends FAILED with an error and no long records survive.
	record := env.files.byFilename("alfa 2023.xlsx")
	require.NotNil(t, record)
	assert.Equal(t, models.FileStatusFailed, record.Status)
	assert.NotEmpty(t, record.Error)
	assert.Empty(t, env.records.stored)
}

func TestUpload_MixedBatch(t *testing.T) {
	env := newUploadTestEnv(t, "1FK annual")
	content := manualWorkbook(t, "Section0")

	summary, err := env.service.Upload(context.Background(),
		[]UploadFile{
			{Filename: "alfa 2023.xlsx", Reader: bytes.NewReader(content)},
			{Filename: "bad name.xlsx", Reader: bytes.NewReader([]byte("data"))},
		},
		env.formID.String(), nil)
	require.NoError(t, err)

	assert.Equal(t, "1 files processed successfully, 1 failed.", summary.Message)
	require.Len(t, summary.Details, 2)
	assert.Equal(t, "success", summary.Details[0].Status)
	assert.Equal(t, "failed", summary.Details[1].Status)
}

func TestUpload_RequestValidation(t *testing.T) {
	env := newUploadTestEnv(t, "1FK annual")
	file := UploadFile{Filename: "alfa 2023.xlsx", Reader: bytes.NewReader([]byte("x"))}

	var ve *ValidationError

	_, err := env.service.Upload(context.Background(), []UploadFile{file}, "", nil)
	require.ErrorAs(t, err, &ve)

	_, err = env.service.Upload(context.Background(), nil, env.formID.String(), nil)
	require.ErrorAs(t, err, &ve)

	_, err = env.service.Upload(context.Background(), []UploadFile{file}, "not-a-uuid", nil)
	require.ErrorAs(t, err, &ve)

	_, err = env.service.Upload(context.Background(), []UploadFile{file}, uuid.NewString(), nil)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
