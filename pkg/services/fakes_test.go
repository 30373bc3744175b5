package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/models"
	"github.com/statforms/statforms-engine/pkg/repositories"
)

// fakeFileRepo is an in-memory FileRepository.
type fakeFileRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.FileRecord

	upsertErr error
	existsErr error
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{records: make(map[uuid.UUID]*models.FileRecord)}
}

func (r *fakeFileRepo) Upsert(ctx context.Context, record *models.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	// Filename uniqueness mirrors the partial index: DUPLICATE journal
	// rows are exempt on both sides.
	if record.Status != models.FileStatusDuplicate {
		for id, existing := range r.records {
			if existing.Filename == record.Filename && id != record.FileID &&
				existing.Status != models.FileStatusDuplicate {
				return fmt.Errorf("%w: %s", apperrors.ErrDuplicateFile, record.Filename)
			}
		}
	}
	clone := *record
	r.records[record.FileID] = &clone
	return nil
}

func (r *fakeFileRepo) GetByID(_ context.Context, fileID uuid.UUID) (*models.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[fileID]
	if !ok {
		return nil, fmt.Errorf("%w: file %s", apperrors.ErrNotFound, fileID)
	}
	clone := *record
	return &clone, nil
}

func (r *fakeFileRepo) ExistsByFilename(_ context.Context, filename string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existsErr != nil {
		return false, r.existsErr
	}
	for _, record := range r.records {
		if record.Filename == filename && record.Status != models.FileStatusDuplicate {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeFileRepo) List(_ context.Context, limit, offset int, year *int) ([]*models.FileRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*models.FileRecord
	for _, record := range r.records {
		if year != nil && (record.Year == nil || *record.Year != *year) {
			continue
		}
		clone := *record
		all = append(all, &clone)
	}
	total := int64(len(all))
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *fakeFileRepo) Delete(_ context.Context, fileID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[fileID]; !ok {
		return fmt.Errorf("%w: file %s", apperrors.ErrNotFound, fileID)
	}
	delete(r.records, fileID)
	return nil
}

func (r *fakeFileRepo) get(fileID uuid.UUID) *models.FileRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[fileID]
}

func (r *fakeFileRepo) byFilename(filename string) *models.FileRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.Filename == filename {
			return record
		}
	}
	return nil
}

func (r *fakeFileRepo) allByFilename(filename string) []*models.FileRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FileRecord
	for _, record := range r.records {
		if record.Filename == filename {
			out = append(out, record)
		}
	}
	return out
}

// fakeRecordRepo is an in-memory RecordRepository.
type fakeRecordRepo struct {
	mu      sync.Mutex
	stored  []models.LongRecord
	pages   []repositories.RecordRow
	total   int64
	distOut []any

	bulkErr      error
	bulkFailures int            // fail this many bulk calls, then succeed
	bulkHook     func(call int) // runs before each bulk insert
	insertOneErr error
	countErr     error
	countZero    bool

	bulkCalls      int
	insertOneCalls int
	lastDistinct   struct {
		field   string
		filters []repositories.FieldFilter
		pattern string
		formID  *uuid.UUID
	}
	lastFind struct {
		filters []repositories.FieldFilter
		limit   int
		offset  int
		formID  *uuid.UUID
	}
}

func (r *fakeRecordRepo) BulkInsert(ctx context.Context, records []models.LongRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bulkCalls++
	if r.bulkHook != nil {
		r.bulkHook(r.bulkCalls)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if r.bulkErr != nil {
		return 0, r.bulkErr
	}
	if r.bulkFailures > 0 {
		r.bulkFailures--
		return 0, errors.New("bulk insert unavailable")
	}
	r.stored = append(r.stored, records...)
	return int64(len(records)), nil
}

func (r *fakeRecordRepo) InsertOne(ctx context.Context, record *models.LongRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertOneCalls++
	if r.insertOneErr != nil {
		return r.insertOneErr
	}
	r.stored = append(r.stored, *record)
	return nil
}

func (r *fakeRecordRepo) CountByFileID(_ context.Context, fileID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	if r.countZero {
		return 0, nil
	}
	var count int64
	for i := range r.stored {
		if r.stored[i].FileID == fileID {
			count++
		}
	}
	return count, nil
}

func (r *fakeRecordRepo) DeleteByFileID(ctx context.Context, fileID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []models.LongRecord
	var deleted int64
	for i := range r.stored {
		if r.stored[i].FileID == fileID {
			deleted++
			continue
		}
		kept = append(kept, r.stored[i])
	}
	r.stored = kept
	return deleted, nil
}

func (r *fakeRecordRepo) Distinct(_ context.Context, field string, filters []repositories.FieldFilter, pattern string, formID *uuid.UUID) ([]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastDistinct.field = field
	r.lastDistinct.filters = filters
	r.lastDistinct.pattern = pattern
	r.lastDistinct.formID = formID
	return r.distOut, nil
}

func (r *fakeRecordRepo) FindPage(_ context.Context, filters []repositories.FieldFilter, limit, offset int, formID *uuid.UUID) ([]repositories.RecordRow, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFind.filters = filters
	r.lastFind.limit = limit
	r.lastFind.offset = offset
	r.lastFind.formID = formID
	return r.pages, r.total, nil
}

// fakeFormRepo is an in-memory FormRepository.
type fakeFormRepo struct {
	mu    sync.Mutex
	forms map[uuid.UUID]*models.Form
}

func newFakeFormRepo() *fakeFormRepo {
	return &fakeFormRepo{forms: make(map[uuid.UUID]*models.Form)}
}

func (r *fakeFormRepo) Create(_ context.Context, form *models.Form) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *form
	r.forms[form.ID] = &clone
	return nil
}

func (r *fakeFormRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	form, ok := r.forms[id]
	if !ok {
		return nil, fmt.Errorf("%w: form %s", apperrors.ErrNotFound, id)
	}
	clone := *form
	return &clone, nil
}

func (r *fakeFormRepo) List(_ context.Context) ([]*models.Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Form
	for _, form := range r.forms {
		clone := *form
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeFormRepo) Update(_ context.Context, form *models.Form) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.forms[form.ID]; !ok {
		return fmt.Errorf("%w: form %s", apperrors.ErrNotFound, form.ID)
	}
	clone := *form
	r.forms[form.ID] = &clone
	return nil
}

func (r *fakeFormRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.forms[id]; !ok {
		return fmt.Errorf("%w: form %s", apperrors.ErrNotFound, id)
	}
	delete(r.forms, id)
	return nil
}
