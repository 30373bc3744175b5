package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/services"
)

func uploadMux(uploads services.UploadService) *http.ServeMux {
	mux := http.NewServeMux()
	NewUploadHandler(uploads, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

type multipartSpec struct {
	formID            string
	files             map[string][]byte
	skipSheets        []string
	referenceKeywords []string
}

func multipartBody(t *testing.T, spec multipartSpec) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if spec.formID != "" {
		require.NoError(t, writer.WriteField("form_id", spec.formID))
	}
	for _, v := range spec.skipSheets {
		require.NoError(t, writer.WriteField("skip_sheets", v))
	}
	for _, v := range spec.referenceKeywords {
		require.NoError(t, writer.WriteField("reference_keywords", v))
	}
	for name, content := range spec.files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func postMultipart(t *testing.T, mux *http.ServeMux, spec multipartSpec) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, spec)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestUpload(t *testing.T) {
	var gotFormID string
	var gotFiles map[string][]byte
	var gotOverrides *services.UploadOverrides

	mux := uploadMux(&stubUploadService{
		uploadFn: func(_ context.Context, files []services.UploadFile, formID string, overrides *services.UploadOverrides) (*services.UploadSummary, error) {
			gotFormID, gotOverrides = formID, overrides
			gotFiles = make(map[string][]byte)
			for _, f := range files {
				content, err := io.ReadAll(f.Reader)
				require.NoError(t, err)
				gotFiles[f.Filename] = content
			}
			return &services.UploadSummary{
				Message: "2 files processed successfully, 0 failed.",
				Details: []services.FileResult{
					{Filename: "alfa 2023.xlsx", Status: "success"},
					{Filename: "beta 2023.xlsx", Status: "success"},
				},
			}, nil
		},
	})

	rec := postMultipart(t, mux, multipartSpec{
		formID: "6f1e0f9e-0000-0000-0000-000000000001",
		files: map[string][]byte{
			"alfa 2023.xlsx": []byte("alfa-bytes"),
			"beta 2023.xlsx": []byte("beta-bytes"),
		},
		skipSheets:        []string{"0", "2"},
		referenceKeywords: []string{"справочно:"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "6f1e0f9e-0000-0000-0000-000000000001", gotFormID)
	assert.Equal(t, []byte("alfa-bytes"), gotFiles["alfa 2023.xlsx"])
	assert.Equal(t, []byte("beta-bytes"), gotFiles["beta 2023.xlsx"])
	require.NotNil(t, gotOverrides)
	assert.Equal(t, []int{0, 2}, gotOverrides.SkipSheets)
	assert.Equal(t, []string{"справочно:"}, gotOverrides.ReferenceKeywords)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "2 files processed successfully, 0 failed.", body["message"])
	assert.Len(t, body["details"], 2)
}

func TestUpload_NoOverridesIsNil(t *testing.T) {
	sentinel := &services.UploadOverrides{SkipSheets: []int{99}}
	gotOverrides := sentinel
	mux := uploadMux(&stubUploadService{
		uploadFn: func(_ context.Context, _ []services.UploadFile, _ string, overrides *services.UploadOverrides) (*services.UploadSummary, error) {
			gotOverrides = overrides
			return &services.UploadSummary{}, nil
		},
	})

	rec := postMultipart(t, mux, multipartSpec{
		formID: "6f1e0f9e-0000-0000-0000-000000000001",
		files:  map[string][]byte{"alfa 2023.xlsx": []byte("x")},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, gotOverrides)
}

func TestUpload_BadSkipSheets(t *testing.T) {
	mux := uploadMux(&stubUploadService{})

	for _, bad := range []string{"abc", "-1", "1.5"} {
		rec := postMultipart(t, mux, multipartSpec{
			formID:     "6f1e0f9e-0000-0000-0000-000000000001",
			files:      map[string][]byte{"alfa 2023.xlsx": []byte("x")},
			skipSheets: []string{bad},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
		assert.Contains(t, rec.Body.String(), "skip_sheets")
	}
}

func TestUpload_ValidationFailures(t *testing.T) {
	mux := uploadMux(&stubUploadService{
		uploadFn: func(_ context.Context, files []services.UploadFile, formID string, _ *services.UploadOverrides) (*services.UploadSummary, error) {
			if formID == "" {
				return nil, &services.ValidationError{Message: "form_id is required"}
			}
			if len(files) == 0 {
				return nil, &services.ValidationError{Message: "no files provided"}
			}
			return nil, fmt.Errorf("%w: form %s", apperrors.ErrNotFound, formID)
		},
	})

	rec := postMultipart(t, mux, multipartSpec{
		files: map[string][]byte{"alfa 2023.xlsx": []byte("x")},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "form_id is required")

	rec = postMultipart(t, mux, multipartSpec{formID: "6f1e0f9e-0000-0000-0000-000000000001"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no files")

	rec = postMultipart(t, mux, multipartSpec{
		formID: "unknown",
		files:  map[string][]byte{"alfa 2023.xlsx": []byte("x")},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpload_NotMultipart(t *testing.T) {
	mux := uploadMux(&stubUploadService{})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("plain body"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
