package models

import (
	"time"

	"github.com/google/uuid"
)

// FileStatus tracks the lifecycle of an ingested workbook.
type FileStatus string

const (
	FileStatusProcessing FileStatus = "PROCESSING"
	FileStatusSuccess    FileStatus = "SUCCESS"
	FileStatusFailed     FileStatus = "FAILED"
	FileStatusDuplicate  FileStatus = "DUPLICATE"
)

// FileRecord is the per-workbook ingestion document. Filename is unique
// across all files: a FAILED stub occupies the name until it is deleted.
// Only DUPLICATE rows are exempt, they journal rejected re-uploads of a
// name someone else owns.
type FileRecord struct {
	FileID     uuid.UUID  `json:"file_id"`
	Filename   string     `json:"filename"`
	FormID     *uuid.UUID `json:"form_id,omitempty"`
	Year       *int       `json:"year,omitempty"`
	Reporter   string     `json:"reporter,omitempty"` // Always uppercase
	Status     FileStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	Sheets     []string   `json:"sheets"` // Sheet names actually ingested, workbook order
	Size       int64      `json:"size"`   // Count of long records produced
	UploadedAt time.Time  `json:"uploaded_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// FileInfo is the metadata extracted from an upload's filename.
type FileInfo struct {
	Reporter  string
	Year      int
	Extension string // lowercase, without the dot
}
