package models

import "github.com/google/uuid"

// LongRecord is one non-empty cell in long form: the dimension tuple
// (year, reporter, section, row, column) plus the value and provenance.
// Value is never empty, never NaN, never the service-empty sentinel.
type LongRecord struct {
	Year     *int       `json:"year,omitempty"`
	Reporter string     `json:"reporter,omitempty"` // Always uppercase
	Section  string     `json:"section"`            // Sheet name
	Row      string     `json:"row"`                // Vertical header
	Column   string     `json:"column"`             // Horizontal header path, " | " joined
	Value    Cell       `json:"value"`
	FileID   uuid.UUID  `json:"file_id"`
	FormID   *uuid.UUID `json:"form_id,omitempty"`
}
