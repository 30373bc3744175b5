package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FormType distinguishes how a form template's sheets are parsed.
type FormType string

const (
	FormTypeManual  FormType = "MANUAL"
	FormTypeAuto    FormType = "AUTO"
	FormTypeUnknown FormType = "UNKNOWN"
)

// Requisites are the recognized per-form parsing options.
type Requisites struct {
	// SkipSheets lists zero-based sheet indices to bypass unconditionally.
	SkipSheets []int `json:"skip_sheets,omitempty"`
	// DeduplicateColumns collapses duplicate column names in the auto
	// strategy's extraction, keeping the first occurrence.
	DeduplicateColumns bool `json:"deduplicate_columns,omitempty"`
	// ReferenceKeywords extends the notes extractor's recognition set.
	ReferenceKeywords []string `json:"reference_keywords,omitempty"`
}

// Form is a declared workbook template.
type Form struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Type       FormType   `json:"type"` // Derived from Name, never stored independently by callers
	Requisites Requisites `json:"requisites"`
	CreatedAt  time.Time  `json:"created_at"`
}

// DetectFormType derives the form type from the template name. The rules are
// keyed on the FK form family markers, case-insensitive:
// "5fk" is autodetected, "1fk" is manual, a bare "fk" not preceded by one of
// the digits 2,3,4,6,7,8,9 is manual, anything else is unknown.
func DetectFormType(name string) FormType {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "5fk") {
		return FormTypeAuto
	}
	if strings.Contains(lower, "1fk") {
		return FormTypeManual
	}
	for i := 0; ; {
		idx := strings.Index(lower[i:], "fk")
		if idx < 0 {
			break
		}
		pos := i + idx
		if pos == 0 || !strings.ContainsRune("2346789", rune(lower[pos-1])) {
			return FormTypeManual
		}
		i = pos + 2
		if i >= len(lower) {
			break
		}
	}
	return FormTypeUnknown
}
