package parsing

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/models"
)

// Strategy decides which sheets of a form are ingested and how.
type Strategy interface {
	// ShouldProcess reports whether the sheet at the given workbook index is
	// to be parsed at all.
	ShouldProcess(sheetName string, sheetIndex int, form *models.Form) bool

	// BuildSteps composes the ordered step list for one sheet.
	BuildSteps(sheetName string, form *models.Form) ([]Step, error)
}

// ForForm resolves the strategy for a form's detected type.
func ForForm(form *models.Form, norm *Normalizer) (Strategy, error) {
	switch models.DetectFormType(form.Name) {
	case models.FormTypeManual:
		return NewManualStrategy(norm), nil
	case models.FormTypeAuto:
		return NewAutoStrategy(norm), nil
	default:
		return nil, fmt.Errorf("form %q has no parsing strategy", form.Name)
	}
}

// skipIndexed is the shared skip_sheets requisite handling.
func skipIndexed(sheetIndex int, form *models.Form) bool {
	for _, idx := range form.Requisites.SkipSheets {
		if idx == sheetIndex {
			return true
		}
	}
	return false
}

// manualSheetLayout is one row of the manual strategy's static sheet table.
type manualSheetLayout struct {
	HeaderStartRow       int  `yaml:"header_start_row"`
	HeaderEndRow         int  `yaml:"header_end_row"`
	DataStartRow         int  `yaml:"data_start_row"`
	VerticalHeaderColumn int  `yaml:"vertical_header_column"`
	ApplyRounding        bool `yaml:"apply_rounding"`
	RoundDigits          int  `yaml:"round_digits"`
}

// The per-sheet layouts of the manual FK form are fixed by the published
// template, so they live here rather than in the form requisites.
//
//go:embed manual_sheets.yaml
var manualSheetsYAML []byte

var manualSheets = mustLoadManualSheets()

func mustLoadManualSheets() map[string]manualSheetLayout {
	table := make(map[string]manualSheetLayout)
	if err := yaml.Unmarshal(manualSheetsYAML, &table); err != nil {
		panic(fmt.Sprintf("manual_sheets.yaml is invalid: %v", err))
	}
	return table
}

// ManualStrategy parses forms whose sheet layouts are known in advance. An
// unknown sheet name is a configuration error, never a silent fallback.
type ManualStrategy struct {
	norm *Normalizer
}

func NewManualStrategy(norm *Normalizer) *ManualStrategy {
	return &ManualStrategy{norm: norm}
}

func (s *ManualStrategy) ShouldProcess(_ string, sheetIndex int, form *models.Form) bool {
	return !skipIndexed(sheetIndex, form)
}

func (s *ManualStrategy) BuildSteps(sheetName string, form *models.Form) ([]Step, error) {
	layout, ok := manualSheets[sheetName]
	if !ok {
		return nil, Critical("UNKNOWN_SHEET",
			fmt.Errorf("%w: %q", apperrors.ErrUnknownSheet, sheetName))
	}

	steps := []Step{
		DetectStructureStep(FixedDetector{Structure: models.TableStructure{
			HeaderStartRow:       layout.HeaderStartRow,
			HeaderEndRow:         layout.HeaderEndRow,
			DataStartRow:         layout.DataStartRow,
			VerticalHeaderColumn: layout.VerticalHeaderColumn,
		}}),
	}
	if layout.ApplyRounding {
		steps = append(steps, ApplyRoundingStep(layout.RoundDigits))
	}
	steps = append(steps,
		ExpandNotesStep(form.Requisites.ReferenceKeywords),
		ParseHeadersStep(s.norm),
		ExtractDataStep(false),
		BuildRecordsStep(true),
	)
	return steps, nil
}

// AutoStrategy parses every sheet the same way, autodetecting the structure.
type AutoStrategy struct {
	norm *Normalizer
}

func NewAutoStrategy(norm *Normalizer) *AutoStrategy {
	return &AutoStrategy{norm: norm}
}

func (s *AutoStrategy) ShouldProcess(_ string, sheetIndex int, form *models.Form) bool {
	return !skipIndexed(sheetIndex, form)
}

func (s *AutoStrategy) BuildSteps(_ string, form *models.Form) ([]Step, error) {
	return []Step{
		DetectStructureStep(AutoDetector{}),
		ParseHeadersStep(s.norm),
		ExtractDataStep(form.Requisites.DeduplicateColumns),
		BuildRecordsStep(true),
	}, nil
}
