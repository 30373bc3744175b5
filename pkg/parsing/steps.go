package parsing

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/statforms/statforms-engine/pkg/models"
)

// Step is one stage of the per-sheet pipeline.
type Step struct {
	Name string
	Run  func(*SheetContext) error
}

// RunSteps executes the steps in order. A non-critical failure is logged and
// skipped; a critical failure abandons the sheet and is returned. Panics are
// converted to critical errors so one corrupt sheet cannot take the file down.
func RunSteps(sc *SheetContext, steps []Step, logger *zap.Logger) error {
	for _, step := range steps {
		err := runStep(step, sc)
		if err == nil {
			continue
		}
		if IsNonCritical(err) {
			sc.Warnings = append(sc.Warnings, fmt.Sprintf("%s: %v", step.Name, err))
			logger.Warn("Sheet step skipped",
				zap.String("sheet", sc.SheetName),
				zap.String("step", step.Name),
				zap.Error(err))
			continue
		}
		if !IsCritical(err) {
			err = Critical("UNEXPECTED", fmt.Errorf("unexpected error in step %s: %w", step.Name, err))
		}
		return err
	}
	return nil
}

func runStep(step Step, sc *SheetContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Critical("UNEXPECTED", fmt.Errorf("unexpected error in step %s: %v", step.Name, r))
		}
	}()
	return step.Run(sc)
}

// DetectStructureStep resolves the sheet's table structure with the given
// detector.
func DetectStructureStep(detector StructureDetector) Step {
	return Step{
		Name: "DetectStructure",
		Run: func(sc *SheetContext) error {
			s, err := detector.Detect(sc.ProcessedGrid)
			if err != nil {
				return err
			}
			sc.Structure = &s
			return nil
		},
	}
}

// ApplyRoundingStep rounds numeric data-zone cells to the given number of
// decimal places. Failures are non-critical: the unrounded grid is used.
func ApplyRoundingStep(digits int) Step {
	return Step{
		Name: "ApplyRounding",
		Run: func(sc *SheetContext) error {
			if sc.Structure == nil {
				return NonCritical(fmt.Errorf("rounding requires a detected structure"))
			}
			factor := math.Pow(10, float64(digits))
			grid := cloneGrid(sc.ProcessedGrid)
			for r := sc.Structure.DataStartRow; r < grid.Rows(); r++ {
				for c := sc.Structure.VerticalHeaderColumn + 1; c < len(grid[r]); c++ {
					cell := grid[r][c]
					if cell.IsEmpty() {
						continue
					}
					if v, ok := cell.Numeric(); ok {
						grid[r][c] = models.FloatCell(math.Round(v*factor) / factor).Coerce()
					}
				}
			}
			sc.ProcessedGrid = grid
			return nil
		},
	}
}

// ExpandNotesStep runs the reference-block expansion. Failures are
// non-critical: the unprocessed grid is used unchanged.
func ExpandNotesStep(extraKeywords []string) Step {
	return Step{
		Name: "ExpandNotes",
		Run: func(sc *SheetContext) error {
			if sc.Structure == nil {
				return NonCritical(fmt.Errorf("notes expansion requires a detected structure"))
			}
			expanded, err := ExpandNotes(sc.ProcessedGrid, sc.Structure.DataStartRow, extraKeywords)
			if err != nil {
				return NonCritical(err)
			}
			sc.ProcessedGrid = expanded
			return nil
		},
	}
}

// ParseHeadersStep reconstructs the horizontal and vertical headers.
func ParseHeadersStep(norm *Normalizer) Step {
	return Step{
		Name: "ParseHeaders",
		Run: func(sc *SheetContext) error {
			headers, err := ParseHeaders(sc.ProcessedGrid, sc.Structure, norm)
			if err != nil {
				return err
			}
			sc.Headers = headers
			return nil
		},
	}
}

// ExtractDataStep pulls the rectangular value set out of the data zone.
func ExtractDataStep(deduplicate bool) Step {
	return Step{
		Name: "ExtractData",
		Run: func(sc *SheetContext) error {
			data, err := ExtractData(sc.ProcessedGrid, sc.Structure, sc.Headers, ExtractOptions{Deduplicate: deduplicate})
			if err != nil {
				return err
			}
			sc.Extracted = data
			return nil
		},
	}
}

// BuildRecordsStep flattens extracted data into long records.
func BuildRecordsStep(skipEmpty bool) Step {
	return Step{
		Name: "BuildRecords",
		Run: func(sc *SheetContext) error {
			sc.Records = BuildRecords(sc.Extracted, sc.Scope, skipEmpty)
			return nil
		},
	}
}

func cloneGrid(grid models.Grid) models.Grid {
	out := make(models.Grid, len(grid))
	for i, row := range grid {
		out[i] = append([]models.Cell(nil), row...)
	}
	return out
}
