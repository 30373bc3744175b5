package parsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/models"
)

// Uploads are named "<REPORTER> <YYYY>….<ext>"; anything between the year and
// the extension is ignored.
var filenameRe = regexp.MustCompile(`(?i)^(.+?)\s+(\d{4}).*\.(xls|xlsx|xlsm)$`)

const (
	minReportYear = 1900
	maxReportYear = 2100
)

// ParseFilename extracts reporter, year and extension from an upload's name.
// The reporter is trimmed and uppercased; the year must lie in [1900, 2100].
func ParseFilename(name string) (*models.FileInfo, error) {
	m := filenameRe.FindStringSubmatch(name)
	if m == nil {
		return nil, fmt.Errorf("%w: expected '<REPORTER> YYYY.xls|xlsx|xlsm', got %q",
			apperrors.ErrBadFilename, name)
	}

	year, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, fmt.Errorf("%w: year %q is not a number", apperrors.ErrBadFilename, m[2])
	}
	if year < minReportYear || year > maxReportYear {
		return nil, fmt.Errorf("%w: year %d out of range [%d, %d]",
			apperrors.ErrBadFilename, year, minReportYear, maxReportYear)
	}

	return &models.FileInfo{
		Reporter:  strings.ToUpper(strings.TrimSpace(m[1])),
		Year:      year,
		Extension: strings.ToLower(m[3]),
	}, nil
}
