package workbook

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/models"
)

// Format identifies the container format of an uploaded workbook.
type Format int

const (
	FormatUnknown Format = iota
	FormatOLE2           // Legacy .xls compound document
	FormatZip            // .xlsx / .xlsm package
)

var (
	magicOLE2 = []byte{0xD0, 0xCF, 0x11, 0xE0}
	magicZip  = []byte{0x50, 0x4B, 0x03, 0x04}
)

// Sheet is one worksheet snapshot: its name and the raw cell grid.
type Sheet struct {
	Name string
	Grid models.Grid
}

// Detect sniffs the container format from the leading bytes. Content shorter
// than 4 bytes or starting with an HTML marker is rejected: error pages saved
// with a spreadsheet extension are a recurring impostor.
func Detect(data []byte) (Format, error) {
	if len(data) < 4 {
		return FormatUnknown, fmt.Errorf("%w: content shorter than 4 bytes", apperrors.ErrBadFormat)
	}
	prefix := strings.ToLower(string(data[:4]))
	if strings.HasPrefix(prefix, "<htm") || strings.HasPrefix(prefix, "<!do") {
		return FormatUnknown, fmt.Errorf("%w: content looks like HTML", apperrors.ErrBadFormat)
	}
	switch {
	case bytes.HasPrefix(data, magicOLE2):
		return FormatOLE2, nil
	case bytes.HasPrefix(data, magicZip):
		return FormatZip, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: unrecognized magic %X", apperrors.ErrBadFormat, data[:4])
	}
}

// Open sniffs the format and loads every worksheet in workbook order.
func Open(data []byte) ([]Sheet, error) {
	format, err := Detect(data)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatZip:
		return openXLSX(data)
	case FormatOLE2:
		return openXLS(data)
	default:
		return nil, apperrors.ErrBadFormat
	}
}
