package apperrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateFile      = errors.New("file already uploaded")
	ErrEmptyFile          = errors.New("file content is empty")
	ErrBadFilename        = errors.New("invalid filename")
	ErrBadFormat          = errors.New("unsupported workbook format")
	ErrInvalidStructure   = errors.New("table structure could not be detected")
	ErrMissingStructure   = errors.New("table structure is missing")
	ErrMissingHeaders     = errors.New("parsed headers are missing")
	ErrUnknownSheet       = errors.New("sheet is not configured for this form")
	ErrMalformedRecord    = errors.New("stored record is missing dimension fields")
	ErrVerificationFailed = errors.New("post-insert verification failed")
)
