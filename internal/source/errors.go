package source

import "errors"

// Source-level failures. Any of these aborts an import attempt before a
// single candidate is produced.
var (
	ErrUnreadableFile       = errors.New("unreadable spreadsheet")
	ErrMissingHeader        = errors.New("missing required column")
	ErrNoDataRows           = errors.New("no data rows")
	ErrUnsupportedImageType = errors.New("unsupported image type")
	ErrImageTooLarge        = errors.New("image too large")
	ErrExtractionFailed     = errors.New("image extraction failed")
)
