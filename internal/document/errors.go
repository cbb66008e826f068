package document

import "errors"

var (
	// ErrDocumentNotFound signals that the document could not be located.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrFileTooLarge signals that the upload exceeds configured limits.
	ErrFileTooLarge = errors.New("file too large")
)
