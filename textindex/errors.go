package textindex

import "errors"

var (
	// ErrNotFound is returned when a document lookup fails.
	ErrNotFound = errors.New("not found")

	// ErrMissingURL is returned when indexing a document without a URL.
	ErrMissingURL = errors.New("document has missing / invalid URL")

	// ErrInvalidIndex is returned when an operation requires a valid index
	// but integrity validation has failed.
	ErrInvalidIndex = errors.New("index failed integrity validation")
)
