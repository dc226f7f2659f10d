package core

import "errors"

// Error kinds shared by every stage. Callers wrap them with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	// ErrInvalidMode is returned for a summary mode other than primary or secondary.
	ErrInvalidMode = errors.New("invalid summary mode")
	// ErrTransport covers network and HTTP failures after the local retry budget.
	ErrTransport = errors.New("transport error")
	// ErrParse covers malformed JSON or CSV from an external source or the LLM.
	ErrParse = errors.New("parse error")
	// ErrValidation is returned when LLM output still fails its schema after repair and retries.
	ErrValidation = errors.New("validation error")
	// ErrConfig covers missing or unreadable configuration, filter or preference files.
	ErrConfig = errors.New("configuration error")
)
