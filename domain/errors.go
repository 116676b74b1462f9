package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every concrete error below wraps exactly one of them.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

var (
	ErrEmptyInput      = fmt.Errorf("%w: text is empty", ErrInvalidInput)
	ErrEmptyContent    = fmt.Errorf("%w: no content found", ErrInvalidInput)
	ErrUnsupportedType = fmt.Errorf("%w: unsupported file type", ErrInvalidInput)
	ErrNoFile          = fmt.Errorf("%w: no file uploaded", ErrInvalidInput)
	ErrFileTooLarge    = fmt.Errorf("%w: file too large", ErrInvalidInput)
	ErrMissingURL      = fmt.Errorf("%w: url is required", ErrInvalidInput)
	ErrInvalidURL      = fmt.Errorf("%w: invalid url", ErrInvalidInput)
	ErrMissingMessage  = fmt.Errorf("%w: message is required", ErrInvalidInput)
)

var (
	ErrScrapeFailed     = fmt.Errorf("%w: failed to scrape website", ErrUpstreamUnavailable)
	ErrStoreUnavailable = fmt.Errorf("%w: vector store unavailable", ErrUpstreamUnavailable)
	ErrEmbeddingFailed  = fmt.Errorf("%w: embedding failed", ErrUpstreamUnavailable)
	ErrAnswerGeneration = fmt.Errorf("%w: failed to generate answer", ErrUpstreamUnavailable)
)

// IngestionFailedError reports a write that stopped part way. Added is a
// best-effort count of chunks already stored.
type IngestionFailedError struct {
	Added int
	Total int
	Err   error
}

func (e *IngestionFailedError) Error() string {
	return fmt.Sprintf("ingestion failed after %d of %d chunks: %v", e.Added, e.Total, e.Err)
}

func (e *IngestionFailedError) Unwrap() error {
	return e.Err
}
