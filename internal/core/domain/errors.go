package domain

import "errors"

// General failures.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotImplemented  = errors.New("not implemented")
	ErrUnsupportedType = errors.New("unsupported type")
)

// ErrConfiguration rejects invalid thresholds or settings when a component
// is constructed. It is never recovered at runtime.
var ErrConfiguration = errors.New("invalid configuration")

// Resource failures come in two kinds. Missing resources are recoverable:
// the caller selects a document or builds its index, and searches meanwhile
// return empty results. Corrupt resources and malformed ids are propagated.
var (
	ErrMissingResource   = errors.New("missing resource")
	ErrNoActiveDocument  = errors.New("no active document")
	ErrCorruptResource   = errors.New("corrupt resource")
	ErrInvalidDocumentID = errors.New("invalid document id")
)

// Optional collaborators that are not configured or not reachable.
var (
	// ErrEmbeddingUnavailable disables vector and caption search.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	ErrUploaderUnavailable  = errors.New("file uploader unavailable")
	ErrBridgeStopped        = errors.New("async bridge stopped")
)
