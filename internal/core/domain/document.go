package domain

import (
	"fmt"
	"time"
)

// DocumentStatus tracks ingestion progress.
type DocumentStatus string

// Document statuses.
const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document represents an ingested PDF.
type Document struct {
	// ID is the unique identifier for the document (a UUID).
	ID string

	// Path is the source file location.
	Path string

	// Title is the human-readable title, derived from the file name.
	Title string

	PageCount   int
	ChunkCount  int
	FigureCount int

	Status DocumentStatus

	// Error holds the failure message when Status is failed.
	Error string

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time
}

// Chunk is one trimmed window of document text.
type Chunk struct {
	// ID is the zero-padded 1-based sequence number, e.g. "0001".
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the 1-based position within the document.
	Index int

	// Start and End are the untrimmed window offsets in characters.
	Start int
	End   int

	// Content is the trimmed, non-empty window text.
	Content string
}

// ChunkID formats the id of the n-th chunk.
func ChunkID(index int) string {
	return fmt.Sprintf("%04d", index)
}

// DocumentText is the working text of a document while it passes
// through the post-processing pipeline.
type DocumentText struct {
	DocumentID string
	Text       string
}
