// Package mcp exposes per-document retrieval to AI assistants over the
// Model Context Protocol.
package mcp

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// mapError turns core failures into tool errors an agent can act on.
// The sentinel stays in the chain.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNoActiveDocument):
		return fmt.Errorf("call set_active_document first or pass document_id: %w", err)
	case errors.Is(err, domain.ErrInvalidDocumentID):
		return fmt.Errorf("document_id must be a UUID from the documents resource: %w", err)
	case errors.Is(err, domain.ErrCorruptResource):
		return fmt.Errorf("the document index is damaged, run `sercha-pdf reindex`: %w", err)
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return fmt.Errorf("similarity search is unavailable, use text_search: %w", err)
	case errors.Is(err, domain.ErrUploaderUnavailable):
		return fmt.Errorf("image uploads are not configured: %w", err)
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("not found: %w", err)
	default:
		return err
	}
}
