package mcp

import (
	"github.com/custodia-labs/sercha-pdf/internal/asyncbridge"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval answers searches and chunk lookups.
	Retrieval driving.RetrievalService

	// Document lists documents and their figures.
	Document driving.DocumentService

	// Uploads prepares figure images for remote vision models.
	Uploads driving.UploadService

	// Bridge serialises tool executions. A private bridge is created
	// when nil.
	Bridge *asyncbridge.Bridge
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// Document and Uploads are optional; their tools report unavailability.
	return nil
}
