package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// URIScheme is the custom URI scheme for sercha-pdf resources.
	uriScheme = "sercha-pdf://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing documents.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Ingested PDF documents with their ids and status",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	// Template for the figure table of one document.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}/figures",
		Name:        "document-figures",
		Description: "Figure metadata of a specific document",
		MIMEType:    "application/json",
	}, s.handleFiguresResource)
}

// handleDocumentsResource returns every ingested document.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Document == nil {
		return jsonResource(req.Params.URI, []struct{}{})
	}

	docs, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	type docInfo struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Path    string `json:"path"`
		Status  string `json:"status"`
		Pages   int    `json:"pages"`
		Chunks  int    `json:"chunks"`
		Figures int    `json:"figures"`
		Active  bool   `json:"active"`
	}

	active, _ := s.ports.Retrieval.ActiveDocument()
	infos := make([]docInfo, len(docs))
	for i := range docs {
		infos[i] = docInfo{
			ID:      docs[i].ID,
			Title:   docs[i].Title,
			Path:    docs[i].Path,
			Status:  string(docs[i].Status),
			Pages:   docs[i].PageCount,
			Chunks:  docs[i].ChunkCount,
			Figures: docs[i].FigureCount,
			Active:  docs[i].ID == active,
		}
	}
	return jsonResource(req.Params.URI, infos)
}

// handleFiguresResource returns the figures of one document.
func (s *Server) handleFiguresResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Document == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract documentId from URI: sercha-pdf://documents/{documentId}/figures
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	figs, err := s.ports.Document.Figures(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("listing figures: %w", mapError(err))
	}

	out := make([]FigureOutput, len(figs))
	for i, f := range figs {
		out[i] = FigureOutput{
			ID:         f.ID,
			Kind:       string(f.Kind),
			PageIndex:  f.PageIndex,
			ImageIndex: f.ImageIndex,
			ImagePath:  f.ImagePath,
			HasCaption: f.HasCaption,
			Caption:    f.Caption,
			Width:      f.Width,
			Height:     f.Height,
		}
	}
	return jsonResource(req.Params.URI, out)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentID extracts the document ID from a URI like
// sercha-pdf://documents/{documentId}/figures.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"
	const suffix = "/figures"

	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return ""
	}

	id := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
