package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-pdf/internal/asyncbridge"
	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

// SetActiveInput is the input schema for set_active_document.
type SetActiveInput struct {
	DocumentID string `json:"document_id" jsonschema:"the UUID of an ingested document"`
}

// SetActiveOutput is the output schema for set_active_document.
type SetActiveOutput struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title,omitempty"`
	PageCount  int    `json:"page_count,omitempty"`
}

// TextSearchInput is the input schema for text_search.
type TextSearchInput struct {
	Query      string `json:"query" jsonschema:"keywords; every term must match"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"document to search, defaults to the active document"`
	Type       string `json:"type,omitempty" jsonschema:"chunk or image_caption; empty searches both"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
}

// SimilarityInput is the input schema for vector_search and search_caption.
type SimilarityInput struct {
	Query      string `json:"query" jsonschema:"natural language query"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"document to search, defaults to the active document"`
	K          int    `json:"k,omitempty" jsonschema:"number of nearest results (default 10)"`
}

// HybridInput is the input schema for hybrid_search.
type HybridInput struct {
	Query         string   `json:"query" jsonschema:"natural language query"`
	DocumentID    string   `json:"document_id,omitempty" jsonschema:"document to search, defaults to the active document"`
	K             int      `json:"k,omitempty" jsonschema:"number of fused results (default 10)"`
	Target        string   `json:"target,omitempty" jsonschema:"chunks (default) or captions"`
	LexicalWeight *float64 `json:"lexical_weight,omitempty" jsonschema:"weight of the keyword score"`
	VectorWeight  *float64 `json:"vector_weight,omitempty" jsonschema:"weight of the similarity score"`
}

// HitOutput is one search result.
type HitOutput struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Order     int     `json:"order"`
	PageIndex int     `json:"page_index"`
	Path      string  `json:"path,omitempty"`
	Score     float64 `json:"score"`
	Text      string  `json:"text,omitempty"`
}

// SearchOutput is the output schema of the single-list searches.
type SearchOutput struct {
	Results []HitOutput `json:"results"`
	Count   int         `json:"count"`
}

// HybridHitOutput is one fused result with its component scores.
type HybridHitOutput struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	Order        int     `json:"order"`
	PageIndex    int     `json:"page_index"`
	Path         string  `json:"path,omitempty"`
	Text         string  `json:"text,omitempty"`
	LexicalScore float64 `json:"lexical_score"`
	VectorScore  float64 `json:"vector_score"`
	HybridScore  float64 `json:"hybrid_score"`
}

// HybridOutput is the output schema for hybrid_search.
type HybridOutput struct {
	Results []HybridHitOutput `json:"results"`
	Count   int               `json:"count"`
}

// GetChunksInput is the input schema for get_chunks.
type GetChunksInput struct {
	DocumentID string   `json:"document_id,omitempty" jsonschema:"document to read, defaults to the active document"`
	IDs        []string `json:"ids" jsonschema:"chunk ids such as 1, 0001 or chunk_0001"`
}

// ChunkOutput is one chunk.
type ChunkOutput struct {
	ID      string `json:"id"`
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// GetChunksOutput is the output schema for get_chunks.
type GetChunksOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
}

// ListFiguresInput is the input schema for list_figures.
type ListFiguresInput struct {
	DocumentID string `json:"document_id,omitempty" jsonschema:"document to list, defaults to the active document"`
}

// FigureOutput is one figure-metadata row.
type FigureOutput struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	PageIndex  int    `json:"page_index"`
	ImageIndex int    `json:"image_index"`
	ImagePath  string `json:"image_path"`
	HasCaption bool   `json:"has_caption"`
	Caption    string `json:"caption,omitempty"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// ListFiguresOutput is the output schema for list_figures.
type ListFiguresOutput struct {
	Figures []FigureOutput `json:"figures"`
	Count   int            `json:"count"`
}

// PrepareImagesInput is the input schema for prepare_images.
type PrepareImagesInput struct {
	DocumentID string   `json:"document_id,omitempty" jsonschema:"document owning the images, defaults to the active document"`
	ImageIDs   []string `json:"image_ids" jsonschema:"figure ids from list_figures or search results"`
}

// PreparedImageOutput maps a figure to its remote file id.
type PreparedImageOutput struct {
	ImageID string `json:"image_id"`
	FileID  string `json:"file_id"`
	Cached  bool   `json:"cached"`
}

// PrepareImagesOutput is the output schema for prepare_images.
type PrepareImagesOutput struct {
	Images []PreparedImageOutput `json:"images"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_active_document",
		Description: "Select the document that later calls search by default",
	}, s.handleSetActive)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "text_search",
		Description: "Keyword search over chunks and figure captions of a document",
	}, s.handleTextSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "vector_search",
		Description: "Semantic search over the text chunks of a document",
	}, s.handleVectorSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_caption",
		Description: "Semantic search over figure captions of a document",
	}, s.handleSearchCaption)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "hybrid_search",
		Description: "Weighted fusion of keyword and semantic search",
	}, s.handleHybridSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_chunks",
		Description: "Read full chunk text by id",
	}, s.handleGetChunks)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_figures",
		Description: "List bitmap and vector figures with captions",
	}, s.handleListFigures)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "prepare_images",
		Description: "Upload figure images and return file ids for vision requests",
	}, s.handlePrepareImages)
}

// run executes fn through the bridge and maps its error.
func run[T any](ctx context.Context, s *Server, fn func(context.Context) (T, error)) (*mcp.CallToolResult, T, error) {
	out, err := asyncbridge.Do(ctx, s.bridge, fn)
	if err != nil {
		var zero T
		return nil, zero, mapError(err)
	}
	return nil, out, nil
}

func (s *Server) handleSetActive(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SetActiveInput,
) (*mcp.CallToolResult, SetActiveOutput, error) {
	return run(ctx, s, func(ctx context.Context) (SetActiveOutput, error) {
		if err := s.ports.Retrieval.SetActiveDocument(ctx, input.DocumentID); err != nil {
			return SetActiveOutput{}, err
		}
		out := SetActiveOutput{DocumentID: input.DocumentID}
		if s.ports.Document != nil {
			if doc, err := s.ports.Document.Get(ctx, input.DocumentID); err == nil {
				out.Title, out.PageCount = doc.Title, doc.PageCount
			}
		}
		return out, nil
	})
}

func (s *Server) handleTextSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TextSearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	return run(ctx, s, func(ctx context.Context) (SearchOutput, error) {
		typ, err := domain.ParseHitType(input.Type)
		if err != nil {
			return SearchOutput{}, err
		}
		hits, err := s.ports.Retrieval.SearchLexical(ctx, input.DocumentID, input.Query, typ, input.Limit)
		if err != nil {
			return SearchOutput{}, err
		}
		return searchOutput(hits), nil
	})
}

func (s *Server) handleVectorSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SimilarityInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	return run(ctx, s, func(ctx context.Context) (SearchOutput, error) {
		hits, err := s.ports.Retrieval.SearchVector(ctx, input.DocumentID, input.Query, input.K)
		if err != nil {
			return SearchOutput{}, err
		}
		return searchOutput(hits), nil
	})
}

func (s *Server) handleSearchCaption(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SimilarityInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	return run(ctx, s, func(ctx context.Context) (SearchOutput, error) {
		hits, err := s.ports.Retrieval.SearchCaptions(ctx, input.DocumentID, input.Query, input.K)
		if err != nil {
			return SearchOutput{}, err
		}
		return searchOutput(hits), nil
	})
}

func (s *Server) handleHybridSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HybridInput,
) (*mcp.CallToolResult, HybridOutput, error) {
	return run(ctx, s, func(ctx context.Context) (HybridOutput, error) {
		opts := domain.HybridOptions{K: input.K, Target: domain.SearchTarget(input.Target)}
		if input.LexicalWeight != nil || input.VectorWeight != nil {
			w := domain.DefaultHybridWeights()
			if opts.Target == domain.SearchTargetCaptions {
				w = domain.BalancedHybridWeights()
			}
			if input.LexicalWeight != nil {
				w.Lexical = *input.LexicalWeight
			}
			if input.VectorWeight != nil {
				w.Vector = *input.VectorWeight
			}
			opts.Weights = &w
		}

		hits, err := s.ports.Retrieval.SearchHybrid(ctx, input.DocumentID, input.Query, opts)
		if err != nil {
			return HybridOutput{}, err
		}
		out := HybridOutput{Results: make([]HybridHitOutput, len(hits)), Count: len(hits)}
		for i := range hits {
			h := hits[i]
			out.Results[i] = HybridHitOutput{
				ID:           h.ID,
				Type:         string(h.Type),
				Order:        h.Order,
				PageIndex:    h.PageIndex,
				Path:         h.Path,
				Text:         h.Text,
				LexicalScore: h.LexicalScore,
				VectorScore:  h.VectorScore,
				HybridScore:  h.HybridScore,
			}
		}
		return out, nil
	})
}

func (s *Server) handleGetChunks(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetChunksInput,
) (*mcp.CallToolResult, GetChunksOutput, error) {
	return run(ctx, s, func(ctx context.Context) (GetChunksOutput, error) {
		chunks, err := s.ports.Retrieval.GetChunks(ctx, input.DocumentID, input.IDs)
		if err != nil {
			return GetChunksOutput{}, err
		}
		out := GetChunksOutput{Chunks: make([]ChunkOutput, len(chunks))}
		for i, c := range chunks {
			out.Chunks[i] = ChunkOutput{ID: c.ID, Index: c.Index, Content: c.Content}
		}
		return out, nil
	})
}

func (s *Server) handleListFigures(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListFiguresInput,
) (*mcp.CallToolResult, ListFiguresOutput, error) {
	return run(ctx, s, func(ctx context.Context) (ListFiguresOutput, error) {
		if s.ports.Document == nil {
			return ListFiguresOutput{}, domain.ErrNotImplemented
		}
		docID, err := s.documentID(input.DocumentID)
		if err != nil {
			return ListFiguresOutput{}, err
		}
		figs, err := s.ports.Document.Figures(ctx, docID)
		if err != nil {
			return ListFiguresOutput{}, err
		}
		out := ListFiguresOutput{Figures: make([]FigureOutput, len(figs)), Count: len(figs)}
		for i, f := range figs {
			out.Figures[i] = FigureOutput{
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
		return out, nil
	})
}

func (s *Server) handlePrepareImages(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PrepareImagesInput,
) (*mcp.CallToolResult, PrepareImagesOutput, error) {
	return run(ctx, s, func(ctx context.Context) (PrepareImagesOutput, error) {
		if s.ports.Uploads == nil {
			return PrepareImagesOutput{}, domain.ErrUploaderUnavailable
		}
		docID, err := s.documentID(input.DocumentID)
		if err != nil {
			return PrepareImagesOutput{}, err
		}
		prepared, err := s.ports.Uploads.PrepareImages(ctx, docID, input.ImageIDs)
		if err != nil {
			return PrepareImagesOutput{}, err
		}
		out := PrepareImagesOutput{Images: make([]PreparedImageOutput, len(prepared))}
		for i, p := range prepared {
			out.Images[i] = PreparedImageOutput{ImageID: p.ImageID, FileID: p.FileID, Cached: p.Cached}
		}
		return out, nil
	})
}

// documentID falls back to the active document.
func (s *Server) documentID(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	if active, ok := s.ports.Retrieval.ActiveDocument(); ok {
		return active, nil
	}
	return "", domain.ErrNoActiveDocument
}

func searchOutput(hits []domain.SearchHit) SearchOutput {
	out := SearchOutput{Results: make([]HitOutput, len(hits)), Count: len(hits)}
	for i := range hits {
		out.Results[i] = hitOutput(hits[i])
	}
	return out
}

func hitOutput(h domain.SearchHit) HitOutput {
	return HitOutput{
		ID:        h.ID,
		Type:      string(h.Type),
		Order:     h.Order,
		PageIndex: h.PageIndex,
		Path:      h.Path,
		Score:     h.Score,
		Text:      h.Text,
	}
}
