package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-pdf/internal/asyncbridge"
	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

// Verify interface compliance.
var (
	_ driven.SimilarityEngine = (*Engine)(nil)
	_ driven.SimilarityIndex  = (*Index)(nil)
)

// Defaults.
const (
	DefaultURL              = "http://localhost:6333"
	DefaultCollectionPrefix = "sercha_pdf_"
	DefaultTimeout          = 30 * time.Second
	DefaultUpsertBatch      = 256
	DefaultEmbedBatch       = 64
)

// pointNamespace derives stable point ids from record ids.
var pointNamespace = uuid.MustParse("8d3b2b1e-6c1a-4f0e-9a43-5b7f0f4f3c2a")

// Config holds connection settings.
type Config struct {
	URL              string
	APIKey           string
	CollectionPrefix string
	Timeout          time.Duration
}

// Engine stores each (document, collection) pair as one Qdrant collection.
type Engine struct {
	client   *client
	prefix   string
	embedder driven.EmbeddingService
}

// Option configures an Engine.
type Option func(*Engine)

// WithBridge routes requests through a shared bridge instead of a private one.
func WithBridge(b *asyncbridge.Bridge) Option {
	return func(e *Engine) {
		if b != nil {
			e.client.bridge = b
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		if c != nil {
			e.client.http = c
		}
	}
}

// NewEngine creates an engine talking to the server at cfg.URL.
func NewEngine(cfg Config, embedder driven.EmbeddingService, opts ...Option) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: similarity engine needs an embedding service", domain.ErrConfiguration)
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("%w: qdrant url %q: %v", domain.ErrConfiguration, cfg.URL, err)
	}
	if cfg.CollectionPrefix == "" {
		cfg.CollectionPrefix = DefaultCollectionPrefix
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	e := &Engine{
		client: &client{
			http:   &http.Client{Timeout: cfg.Timeout},
			url:    strings.TrimRight(cfg.URL, "/"),
			apiKey: cfg.APIKey,
			bridge: asyncbridge.New(),
		},
		prefix:   cfg.CollectionPrefix,
		embedder: embedder,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// CollectionName returns the Qdrant collection holding coll for docID.
func (e *Engine) CollectionName(docID string, coll driven.Collection) string {
	return e.prefix + docID + "_" + string(coll)
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Build recreates the collection and upserts the embedded records.
func (e *Engine) Build(ctx context.Context, docID string, coll driven.Collection, records []driven.SimilarityRecord) error {
	if docID == "" {
		return fmt.Errorf("%w: empty document id", domain.ErrInvalidDocumentID)
	}
	name := e.CollectionName(docID, coll)

	vecs, err := e.embedAll(ctx, records)
	if err != nil {
		return fmt.Errorf("embedding %s/%s: %w", docID, coll, err)
	}
	size := e.embedder.Dimensions()
	if len(vecs) > 0 {
		size = len(vecs[0])
	}
	if size <= 0 {
		// Qdrant needs a positive size even for an empty collection.
		size = 1
	}

	if err := e.deleteCollection(ctx, name); err != nil {
		return err
	}
	create := map[string]any{"vectors": map[string]any{"size": size, "distance": "Cosine"}}
	if err := e.client.do(ctx, http.MethodPut, "/collections/"+name, create, nil); err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	points := make([]point, len(records))
	for i, r := range records {
		if len(vecs[i]) != size {
			return fmt.Errorf("%w: embedding %d has %d dimensions, want %d", domain.ErrInvalidInput, i, len(vecs[i]), size)
		}
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		points[i] = point{
			ID:     uuid.NewSHA1(pointNamespace, []byte(name+"/"+r.ID)).String(),
			Vector: vecs[i],
			Payload: map[string]any{
				"record_id": r.ID,
				"ord":       i,
				"text":      r.Text,
				"metadata":  meta,
				"model":     e.embedder.ModelName(),
			},
		}
	}
	for start := 0; start < len(points); start += DefaultUpsertBatch {
		end := min(start+DefaultUpsertBatch, len(points))
		body := map[string]any{"points": points[start:end]}
		if err := e.client.do(ctx, http.MethodPut, "/collections/"+name+"/points?wait=true", body, nil); err != nil {
			return fmt.Errorf("upserting into %s: %w", name, err)
		}
	}

	logger.Debug("qdrant: built %s with %d points (%d dims)", name, len(points), size)
	return nil
}

func (e *Engine) embedAll(ctx context.Context, records []driven.SimilarityRecord) ([][]float32, error) {
	out := make([][]float32, 0, len(records))
	for start := 0; start < len(records); start += DefaultEmbedBatch {
		end := min(start+DefaultEmbedBatch, len(records))
		texts := make([]string, 0, end-start)
		for _, r := range records[start:end] {
			texts = append(texts, r.Text)
		}
		vecs, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
		}
		out = append(out, vecs...)
	}
	return out, nil
}

type collectionInfo struct {
	PointsCount int `json:"points_count"`
	Config      struct {
		Params struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

type scrollResult struct {
	Points []struct {
		Payload map[string]any `json:"payload"`
	} `json:"points"`
}

// Load checks the collection exists and was built with the current
// embedding model.
func (e *Engine) Load(ctx context.Context, docID string, coll driven.Collection) (driven.SimilarityIndex, error) {
	name := e.CollectionName(docID, coll)

	var info collectionInfo
	if err := e.client.do(ctx, http.MethodGet, "/collections/"+name, nil, &info); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: qdrant collection %s", domain.ErrMissingResource, name)
		}
		return nil, err
	}
	if d := info.Config.Params.Vectors.Distance; d != "" && d != "Cosine" {
		return nil, fmt.Errorf("%w: collection %s uses %s distance", domain.ErrCorruptResource, name, d)
	}

	if info.PointsCount > 0 {
		var page scrollResult
		body := map[string]any{"limit": 1, "with_payload": true, "with_vector": false}
		if err := e.client.do(ctx, http.MethodPost, "/collections/"+name+"/points/scroll", body, &page); err != nil {
			return nil, err
		}
		if len(page.Points) > 0 {
			model, _ := page.Points[0].Payload["model"].(string)
			if model != e.embedder.ModelName() {
				return nil, fmt.Errorf("%w: collection %s was built with %q, embedder is %q",
					domain.ErrCorruptResource, name, model, e.embedder.ModelName())
			}
		}
	}

	return &Index{
		engine: e,
		name:   name,
		dims:   info.Config.Params.Vectors.Size,
		count:  info.PointsCount,
	}, nil
}

// Drop deletes both collections of the document.
func (e *Engine) Drop(ctx context.Context, docID string) error {
	for _, coll := range []driven.Collection{driven.CollectionChunks, driven.CollectionCaptions} {
		if err := e.deleteCollection(ctx, e.CollectionName(docID, coll)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) deleteCollection(ctx context.Context, name string) error {
	err := e.client.do(ctx, http.MethodDelete, "/collections/"+name, nil, nil)
	if err != nil && !errors.Is(err, errNotFound) {
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	return nil
}

// Index is a handle to one Qdrant collection.
type Index struct {
	engine *Engine
	name   string
	dims   int
	count  int
}

// QueryText embeds text and searches.
func (ix *Index) QueryText(ctx context.Context, text string, k int) ([]driven.SimilarityHit, error) {
	if ix.count == 0 {
		return []driven.SimilarityHit{}, nil
	}
	vec, err := ix.engine.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return ix.QueryVector(ctx, vec, k)
}

type searchHit struct {
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// QueryVector returns the k nearest points. A non-positive k returns all.
func (ix *Index) QueryVector(ctx context.Context, vec []float32, k int) ([]driven.SimilarityHit, error) {
	if ix.count == 0 {
		return []driven.SimilarityHit{}, nil
	}
	if len(vec) != ix.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d", domain.ErrInvalidInput, len(vec), ix.dims)
	}
	if k <= 0 || k > ix.count {
		k = ix.count
	}

	body := map[string]any{"vector": vec, "limit": k, "with_payload": true}
	var res []searchHit
	if err := ix.engine.client.do(ctx, http.MethodPost, "/collections/"+ix.name+"/points/search", body, &res); err != nil {
		return nil, err
	}

	hits := make([]driven.SimilarityHit, 0, len(res))
	for _, r := range res {
		h := driven.SimilarityHit{Score: r.Score}
		h.ID, _ = r.Payload["record_id"].(string)
		h.Text, _ = r.Payload["text"].(string)
		if meta, ok := r.Payload["metadata"].(map[string]any); ok && len(meta) > 0 {
			h.Metadata = make(map[string]string, len(meta))
			for key, v := range meta {
				if s, ok := v.(string); ok {
					h.Metadata[key] = s
				}
			}
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Close is a no-op; the HTTP session belongs to the engine.
func (ix *Index) Close() error {
	return nil
}
