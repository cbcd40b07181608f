package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

// Verify interface compliance.
var (
	_ driven.SimilarityEngine = (*Engine)(nil)
	_ driven.SimilarityIndex  = (*Index)(nil)
)

// DefaultBatchSize is the number of texts embedded per request.
const DefaultBatchSize = 64

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	doc_id   TEXT NOT NULL,
	coll     TEXT NOT NULL,
	model    TEXT NOT NULL,
	dims     INTEGER NOT NULL,
	built_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (doc_id, coll)
);
CREATE TABLE IF NOT EXISTS vectors (
	doc_id   TEXT NOT NULL,
	coll     TEXT NOT NULL,
	id       TEXT NOT NULL,
	ord      INTEGER NOT NULL,
	text     TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	vec      BLOB NOT NULL,
	PRIMARY KEY (doc_id, coll, id),
	FOREIGN KEY (doc_id, coll) REFERENCES collections (doc_id, coll) ON DELETE CASCADE
);`

// Engine persists embeddings in a SQLite file and answers queries with an
// in-memory brute-force cosine scan.
type Engine struct {
	db        *sql.DB
	path      string
	embedder  driven.EmbeddingService
	batchSize int
}

// Option configures an Engine.
type Option func(*Engine)

// WithBatchSize sets how many texts are embedded per request.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// NewEngine opens (or creates) dataDir/vectors.db.
func NewEngine(dataDir string, embedder driven.EmbeddingService, opts ...Option) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: similarity engine needs an embedding service", domain.ErrConfiguration)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, "vectors.db")
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening vector database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vector schema: %w", err)
	}

	e := &Engine{db: db, path: path, embedder: embedder, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close closes the database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Path returns the database file path.
func (e *Engine) Path() string {
	return e.path
}

// Build embeds the records and replaces the collection in one transaction.
func (e *Engine) Build(ctx context.Context, docID string, coll driven.Collection, records []driven.SimilarityRecord) error {
	if docID == "" {
		return fmt.Errorf("%w: empty document id", domain.ErrInvalidDocumentID)
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	vecs, err := e.embedAll(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %s/%s: %w", docID, coll, err)
	}

	dims := 0
	if len(vecs) > 0 {
		dims = len(vecs[0])
	}
	for i, v := range vecs {
		if len(v) != dims {
			return fmt.Errorf("%w: embedding %d has %d dimensions, want %d", domain.ErrInvalidInput, i, len(v), dims)
		}
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE doc_id = ? AND coll = ?`, docID, string(coll)); err != nil {
		return fmt.Errorf("clearing collection: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (doc_id, coll, model, dims) VALUES (?, ?, ?, ?)`,
		docID, string(coll), e.embedder.ModelName(), dims,
	); err != nil {
		return fmt.Errorf("inserting collection: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vectors (doc_id, coll, id, ord, text, metadata, vec) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata of %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, docID, string(coll), r.ID, i, r.Text, string(meta), encodeVector(vecs[i])); err != nil {
			return fmt.Errorf("inserting %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing collection: %w", err)
	}
	logger.Debug("vector: built %s/%s with %d records (%d dims)", docID, coll, len(records), dims)
	return nil
}

func (e *Engine) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vecs, err := e.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), end-start)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Load reads the collection into memory.
func (e *Engine) Load(ctx context.Context, docID string, coll driven.Collection) (driven.SimilarityIndex, error) {
	var model string
	var dims int
	err := e.db.QueryRowContext(ctx,
		`SELECT model, dims FROM collections WHERE doc_id = ? AND coll = ?`, docID, string(coll),
	).Scan(&model, &dims)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s collection for %s", domain.ErrMissingResource, coll, docID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s collection for %s: %v", domain.ErrCorruptResource, coll, docID, err)
	}
	if model != e.embedder.ModelName() {
		return nil, fmt.Errorf("%w: %s collection for %s was built with %q, embedder is %q",
			domain.ErrCorruptResource, coll, docID, model, e.embedder.ModelName())
	}

	rows, err := e.db.QueryContext(ctx,
		`SELECT id, text, metadata, vec FROM vectors WHERE doc_id = ? AND coll = ? ORDER BY ord`, docID, string(coll))
	if err != nil {
		return nil, fmt.Errorf("loading %s collection: %w", coll, err)
	}
	defer rows.Close()

	ix := &Index{embedder: e.embedder, dims: dims}
	for rows.Next() {
		var it item
		var meta string
		var blob []byte
		if err := rows.Scan(&it.id, &it.text, &meta, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning vector: %v", domain.ErrCorruptResource, err)
		}
		if err := json.Unmarshal([]byte(meta), &it.metadata); err != nil {
			return nil, fmt.Errorf("%w: metadata of %s: %v", domain.ErrCorruptResource, it.id, err)
		}
		if it.vec, err = decodeVector(blob); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptResource, it.id, err)
		}
		if len(it.vec) != dims {
			return nil, fmt.Errorf("%w: %s has %d dimensions, collection has %d",
				domain.ErrCorruptResource, it.id, len(it.vec), dims)
		}
		it.mag = magnitude(it.vec)
		ix.items = append(ix.items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading %s collection: %w", coll, err)
	}
	return ix, nil
}

// Drop removes every collection of the document.
func (e *Engine) Drop(ctx context.Context, docID string) error {
	if _, err := e.db.ExecContext(ctx, `DELETE FROM collections WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("dropping vectors of %s: %w", docID, err)
	}
	return nil
}

type item struct {
	id       string
	text     string
	metadata map[string]string
	vec      []float32
	mag      float64
}

// Index is a loaded collection. It is read-only after Load.
type Index struct {
	embedder driven.EmbeddingService
	dims     int
	items    []item
}

// Len returns the number of vectors.
func (ix *Index) Len() int {
	return len(ix.items)
}

// QueryText embeds text with the engine's embedder and searches.
func (ix *Index) QueryText(ctx context.Context, text string, k int) ([]driven.SimilarityHit, error) {
	if len(ix.items) == 0 {
		return []driven.SimilarityHit{}, nil
	}
	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return ix.QueryVector(ctx, vec, k)
}

// QueryVector returns the k most cosine-similar records. A non-positive k
// returns every record.
func (ix *Index) QueryVector(_ context.Context, vec []float32, k int) ([]driven.SimilarityHit, error) {
	if len(ix.items) == 0 {
		return []driven.SimilarityHit{}, nil
	}
	if len(vec) != ix.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrInvalidInput, len(vec), ix.dims)
	}
	qm := magnitude(vec)
	if qm == 0 {
		return []driven.SimilarityHit{}, nil
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, 0, len(ix.items))
	for i, it := range ix.items {
		if it.mag == 0 {
			continue
		}
		scores = append(scores, scored{idx: i, score: dot(vec, it.vec) / (qm * it.mag)})
	}
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].score > scores[b].score })

	if k <= 0 || k > len(scores) {
		k = len(scores)
	}
	hits := make([]driven.SimilarityHit, k)
	for n := 0; n < k; n++ {
		it := ix.items[scores[n].idx]
		hits[n] = driven.SimilarityHit{
			ID:       it.id,
			Text:     it.text,
			Metadata: it.metadata,
			Score:    scores[n].score,
		}
	}
	return hits, nil
}

// Close is a no-op; the index holds no external resources.
func (ix *Index) Close() error {
	return nil
}
