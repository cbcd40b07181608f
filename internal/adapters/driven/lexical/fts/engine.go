package fts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

// Verify interface compliance.
var (
	_ driven.LexicalEngine = (*Engine)(nil)
	_ driven.LexicalIndex  = (*Index)(nil)
)

// schemaVersion is stored in each index file and checked on open.
const schemaVersion = "1"

const schema = `
CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);
CREATE VIRTUAL TABLE entries USING fts5(
	id UNINDEXED,
	type UNINDEXED,
	ord UNINDEXED,
	page_index UNINDEXED,
	path UNINDEXED,
	content,
	tokenize = 'porter unicode61 remove_diacritics 2'
);`

// Engine keeps one SQLite FTS5 file per document under dir.
type Engine struct {
	dir string
}

// NewEngine creates an engine storing indices in dataDir/lexical.
func NewEngine(dataDir string) (*Engine, error) {
	dir := filepath.Join(dataDir, "lexical")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating lexical directory: %w", err)
	}
	return &Engine{dir: dir}, nil
}

// Dir returns the directory holding the index files.
func (e *Engine) Dir() string {
	return e.dir
}

func (e *Engine) path(docID string) (string, error) {
	if docID == "" || docID != filepath.Base(docID) || strings.HasPrefix(docID, ".") {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidDocumentID, docID)
	}
	return filepath.Join(e.dir, docID+".db"), nil
}

// Build writes the records to a fresh file and swaps it into place, so
// readers never see a partial index.
func (e *Engine) Build(ctx context.Context, docID string, records []driven.LexicalRecord) error {
	final, err := e.path(docID)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(e.dir, docID+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp index: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := writeIndex(ctx, tmpPath, records); err != nil {
		return fmt.Errorf("building lexical index for %s: %w", docID, err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		return fmt.Errorf("installing lexical index: %w", err)
	}

	logger.Debug("fts: built %s with %d records", docID, len(records))
	return nil
}

func writeIndex(ctx context.Context, path string, records []driven.LexicalRecord) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('schema', ?)`, schemaVersion); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (id, type, ord, page_index, path, content) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, string(r.Type), r.Order, r.PageIndex, r.Path, r.Content); err != nil {
			return fmt.Errorf("inserting %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Open returns a handle to the document's index.
func (e *Engine) Open(ctx context.Context, docID string) (driven.LexicalIndex, error) {
	path, err := e.path(docID)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: lexical index for %s", domain.ErrMissingResource, docID)
		}
		return nil, fmt.Errorf("stat lexical index: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=query_only(1)")
	if err != nil {
		return nil, fmt.Errorf("%w: lexical index for %s: %v", domain.ErrCorruptResource, docID, err)
	}

	var version string
	if err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'schema'`).Scan(&version); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: lexical index for %s: %v", domain.ErrCorruptResource, docID, err)
	}
	if version != schemaVersion {
		db.Close()
		return nil, fmt.Errorf("%w: lexical index for %s has schema %s", domain.ErrCorruptResource, docID, version)
	}

	return &Index{db: db}, nil
}

// Drop deletes the document's index file.
func (e *Engine) Drop(_ context.Context, docID string) error {
	path, err := e.path(docID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("dropping lexical index: %w", err)
	}
	return nil
}

// Index is an open FTS5 index.
type Index struct {
	db *sql.DB
}

// Query matches documents containing every term of text, best bm25 first.
// A non-positive limit returns all matches.
func (ix *Index) Query(ctx context.Context, text string, typ domain.HitType, limit int) ([]driven.LexicalHit, error) {
	match := MatchExpression(text)
	if match == "" {
		return []driven.LexicalHit{}, nil
	}
	if limit <= 0 {
		limit = -1
	}

	query := `SELECT id, type, ord, page_index, path, -bm25(entries) AS score
		FROM entries WHERE entries MATCH ?`
	args := []any{match}
	if typ != domain.HitTypeAny {
		query += ` AND type = ?`
		args = append(args, string(typ))
	}
	query += ` ORDER BY score DESC, ord LIMIT ?`
	args = append(args, limit)

	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical query: %w", err)
	}
	defer rows.Close()

	hits := []driven.LexicalHit{}
	for rows.Next() {
		var h driven.LexicalHit
		var t string
		if err := rows.Scan(&h.ID, &t, &h.Order, &h.PageIndex, &h.Path, &h.Score); err != nil {
			return nil, fmt.Errorf("scanning lexical hit: %w", err)
		}
		h.Type = domain.HitType(t)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Close releases the database handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// MatchExpression turns free text into an FTS5 query requiring every
// term. Operators and punctuation in the input are not interpreted.
func MatchExpression(text string) string {
	terms := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, t := range terms {
		terms[i] = `"` + t + `"`
	}
	return strings.Join(terms, " ")
}
