package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-pdf/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-pdf/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-pdf", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// FigureStore returns a FigureStore interface backed by this store.
func (s *Store) FigureStore() driven.FigureStore {
	return &figureStore{store: s}
}

// UploadCacheStore returns an UploadCacheStore interface backed by this store.
func (s *Store) UploadCacheStore() driven.UploadCacheStore {
	return &uploadCache{store: s}
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, path, title, page_count, chunk_count, figure_count, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			title = excluded.title,
			page_count = excluded.page_count,
			chunk_count = excluded.chunk_count,
			figure_count = excluded.figure_count,
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Path, doc.Title, doc.PageCount, doc.ChunkCount, doc.FigureCount,
		string(doc.Status), doc.Error, doc.CreatedAt.UTC(), doc.UpdatedAt.UTC())

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, path, title, page_count, chunk_count, figure_count, status, error, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// ListDocuments returns all documents, newest first.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, path, title, page_count, chunk_count, figure_count, status, error, created_at, updated_at
		FROM documents ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes a document. Chunks, figures and uploads cascade.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// SaveChunks replaces the chunks of a document.
func (s *chunkStore) SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, id, idx, start_offset, end_offset, content)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, documentID, c.ID, c.Index, c.Start, c.End, c.Content); err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunks returns the requested chunks in request order, skipping
// unknown ids.
func (s *chunkStore) GetChunks(ctx context.Context, documentID string, ids []string) ([]domain.Chunk, error) {
	result := make([]domain.Chunk, 0, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, documentID)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `
		SELECT document_id, id, idx, start_offset, end_offset, content
		FROM chunks WHERE document_id = ? AND id IN (` + placeholders(len(ids)) + `)`

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Chunk, len(ids))
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		byID[c.ID] = *c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	for _, id := range ids {
		if c, ok := byID[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

// ListChunks returns all chunks of a document in index order.
func (s *chunkStore) ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, id, idx, start_offset, end_offset, content
		FROM chunks WHERE document_id = ?
		ORDER BY idx
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// ==================== Figure Store ====================

// figureStore implements driven.FigureStore.
type figureStore struct {
	store *Store
}

var _ driven.FigureStore = (*figureStore)(nil)

// SaveFigures replaces the figures of a document.
func (s *figureStore) SaveFigures(ctx context.Context, documentID string, figures []domain.FigureRecord) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM figures WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing figures: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO figures (document_id, id, kind, page_index, image_index, image_path, has_caption, caption, width, height)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range figures {
		if _, err := stmt.ExecContext(ctx, documentID, f.ID, string(f.Kind), f.PageIndex, f.ImageIndex,
			f.ImagePath, f.HasCaption, f.Caption, f.Width, f.Height); err != nil {
			return fmt.Errorf("saving figure %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListFigures returns the figures of a document ordered by page, kind
// and image index.
func (s *figureStore) ListFigures(ctx context.Context, documentID string) ([]domain.FigureRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, id, kind, page_index, image_index, image_path, has_caption, caption, width, height
		FROM figures WHERE document_id = ?
		ORDER BY page_index, kind, image_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying figures: %w", err)
	}
	defer rows.Close()

	var figures []domain.FigureRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		f, err := scanFigure(rows)
		if err != nil {
			return nil, err
		}
		figures = append(figures, *f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating figures: %w", err)
	}

	return figures, nil
}

// GetFigure returns one figure or domain.ErrNotFound.
func (s *figureStore) GetFigure(ctx context.Context, documentID, figureID string) (*domain.FigureRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_id, id, kind, page_index, image_index, image_path, has_caption, caption, width, height
		FROM figures WHERE document_id = ? AND id = ?
	`, documentID, figureID)

	f, err := scanFigure(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("figure %s: %w", figureID, domain.ErrNotFound)
	}
	return f, err
}

// ==================== Upload Cache ====================

// uploadCache implements driven.UploadCacheStore.
type uploadCache struct {
	store *Store
}

var _ driven.UploadCacheStore = (*uploadCache)(nil)

// GetUpload returns the cached entry or domain.ErrNotFound.
func (s *uploadCache) GetUpload(ctx context.Context, documentID, imageID string) (*domain.CachedUpload, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT image_id, file_id, image_path, uploaded_at, expires_at
		FROM uploads WHERE document_id = ? AND image_id = ?
	`, documentID, imageID)

	u, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return u, err
}

// PutUpload stores or replaces an entry.
func (s *uploadCache) PutUpload(ctx context.Context, documentID string, upload domain.CachedUpload) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO uploads (document_id, image_id, file_id, image_path, uploaded_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, image_id) DO UPDATE SET
			file_id = excluded.file_id,
			image_path = excluded.image_path,
			uploaded_at = excluded.uploaded_at,
			expires_at = excluded.expires_at
	`, documentID, upload.ImageID, upload.FileID, upload.ImagePath,
		upload.UploadedAt.UTC(), upload.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("saving upload: %w", err)
	}
	return nil
}

// ListUploads returns every entry of a document ordered by image id.
func (s *uploadCache) ListUploads(ctx context.Context, documentID string) ([]domain.CachedUpload, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT image_id, file_id, image_path, uploaded_at, expires_at
		FROM uploads WHERE document_id = ?
		ORDER BY image_id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying uploads: %w", err)
	}
	defer rows.Close()

	uploads := []domain.CachedUpload{}
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating uploads: %w", err)
	}

	return uploads, nil
}

// DeleteUploads removes entries by image id.
func (s *uploadCache) DeleteUploads(ctx context.Context, documentID string, imageIDs []string) error {
	if len(imageIDs) == 0 {
		return nil
	}
	args := make([]any, 0, len(imageIDs)+1)
	args = append(args, documentID)
	for _, id := range imageIDs {
		args = append(args, id)
	}
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM uploads WHERE document_id = ? AND image_id IN ("+placeholders(len(imageIDs))+")", args...)
	if err != nil {
		return fmt.Errorf("deleting uploads: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// scanDocument scans a single document row. sql.ErrNoRows is returned
// unwrapped.
func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var status string
	if err := row.Scan(&doc.ID, &doc.Path, &doc.Title, &doc.PageCount, &doc.ChunkCount,
		&doc.FigureCount, &status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func scanChunk(row scanner) (*domain.Chunk, error) {
	var c domain.Chunk
	if err := row.Scan(&c.DocumentID, &c.ID, &c.Index, &c.Start, &c.End, &c.Content); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	return &c, nil
}

func scanFigure(row scanner) (*domain.FigureRecord, error) {
	var f domain.FigureRecord
	var kind string
	if err := row.Scan(&f.DocumentID, &f.ID, &kind, &f.PageIndex, &f.ImageIndex, &f.ImagePath,
		&f.HasCaption, &f.Caption, &f.Width, &f.Height); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning figure: %w", err)
	}
	f.Kind = domain.FigureKind(kind)
	return &f, nil
}

func scanUpload(row scanner) (*domain.CachedUpload, error) {
	var u domain.CachedUpload
	if err := row.Scan(&u.ImageID, &u.FileID, &u.ImagePath, &u.UploadedAt, &u.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning upload: %w", err)
	}
	return &u, nil
}
