// Package local stores blobs as files under a root directory. URIs are the
// absolute file paths, so stored figure images can be opened directly.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.BlobStore = (*Store)(nil)

// Store is a filesystem BlobStore.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving blob directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0700); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// key validates a slash-separated hint and returns its cleaned form.
func key(hint string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(hint, "\\", "/"))
	if hint == "" || clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: blob key %q", domain.ErrInvalidInput, hint)
	}
	return clean, nil
}

// resolve maps a URI back to a path inside the root.
func (s *Store) resolve(uri string) (string, error) {
	p := filepath.Clean(strings.TrimPrefix(uri, "file://"))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: blob uri %q is outside %s", domain.ErrInvalidInput, uri, s.root)
	}
	return p, nil
}

// Put writes data atomically and returns the file path.
func (s *Store) Put(ctx context.Context, data []byte, hint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	k, err := key(hint)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return "", fmt.Errorf("creating blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".blob-*")
	if err != nil {
		return "", fmt.Errorf("creating temp blob: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing blob: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("installing blob: %w", err)
	}
	return dst, nil
}

// Get reads the blob at uri.
func (s *Store) Get(_ context.Context, uri string) ([]byte, error) {
	p, err := s.resolve(uri)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", uri, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob: %w", err)
	}
	return data, nil
}

// Delete removes the blob at uri.
func (s *Store) Delete(_ context.Context, uri string) error {
	p, err := s.resolve(uri)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

// DeletePrefix removes every blob whose key starts with prefix. A prefix
// ending in "/" removes the whole directory.
func (s *Store) DeletePrefix(_ context.Context, prefix string) error {
	if strings.HasSuffix(prefix, "/") {
		k, err := key(prefix)
		if err != nil {
			return err
		}
		if err := os.RemoveAll(filepath.Join(s.root, filepath.FromSlash(k))); err != nil {
			return fmt.Errorf("deleting blobs under %s: %w", prefix, err)
		}
		return nil
	}

	return filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		if strings.HasPrefix(filepath.ToSlash(rel), prefix) {
			if err := os.Remove(p); err != nil {
				return fmt.Errorf("deleting blob %s: %w", rel, err)
			}
		}
		return nil
	})
}

// Exists reports whether the blob is present.
func (s *Store) Exists(_ context.Context, uri string) (bool, error) {
	p, err := s.resolve(uri)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat blob: %w", err)
	}
	return true, nil
}
