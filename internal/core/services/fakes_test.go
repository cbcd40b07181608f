package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
)

// --- Lexical engine ---

// fakeLexicalEngine keeps built records in memory and scores queries by
// substring occurrence count.
type fakeLexicalEngine struct {
	mu      sync.Mutex
	records map[string][]driven.LexicalRecord
	openErr map[string]error
	opens   map[string]int
	dropped []string
	indices []*fakeLexicalIndex
	gate    chan struct{}
}

func newFakeLexicalEngine() *fakeLexicalEngine {
	return &fakeLexicalEngine{
		records: make(map[string][]driven.LexicalRecord),
		openErr: make(map[string]error),
		opens:   make(map[string]int),
	}
}

func (e *fakeLexicalEngine) Build(_ context.Context, docID string, records []driven.LexicalRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records[docID] = append([]driven.LexicalRecord(nil), records...)
	return nil
}

func (e *fakeLexicalEngine) Open(_ context.Context, docID string) (driven.LexicalIndex, error) {
	if e.gate != nil {
		<-e.gate
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opens[docID]++
	if err := e.openErr[docID]; err != nil {
		return nil, err
	}
	records, ok := e.records[docID]
	if !ok {
		return nil, fmt.Errorf("%w: no lexical index for %s", domain.ErrMissingResource, docID)
	}
	idx := &fakeLexicalIndex{records: records}
	e.indices = append(e.indices, idx)
	return idx, nil
}

func (e *fakeLexicalEngine) Drop(_ context.Context, docID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.records, docID)
	e.dropped = append(e.dropped, docID)
	return nil
}

func (e *fakeLexicalEngine) openCount(docID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens[docID]
}

type fakeLexicalIndex struct {
	mu       sync.Mutex
	records  []driven.LexicalRecord
	queryErr error
	closed   bool
}

func (i *fakeLexicalIndex) Query(_ context.Context, text string, typ domain.HitType, limit int) ([]driven.LexicalHit, error) {
	if i.queryErr != nil {
		return nil, i.queryErr
	}
	q := strings.ToLower(text)
	var out []driven.LexicalHit
	for _, r := range i.records {
		if typ != domain.HitTypeAny && r.Type != typ {
			continue
		}
		n := strings.Count(strings.ToLower(r.Content), q)
		if n == 0 {
			continue
		}
		out = append(out, driven.LexicalHit{
			ID: r.ID, Type: r.Type, Order: r.Order, PageIndex: r.PageIndex, Path: r.Path, Score: float64(n),
		})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (i *fakeLexicalIndex) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	return nil
}

func (i *fakeLexicalIndex) isClosed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

// --- Similarity engine ---

// fakeSimilarityEngine scores records by the fraction of query words they contain.
type fakeSimilarityEngine struct {
	mu      sync.Mutex
	records map[string][]driven.SimilarityRecord
	loadErr map[string]error
	dropped []string
	indices []*fakeSimilarityIndex
}

func newFakeSimilarityEngine() *fakeSimilarityEngine {
	return &fakeSimilarityEngine{
		records: make(map[string][]driven.SimilarityRecord),
		loadErr: make(map[string]error),
	}
}

func simKey(docID string, coll driven.Collection) string {
	return docID + "/" + string(coll)
}

func (e *fakeSimilarityEngine) Build(_ context.Context, docID string, coll driven.Collection, records []driven.SimilarityRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records[simKey(docID, coll)] = append([]driven.SimilarityRecord(nil), records...)
	return nil
}

func (e *fakeSimilarityEngine) Load(_ context.Context, docID string, coll driven.Collection) (driven.SimilarityIndex, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := simKey(docID, coll)
	if err := e.loadErr[key]; err != nil {
		return nil, err
	}
	records, ok := e.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: no %s index for %s", domain.ErrMissingResource, coll, docID)
	}
	idx := &fakeSimilarityIndex{records: records}
	e.indices = append(e.indices, idx)
	return idx, nil
}

func (e *fakeSimilarityEngine) Drop(_ context.Context, docID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.records, simKey(docID, driven.CollectionChunks))
	delete(e.records, simKey(docID, driven.CollectionCaptions))
	e.dropped = append(e.dropped, docID)
	return nil
}

func (e *fakeSimilarityEngine) built(docID string, coll driven.Collection) []driven.SimilarityRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.records[simKey(docID, coll)]
}

type fakeSimilarityIndex struct {
	mu      sync.Mutex
	records []driven.SimilarityRecord
	closed  bool
}

func (i *fakeSimilarityIndex) QueryText(_ context.Context, text string, k int) ([]driven.SimilarityHit, error) {
	words := strings.Fields(strings.ToLower(text))
	var out []driven.SimilarityHit
	for _, r := range i.records {
		content := strings.ToLower(r.Text)
		matched := 0
		for _, w := range words {
			if strings.Contains(content, w) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		out = append(out, driven.SimilarityHit{
			ID: r.ID, Text: r.Text, Metadata: r.Metadata, Score: float64(matched) / float64(len(words)),
		})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (i *fakeSimilarityIndex) QueryVector(_ context.Context, _ []float32, _ int) ([]driven.SimilarityHit, error) {
	return nil, domain.ErrNotImplemented
}

func (i *fakeSimilarityIndex) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	return nil
}

func (i *fakeSimilarityIndex) isClosed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

// --- Uploader ---

type fakeUploader struct {
	mu      sync.Mutex
	uploads []string
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, name string, _ []byte, _ string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.uploads = append(u.uploads, name)
	return fmt.Sprintf("file_%03d", len(u.uploads)), nil
}

func (u *fakeUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.uploads)
}

// --- Blob store ---

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (s *fakeBlobStore) Put(_ context.Context, data []byte, hint string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uri := "blob://" + hint
	s.objects[uri] = append([]byte(nil), data...)
	return uri, nil
}

func (s *fakeBlobStore) Get(_ context.Context, uri string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[uri]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", uri, domain.ErrNotFound)
	}
	return data, nil
}

func (s *fakeBlobStore) Delete(_ context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, uri)
	return nil
}

func (s *fakeBlobStore) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for uri := range s.objects {
		if strings.HasPrefix(uri, "blob://"+prefix) {
			delete(s.objects, uri)
		}
	}
	return nil
}

func (s *fakeBlobStore) Exists(_ context.Context, uri string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[uri]
	return ok, nil
}

func (s *fakeBlobStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
