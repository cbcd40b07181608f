package services

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

// DefaultMaxSessions is the number of document bundles kept open.
const DefaultMaxSessions = 3

// BundleState describes a document's presence in the registry.
type BundleState string

// Bundle states.
const (
	BundleAbsent  BundleState = "absent"
	BundleLoading BundleState = "loading"
	BundleReady   BundleState = "ready"
)

// LexicalHandle is an optional lexical index handle.
type LexicalHandle struct {
	Index  driven.LexicalIndex
	Loaded bool
}

// SimilarityHandle is an optional similarity index handle.
type SimilarityHandle struct {
	Index  driven.SimilarityIndex
	Loaded bool
}

// Bundle is the set of per-document handles cached and evicted together.
// Readers hold RLock for the duration of a query; index builds and
// eviction take the write lock.
type Bundle struct {
	DocumentID string
	Lexical    LexicalHandle
	Chunks     SimilarityHandle
	Captions   SimilarityHandle
	Store      driven.ChunkStore

	mu     sync.RWMutex
	closed bool
}

// RLock acquires shared read access.
func (b *Bundle) RLock() { b.mu.RLock() }

// RUnlock releases shared read access.
func (b *Bundle) RUnlock() { b.mu.RUnlock() }

// Lock acquires exclusive access.
func (b *Bundle) Lock() { b.mu.Lock() }

// Unlock releases exclusive access.
func (b *Bundle) Unlock() { b.mu.Unlock() }

// Closed reports whether the handles were released. Callers must hold a lock.
func (b *Bundle) Closed() bool { return b.closed }

// release closes every loaded handle. Caller must hold the write lock.
func (b *Bundle) release() {
	if b.closed {
		return
	}
	b.closed = true
	if b.Lexical.Loaded {
		if err := b.Lexical.Index.Close(); err != nil {
			logger.Warn("close lexical index for %s: %v", b.DocumentID, err)
		}
	}
	for _, h := range []SimilarityHandle{b.Chunks, b.Captions} {
		if !h.Loaded {
			continue
		}
		if err := h.Index.Close(); err != nil {
			logger.Warn("close similarity index for %s: %v", b.DocumentID, err)
		}
	}
}

// Registry is a bounded LRU cache of document bundles plus the active
// document pointer. It is safe for concurrent use.
type Registry struct {
	lexical    driven.LexicalEngine
	similarity driven.SimilarityEngine
	chunks     driven.ChunkStore
	max        int

	mu      sync.Mutex
	order   *list.List // front is most recently used
	entries map[string]*list.Element
	loading map[string]int
	docLock map[string]*sync.RWMutex
	active  string

	group singleflight.Group
}

// NewRegistry creates a registry holding at most maxSessions bundles.
// Values below 1 fall back to DefaultMaxSessions.
func NewRegistry(
	lexical driven.LexicalEngine,
	similarity driven.SimilarityEngine,
	chunks driven.ChunkStore,
	maxSessions int,
) *Registry {
	if maxSessions < 1 {
		maxSessions = DefaultMaxSessions
	}
	return &Registry{
		lexical:    lexical,
		similarity: similarity,
		chunks:     chunks,
		max:        maxSessions,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
		loading:    make(map[string]int),
		docLock:    make(map[string]*sync.RWMutex),
	}
}

// MaxSessions returns the cache capacity.
func (r *Registry) MaxSessions() int {
	return r.max
}

// Ensure returns the bundle for docID, opening it on a cache miss.
// Concurrent misses for the same document share one load.
// A missing index leaves its handle unloaded; any other open failure is
// returned and nothing is cached.
func (r *Registry) Ensure(ctx context.Context, docID string) (*Bundle, error) {
	if b, ok := r.lookup(docID); ok {
		return b, nil
	}

	v, err, _ := r.group.Do(docID, func() (any, error) {
		if b, ok := r.lookup(docID); ok {
			return b, nil
		}

		r.mu.Lock()
		r.loading[docID]++
		lock := r.documentLock(docID)
		r.mu.Unlock()

		// Held until the bundle is cached so a build cannot slip in between.
		lock.RLock()
		b, err := r.open(ctx, docID)

		r.mu.Lock()
		if r.loading[docID]--; r.loading[docID] <= 0 {
			delete(r.loading, docID)
		}
		if err != nil {
			r.mu.Unlock()
			lock.RUnlock()
			return nil, err
		}
		evicted := r.insertLocked(b)
		r.mu.Unlock()
		lock.RUnlock()

		for _, e := range evicted {
			logger.Debug("Evicting resources for document %s", e.DocumentID)
			r.close(e)
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Bundle), nil
}

// Acquire ensures docID and returns its bundle read-locked. The release
// function must be called when the caller is done with the handles.
// A bundle evicted between lookup and locking is reopened.
func (r *Registry) Acquire(ctx context.Context, docID string) (*Bundle, func(), error) {
	for {
		b, err := r.Ensure(ctx, docID)
		if err != nil {
			return nil, nil, err
		}
		b.RLock()
		if !b.closed {
			return b, b.RUnlock, nil
		}
		b.RUnlock()
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
	}
}

// WithExclusive runs fn while no reader holds docID's handles and no
// load of docID is in flight. The cached bundle, if any, is invalidated
// so the next Ensure opens fresh handles.
func (r *Registry) WithExclusive(ctx context.Context, docID string, fn func(context.Context) error) error {
	r.mu.Lock()
	lock := r.documentLock(docID)
	r.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	r.Invalidate(docID)
	return fn(ctx)
}

// Invalidate drops docID from the cache and releases its handles once
// in-flight reads finish. The active pointer is untouched.
func (r *Registry) Invalidate(docID string) {
	r.mu.Lock()
	el, ok := r.entries[docID]
	if ok {
		r.order.Remove(el)
		delete(r.entries, docID)
	}
	r.mu.Unlock()

	if ok {
		r.close(el.Value.(*Bundle))
	}
}

// Clear releases every bundle and unsets the active document.
func (r *Registry) Clear() {
	r.mu.Lock()
	bundles := make([]*Bundle, 0, r.order.Len())
	for el := r.order.Front(); el != nil; el = el.Next() {
		bundles = append(bundles, el.Value.(*Bundle))
	}
	r.order.Init()
	r.entries = make(map[string]*list.Element)
	r.active = ""
	r.mu.Unlock()

	for _, b := range bundles {
		r.close(b)
	}
}

// Len returns the number of cached bundles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}

// Contains reports whether docID is cached without touching LRU order.
func (r *Registry) Contains(docID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[docID]
	return ok
}

// Documents returns cached document ids, most recently used first.
func (r *Registry) Documents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, r.order.Len())
	for el := r.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*Bundle).DocumentID)
	}
	return out
}

// State reports whether docID is cached, being loaded, or neither.
func (r *Registry) State(docID string) BundleState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[docID]; ok {
		return BundleReady
	}
	if r.loading[docID] > 0 {
		return BundleLoading
	}
	return BundleAbsent
}

// SetActive makes docID the active document. An empty id clears it.
// The bundle itself is created lazily by Ensure.
func (r *Registry) SetActive(docID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = docID
}

// Active returns the active document id, if any.
func (r *Registry) Active() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.active != ""
}

// RequireActive returns the active document id or ErrNoActiveDocument.
func (r *Registry) RequireActive() (string, error) {
	id, ok := r.Active()
	if !ok {
		return "", domain.ErrNoActiveDocument
	}
	return id, nil
}

// lookup returns a cached bundle and marks it most recently used.
func (r *Registry) lookup(docID string) (*Bundle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.entries[docID]
	if !ok {
		return nil, false
	}
	r.order.MoveToFront(el)
	return el.Value.(*Bundle), true
}

// insertLocked evicts least recently used bundles until there is room
// and adds b at the front. Caller must hold r.mu.
func (r *Registry) insertLocked(b *Bundle) []*Bundle {
	var evicted []*Bundle
	for r.order.Len() >= r.max {
		back := r.order.Back()
		if back == nil {
			break
		}
		victim := back.Value.(*Bundle)
		r.order.Remove(back)
		delete(r.entries, victim.DocumentID)
		evicted = append(evicted, victim)
	}
	r.entries[b.DocumentID] = r.order.PushFront(b)
	return evicted
}

// documentLock returns the lock serialising loads and builds of docID.
// Caller must hold r.mu.
func (r *Registry) documentLock(docID string) *sync.RWMutex {
	lock, ok := r.docLock[docID]
	if !ok {
		lock = &sync.RWMutex{}
		r.docLock[docID] = lock
	}
	return lock
}

// close waits for readers and releases the bundle's handles.
func (r *Registry) close(b *Bundle) {
	b.Lock()
	defer b.Unlock()
	b.release()
}

// open loads every handle of a document.
func (r *Registry) open(ctx context.Context, docID string) (*Bundle, error) {
	logger.Debug("Opening resources for document %s", docID)
	b := &Bundle{DocumentID: docID, Store: r.chunks}

	lex, err := r.lexical.Open(ctx, docID)
	switch {
	case err == nil:
		b.Lexical = LexicalHandle{Index: lex, Loaded: true}
	case errors.Is(err, domain.ErrMissingResource):
		logger.Warn("lexical index for %s not built: %v", docID, err)
	default:
		return nil, fmt.Errorf("open lexical index for %s: %w", docID, err)
	}

	for _, target := range []struct {
		coll   driven.Collection
		handle *SimilarityHandle
	}{
		{driven.CollectionChunks, &b.Chunks},
		{driven.CollectionCaptions, &b.Captions},
	} {
		idx, err := r.similarity.Load(ctx, docID, target.coll)
		switch {
		case err == nil:
			*target.handle = SimilarityHandle{Index: idx, Loaded: true}
		case errors.Is(err, domain.ErrMissingResource):
			logger.Warn("%s similarity index for %s not built: %v", target.coll, docID, err)
		default:
			b.release()
			return nil, fmt.Errorf("load %s similarity index for %s: %w", target.coll, docID, err)
		}
	}

	return b, nil
}
