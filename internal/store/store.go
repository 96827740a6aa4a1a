// Package store owns one built crate per fingerprint. It serves cached
// graphs, deduplicates concurrent builds, bounds how many external
// generator invocations run at once, and evicts least-recently-used
// crates beyond a configured resident count. Evicted crates keep their
// on-disk byte cache and rebuild without re-invoking the generator.
package store

import (
	"container/list"
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/cratedex/cratedex/internal/graph"
	"github.com/cratedex/cratedex/internal/index"
	"github.com/cratedex/cratedex/internal/ingest"
	"github.com/cratedex/cratedex/internal/manifest"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Loader produces raw rustdoc JSON bytes for a crate on demand. It is the
// slow external step the cache exists to amortize.
type Loader func(ctx context.Context) ([]byte, error)

// Crate is one fully built, immutable unit: the item graph plus its
// derived search index. Lifecycle of the index is tied to the graph.
type Crate struct {
	Dep   manifest.Dep
	Graph *graph.Graph
	Index *index.Index
}

type residentEntry struct {
	key   string
	crate *Crate
}

// Store is the sole shared mutable resource; everything it hands out is
// immutable once built.
type Store struct {
	baseCtx     context.Context
	dir         string
	maxResident int
	builds      *semaphore.Weighted
	group       singleflight.Group

	mu       sync.Mutex
	resident map[string]*list.Element
	lru      *list.List // front = most recently used
}

// New creates a store. baseCtx scopes in-flight builds to process
// lifetime: a departing caller never cancels a shared build, but process
// shutdown kills any in-flight generator subprocess.
func New(baseCtx context.Context, dir string, maxResident, maxConcurrentBuilds int) *Store {
	if maxResident <= 0 {
		maxResident = 8
	}
	if maxConcurrentBuilds <= 0 {
		maxConcurrentBuilds = 2
	}
	return &Store{
		baseCtx:     baseCtx,
		dir:         dir,
		maxResident: maxResident,
		builds:      semaphore.NewWeighted(int64(maxConcurrentBuilds)),
		resident:    make(map[string]*list.Element),
		lru:         list.New(),
	}
}

// GetOrBuild returns the built crate for a fingerprint, building it at
// most once per fingerprint no matter how many callers race. All
// concurrent callers for the same fingerprint observe the single build's
// outcome, success or failure. ctx only bounds this caller's wait; a
// started build always runs to completion because other waiters may
// depend on it.
func (s *Store) GetOrBuild(ctx context.Context, dep manifest.Dep, loader Loader) (*Crate, error) {
	key := dep.Fingerprint()
	if c, ok := s.lookup(key); ok {
		return c, nil
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		if c, ok := s.lookup(key); ok {
			return c, nil
		}
		return s.build(dep, loader)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Crate), nil
	}
}

// build loads raw bytes (disk cache first, then the loader), ingests,
// indexes, and installs atomically. Nothing is installed on failure.
func (s *Store) build(dep manifest.Dep, loader Loader) (*Crate, error) {
	data, fromDisk, err := s.loadRaw(dep, loader)
	if err != nil {
		return nil, err
	}

	g, err := ingest.Ingest(data, dep.LibName())
	if err != nil && fromDisk {
		// Cached bytes are never trusted blindly: if they no longer
		// ingest (format drift, truncation), drop them and regenerate.
		slog.Warn("byte cache invalid, regenerating", "crate", dep.String(), "error", err)
		s.dropBytes(dep)
		data, _, err = s.loadRaw(dep, loader)
		if err != nil {
			return nil, err
		}
		g, err = ingest.Ingest(data, dep.LibName())
	}
	if err != nil {
		return nil, err
	}

	c := &Crate{Dep: dep, Graph: g, Index: index.Build(g)}
	s.install(dep.Fingerprint(), c)
	slog.Info("crate built", "crate", dep.String(), "items", g.Len())
	return c, nil
}

// loadRaw returns raw rustdoc bytes for a dependency, preferring the
// on-disk byte cache. Loader invocations are bounded by the concurrent
// build limit and run on the store's base context.
func (s *Store) loadRaw(dep manifest.Dep, loader Loader) (data []byte, fromDisk bool, err error) {
	data, err = s.loadBytes(dep)
	if err == nil {
		slog.Debug("byte cache hit", "crate", dep.String())
		return data, true, nil
	}
	if !os.IsNotExist(err) {
		slog.Warn("byte cache read failed", "crate", dep.String(), "error", err)
	}

	if err := s.builds.Acquire(s.baseCtx, 1); err != nil {
		return nil, false, err
	}
	data, err = loader(s.baseCtx)
	s.builds.Release(1)
	if err != nil {
		return nil, false, err
	}

	if err := s.saveBytes(dep, data); err != nil {
		slog.Warn("byte cache write failed", "crate", dep.String(), "error", err)
	}
	return data, false, nil
}

// lookup returns a resident crate and marks it most recently used.
func (s *Store) lookup(key string) (*Crate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	elem, ok := s.resident[key]
	if !ok {
		return nil, false
	}
	s.lru.MoveToFront(elem)
	return elem.Value.(*residentEntry).crate, true
}

// install adds a built crate and evicts beyond the resident bound.
// Eviction drops the graph and search entries from memory only; the
// byte cache stays for a fast rebuild.
func (s *Store) install(key string, c *Crate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.resident[key]; ok {
		elem.Value.(*residentEntry).crate = c
		s.lru.MoveToFront(elem)
		return
	}
	s.resident[key] = s.lru.PushFront(&residentEntry{key: key, crate: c})
	for s.lru.Len() > s.maxResident {
		oldest := s.lru.Back()
		entry := oldest.Value.(*residentEntry)
		s.lru.Remove(oldest)
		delete(s.resident, entry.key)
		slog.Info("crate evicted", "crate", entry.crate.Dep.String())
	}
}

// Resident returns a snapshot of currently resident crates in
// most-recently-used order.
func (s *Store) Resident() []*Crate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Crate, 0, s.lru.Len())
	for elem := s.lru.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(*residentEntry).crate)
	}
	return out
}
