// Package query answers documentation questions against built crate
// graphs: dependency listing, item listing, module views, full item
// docs, and fuzzy search.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cratedex/cratedex/internal/docgen"
	"github.com/cratedex/cratedex/internal/graph"
	"github.com/cratedex/cratedex/internal/index"
	"github.com/cratedex/cratedex/internal/manifest"
	"github.com/cratedex/cratedex/internal/markdown"
	"github.com/cratedex/cratedex/internal/store"
	"github.com/maypok86/otter"
)

var (
	// ErrNotFound means the crate was resolved but the requested path
	// does not name an item in it.
	ErrNotFound = errors.New("item not found")
	// ErrUnknownCrate means the named crate is not a dependency of the
	// active workspace.
	ErrUnknownCrate = errors.New("unknown crate")
)

// ItemSummary is one row of a crate or module item listing.
type ItemSummary struct {
	Path    string
	Kind    graph.Kind
	Summary string
}

// Engine executes queries. Rendered markdown for (crate fingerprint,
// path) pairs is memoized; graphs are immutable so entries never go
// stale within a fingerprint.
type Engine struct {
	manifest    *manifest.Manifest
	store       *store.Store
	gen         *docgen.Generator
	rendered    otter.Cache[string, string]
	searchLimit int
}

// New builds an engine over a loaded workspace manifest.
func New(m *manifest.Manifest, s *store.Store, gen *docgen.Generator, searchLimit int) (*Engine, error) {
	if searchLimit <= 0 {
		searchLimit = index.DefaultLimit
	}
	rendered, err := otter.MustBuilder[string, string](4096).Build()
	if err != nil {
		return nil, fmt.Errorf("build render cache: %w", err)
	}
	return &Engine{
		manifest:    m,
		store:       s,
		gen:         gen,
		rendered:    rendered,
		searchLimit: searchLimit,
	}, nil
}

// ListDeps returns every workspace dependency as "name@version", in
// manifest order.
func (e *Engine) ListDeps() []string {
	deps := e.manifest.Deps()
	out := make([]string, len(deps))
	for i, d := range deps {
		out[i] = d.String()
	}
	return out
}

// ListCrateItems returns the direct children of the crate root module,
// in declaration order. Nested items are reached through get_module and
// search.
func (e *Engine) ListCrateItems(ctx context.Context, crateName string) ([]ItemSummary, error) {
	c, err := e.crate(ctx, crateName)
	if err != nil {
		return nil, err
	}
	children := c.Graph.Children(c.Graph.Root())
	out := make([]ItemSummary, 0, len(children))
	for _, cid := range children {
		it := c.Graph.Item(cid)
		out = append(out, ItemSummary{
			Path:    it.PathString(),
			Kind:    it.Kind,
			Summary: markdown.FirstSentence(it.Docs),
		})
	}
	return out, nil
}

// GetModule renders the module view for a path: the module's own docs
// plus its direct children grouped by kind. An empty path means the
// crate root. A path that names a non-module item is not found here;
// the error points the caller at GetDocs.
func (e *Engine) GetModule(ctx context.Context, crateName, path string) (string, error) {
	c, err := e.crate(ctx, crateName)
	if err != nil {
		return "", err
	}
	id, ok := e.resolvePath(c, path)
	if !ok {
		return "", e.notFound(c, path)
	}
	if it := c.Graph.Item(id); it.Kind != graph.KindModule {
		return "", fmt.Errorf("%w: %q is a %s, not a module (use item docs instead)",
			ErrNotFound, it.PathString(), it.Kind)
	}
	return e.render(c, id, viewModule), nil
}

// GetDocs renders the full documentation for one item, including
// member sections for type items and the child listing for modules.
func (e *Engine) GetDocs(ctx context.Context, crateName, path string) (string, error) {
	c, err := e.crate(ctx, crateName)
	if err != nil {
		return "", err
	}
	id, ok := e.resolvePath(c, path)
	if !ok {
		return "", e.notFound(c, path)
	}
	return e.render(c, id, viewItem), nil
}

// SearchDocs runs a fuzzy search. With a crate name the search is
// scoped to that crate, building it if needed. Without one it spans
// every currently resident crate, so it never triggers generation.
func (e *Engine) SearchDocs(ctx context.Context, query, crateName string, limit int) ([]index.Match, error) {
	if limit <= 0 {
		limit = e.searchLimit
	}
	if crateName != "" {
		c, err := e.crate(ctx, crateName)
		if err != nil {
			return nil, err
		}
		return c.Index.Search(query, limit), nil
	}
	var matches []index.Match
	for _, c := range e.store.Resident() {
		matches = append(matches, c.Index.Collect(query)...)
	}
	return index.Rank(matches, limit), nil
}

// crate resolves a dependency name and returns its built graph and
// index, generating and ingesting on first use.
func (e *Engine) crate(ctx context.Context, name string) (*store.Crate, error) {
	dep, ok := e.manifest.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownCrate, name, strings.Join(e.ListDeps(), ", "))
	}
	return e.store.GetOrBuild(ctx, dep, func(ctx context.Context) ([]byte, error) {
		return e.gen.Generate(ctx, dep)
	})
}

// resolvePath maps a request path to an item. Paths may or may not
// carry the crate-name prefix; an empty path means the crate root.
func (e *Engine) resolvePath(c *store.Crate, path string) (graph.ItemID, bool) {
	path = strings.TrimSpace(path)
	if path == "" || path == c.Graph.Crate() {
		return c.Graph.Root(), true
	}
	if id, ok := c.Graph.Lookup(path); ok {
		return id, true
	}
	if !strings.HasPrefix(path, c.Graph.Crate()+"::") {
		if id, ok := c.Graph.Lookup(c.Graph.Crate() + "::" + path); ok {
			return id, true
		}
	}
	return graph.NoItem, false
}

// notFound builds a not-found error carrying nearby paths as
// suggestions, so a typo'd request is self-correcting.
func (e *Engine) notFound(c *store.Crate, path string) error {
	matches := c.Index.Search(path, 5)
	if len(matches) == 0 {
		return fmt.Errorf("%w: %q in crate %s", ErrNotFound, path, c.Graph.Crate())
	}
	suggestions := make([]string, len(matches))
	for i, m := range matches {
		suggestions[i] = m.Path
	}
	sort.Strings(suggestions)
	return fmt.Errorf("%w: %q in crate %s (similar: %s)",
		ErrNotFound, path, c.Graph.Crate(), strings.Join(suggestions, ", "))
}

const (
	viewModule = "module"
	viewItem   = "item"
)

// render memoizes a rendered view per (fingerprint, view, path).
func (e *Engine) render(c *store.Crate, id graph.ItemID, view string) string {
	it := c.Graph.Item(id)
	key := c.Dep.Fingerprint() + "\x00" + view + "\x00" + it.PathString()
	if doc, ok := e.rendered.Get(key); ok {
		return doc
	}
	var doc string
	switch view {
	case viewModule:
		doc = renderModule(c.Graph, id)
	default:
		doc = renderItem(c.Graph, id)
	}
	e.rendered.Set(key, doc)
	return doc
}
