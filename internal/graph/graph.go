// Package graph holds the normalized in-memory representation of one
// crate's documentation: an arena of items addressed by dense IDs, plus an
// exact-path lookup. A graph is built once by the normalizer and is
// immutable afterwards.
package graph

import (
	"fmt"
	"strings"
)

// ItemID addresses an item within a single graph instance. IDs are dense
// arena offsets and are not stable across regenerations; canonical paths
// are the stable external identity.
type ItemID int

// NoItem is the null ItemID, used for the root's parent.
const NoItem ItemID = -1

// Kind is the closed set of documented entity categories. Anything the
// normalizer does not recognize maps to KindOpaque rather than being
// dropped.
type Kind string

const (
	KindModule     Kind = "module"
	KindStruct     Kind = "struct"
	KindEnum       Kind = "enum"
	KindVariant    Kind = "variant"
	KindField      Kind = "field"
	KindUnion      Kind = "union"
	KindTrait      Kind = "trait"
	KindTraitAlias Kind = "trait_alias"
	KindFunction   Kind = "function"
	KindMethod     Kind = "method"
	KindTypeAlias  Kind = "type_alias"
	KindConstant   Kind = "constant"
	KindStatic     Kind = "static"
	KindMacro      Kind = "macro"
	KindProcMacro  Kind = "proc_macro"
	KindPrimitive  Kind = "primitive"
	KindAssocConst Kind = "assoc_const"
	KindAssocType  Kind = "assoc_type"
	KindImport     Kind = "import"
	KindOpaque     Kind = "opaque"
)

// Item is one documented entity. Children are ordered as declared in
// source; for type items they include fields/variants/methods, which are
// back-references rather than module-tree ownership. Parent always points
// at the enclosing module.
type Item struct {
	ID        ItemID
	Path      []string
	Kind      Kind
	Signature string
	Docs      string
	Parent    ItemID
	Children  []ItemID
	Public    bool
}

// PathString returns the canonical "a::b::c" form of the item's path.
func (it *Item) PathString() string {
	return strings.Join(it.Path, "::")
}

// Name returns the last path segment.
func (it *Item) Name() string {
	if len(it.Path) == 0 {
		return ""
	}
	return it.Path[len(it.Path)-1]
}

// Graph is the complete item set for one crate. Built exclusively through
// a Builder; all methods on a built graph are read-only.
type Graph struct {
	crate   string
	version string
	root    ItemID
	items   []Item
	byPath  map[string]ItemID
}

// Crate returns the crate name (the first segment of every path).
func (g *Graph) Crate() string { return g.crate }

// Version returns the documented crate version, if known.
func (g *Graph) Version() string { return g.version }

// Root returns the crate root module's ID.
func (g *Graph) Root() ItemID { return g.root }

// Len returns the number of items in the graph.
func (g *Graph) Len() int { return len(g.items) }

// Item returns the item for an ID. IDs outside the arena are a programming
// error and panic; they can only come from a different graph instance.
func (g *Graph) Item(id ItemID) Item {
	if id < 0 || int(id) >= len(g.items) {
		panic(fmt.Sprintf("graph: item id %d out of range (crate %s, %d items)", id, g.crate, len(g.items)))
	}
	return g.items[id]
}

// Lookup resolves a canonical path with exact matching only.
func (g *Graph) Lookup(path string) (ItemID, bool) {
	id, ok := g.byPath[path]
	return id, ok
}

// Children returns the ordered child IDs of an item.
func (g *Graph) Children(id ItemID) []ItemID {
	return g.Item(id).Children
}

// Parent returns the enclosing module of an item, or false for the root.
func (g *Graph) Parent(id ItemID) (ItemID, bool) {
	p := g.Item(id).Parent
	if p == NoItem {
		return NoItem, false
	}
	return p, true
}

// Walk calls fn for every item in arena order.
func (g *Graph) Walk(fn func(Item)) {
	for _, it := range g.items {
		fn(it)
	}
}

// Builder accumulates items during ingestion. Build validates and freezes
// the result; the builder must not be reused afterwards.
type Builder struct {
	g *Graph
}

// NewBuilder starts an empty graph for the named crate.
func NewBuilder(crate, version string) *Builder {
	return &Builder{g: &Graph{
		crate:   crate,
		version: version,
		root:    NoItem,
		byPath:  make(map[string]ItemID),
	}}
}

// Add appends an item to the arena and indexes its path. The item's ID and
// Children are assigned by the builder; duplicate paths are rejected so
// callers can treat the first declaration as canonical.
func (b *Builder) Add(item Item) (ItemID, error) {
	path := item.PathString()
	if path == "" {
		return NoItem, fmt.Errorf("graph: empty path")
	}
	if _, exists := b.g.byPath[path]; exists {
		return NoItem, fmt.Errorf("graph: duplicate path %q", path)
	}
	id := ItemID(len(b.g.items))
	item.ID = id
	item.Children = nil
	b.g.items = append(b.g.items, item)
	b.g.byPath[path] = id
	return id, nil
}

// Contains reports whether a path is already present.
func (b *Builder) Contains(path string) bool {
	_, ok := b.g.byPath[path]
	return ok
}

// AddChild appends a child reference in declaration order.
func (b *Builder) AddChild(parent, child ItemID) {
	b.g.items[parent].Children = append(b.g.items[parent].Children, child)
}

// SetRoot marks the crate root module.
func (b *Builder) SetRoot(id ItemID) {
	b.g.root = id
}

// Build validates structural invariants and returns the frozen graph: a
// root must be set, and every non-root parent reference must name a module
// inside the arena.
func (b *Builder) Build() (*Graph, error) {
	g := b.g
	b.g = nil
	if g.root == NoItem {
		return nil, fmt.Errorf("graph: no root item")
	}
	for _, it := range g.items {
		if it.ID == g.root {
			continue
		}
		if it.Parent < 0 || int(it.Parent) >= len(g.items) {
			return nil, fmt.Errorf("graph: item %q has dangling parent %d", it.PathString(), it.Parent)
		}
		if g.items[it.Parent].Kind != KindModule {
			return nil, fmt.Errorf("graph: item %q has non-module parent %q", it.PathString(), g.items[it.Parent].PathString())
		}
	}
	return g, nil
}
