package query

import (
	"strings"

	"github.com/cratedex/cratedex/internal/graph"
	"github.com/cratedex/cratedex/internal/markdown"
)

// sectionOrder fixes the grouping of module children in rendered
// output. Kinds not listed land in the trailing Other bucket.
var sectionOrder = []struct {
	kind  graph.Kind
	title string
}{
	{graph.KindModule, "Modules"},
	{graph.KindStruct, "Structs"},
	{graph.KindEnum, "Enums"},
	{graph.KindUnion, "Unions"},
	{graph.KindTrait, "Traits"},
	{graph.KindFunction, "Functions"},
	{graph.KindTypeAlias, "Type Aliases"},
	{graph.KindConstant, "Constants"},
	{graph.KindStatic, "Statics"},
	{graph.KindMacro, "Macros"},
	{graph.KindProcMacro, "Proc Macros"},
	{graph.KindPrimitive, "Primitives"},
	{graph.KindImport, "Re-exports"},
}

// renderModule produces the module view: heading, the module's own
// docs, then direct children grouped by kind in a fixed order.
func renderModule(g *graph.Graph, id graph.ItemID) string {
	it := g.Item(id)
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(it.PathString())
	b.WriteString("\n\n**Kind:** module")
	if id == g.Root() && g.Version() != "" {
		b.WriteString("\n**Version:** ")
		b.WriteString(g.Version())
	}
	b.WriteString("\n")
	if docs := markdown.FlattenLinks(it.Docs); docs != "" {
		b.WriteString("\n")
		b.WriteString(docs)
		b.WriteString("\n")
	}

	grouped := make(map[graph.Kind][]graph.Item)
	var other []graph.Item
	known := make(map[graph.Kind]bool, len(sectionOrder))
	for _, s := range sectionOrder {
		known[s.kind] = true
	}
	for _, cid := range g.Children(id) {
		child := g.Item(cid)
		if known[child.Kind] {
			grouped[child.Kind] = append(grouped[child.Kind], child)
		} else {
			other = append(other, child)
		}
	}
	for _, s := range sectionOrder {
		writeListing(&b, s.title, grouped[s.kind])
	}
	writeListing(&b, "Other", other)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// renderItem produces the full documentation for one item. Modules get
// the module view; type items additionally list their members.
func renderItem(g *graph.Graph, id graph.ItemID) string {
	it := g.Item(id)
	if it.Kind == graph.KindModule {
		return renderModule(g, id)
	}

	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(it.PathString())
	b.WriteString("\n\n**Kind:** ")
	b.WriteString(string(it.Kind))
	b.WriteString("\n")
	if it.Signature != "" {
		b.WriteString("\n```rust\n")
		b.WriteString(it.Signature)
		b.WriteString("\n```\n")
	}
	if docs := markdown.FlattenLinks(it.Docs); docs != "" {
		b.WriteString("\n")
		b.WriteString(docs)
		b.WriteString("\n")
	}

	var fields, variants, methods, assoc []graph.Item
	for _, cid := range it.Children {
		child := g.Item(cid)
		switch child.Kind {
		case graph.KindField:
			fields = append(fields, child)
		case graph.KindVariant:
			variants = append(variants, child)
		case graph.KindMethod:
			methods = append(methods, child)
		case graph.KindAssocConst, graph.KindAssocType:
			assoc = append(assoc, child)
		}
	}
	writeMembers(&b, "Fields", fields)
	writeMembers(&b, "Variants", variants)
	writeMembers(&b, "Methods", methods)
	writeMembers(&b, "Associated Items", assoc)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// writeListing renders a grouped child section of a module view as a
// bullet list of path and summary.
func writeListing(b *strings.Builder, title string, items []graph.Item) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n## ")
	b.WriteString(title)
	b.WriteString("\n\n")
	for _, it := range items {
		b.WriteString("- `")
		b.WriteString(it.PathString())
		b.WriteString("`")
		if s := markdown.FirstSentence(it.Docs); s != "" {
			b.WriteString(": ")
			b.WriteString(s)
		}
		b.WriteString("\n")
	}
}

// writeMembers renders a member section of a type item: signature line
// plus the member's summary.
func writeMembers(b *strings.Builder, title string, items []graph.Item) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n## ")
	b.WriteString(title)
	b.WriteString("\n\n")
	for _, it := range items {
		sig := it.Signature
		if sig == "" {
			sig = it.Name()
		}
		b.WriteString("- `")
		b.WriteString(sig)
		b.WriteString("`")
		if s := markdown.FirstSentence(it.Docs); s != "" {
			b.WriteString(": ")
			b.WriteString(s)
		}
		b.WriteString("\n")
	}
}
