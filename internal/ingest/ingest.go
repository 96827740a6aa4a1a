// Package ingest converts raw rustdoc JSON into a normalized item graph.
// It resolves re-export chains to a fixed point, filters to public items,
// and preserves declaration order. Ingestion is all-or-nothing: either a
// complete graph is returned or an error, never a partial result.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cratedex/cratedex/internal/graph"
	"github.com/cratedex/cratedex/internal/rustdoc"
)

var (
	// ErrMalformedInput reports undecodable or internally inconsistent
	// rustdoc output.
	ErrMalformedInput = errors.New("malformed rustdoc input")
	// ErrUnsupportedVersion reports a rustdoc format_version outside the
	// supported range.
	ErrUnsupportedVersion = errors.New("unsupported rustdoc format version")
)

// Supported rustdoc JSON format_version range. The format gained the
// fields we rely on (paths table, structured visibility) around v26.
const (
	minFormatVersion = 26
	maxFormatVersion = 64
)

// maxReexportHops bounds re-export chain traversal. Chains longer than
// this (including cycles) are treated as aliases of whatever node the
// final hop lands on.
const maxReexportHops = 16

// Error tags an ingestion failure with the crate it was for.
type Error struct {
	Crate string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ingesting %s: %v", e.Crate, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Ingest parses rustdoc JSON bytes into a frozen item graph rooted at the
// crate module.
func Ingest(data []byte, crateName string) (*graph.Graph, error) {
	var crate rustdoc.Crate
	if err := json.Unmarshal(data, &crate); err != nil {
		return nil, &Error{crateName, fmt.Errorf("%w: %v", ErrMalformedInput, err)}
	}
	if crate.FormatVersion < minFormatVersion || crate.FormatVersion > maxFormatVersion {
		return nil, &Error{crateName, fmt.Errorf("%w: %d", ErrUnsupportedVersion, crate.FormatVersion)}
	}

	rootItem, ok := crate.ItemByID(crate.Root)
	if !ok {
		return nil, &Error{crateName, fmt.Errorf("%w: root item %d missing from index", ErrMalformedInput, crate.Root)}
	}

	version := ""
	if crate.CrateVersion != nil {
		version = *crate.CrateVersion
	}

	n := &normalizer{crate: &crate, b: graph.NewBuilder(crateName, version)}

	rootID, err := n.b.Add(graph.Item{
		Path:   []string{crateName},
		Kind:   graph.KindModule,
		Docs:   docsOf(rootItem),
		Parent: graph.NoItem,
		Public: true,
	})
	if err != nil {
		return nil, &Error{crateName, fmt.Errorf("%w: %v", ErrMalformedInput, err)}
	}
	n.b.SetRoot(rootID)

	modData := rootItem.InnerData("module")
	if modData == nil {
		return nil, &Error{crateName, fmt.Errorf("%w: root item is not a module", ErrMalformedInput)}
	}
	n.addModuleChildren(rootID, []string{crateName}, modData, map[int]bool{crate.Root: true})

	g, err := n.b.Build()
	if err != nil {
		return nil, &Error{crateName, fmt.Errorf("%w: %v", ErrMalformedInput, err)}
	}
	return g, nil
}

type normalizer struct {
	crate *rustdoc.Crate
	b     *graph.Builder
}

// addModuleChildren walks a raw module's item list in declaration order,
// adding each public child under the given path. visiting tracks raw IDs
// on the current expansion chain so glob re-exports cannot recurse into
// themselves.
func (n *normalizer) addModuleChildren(moduleID graph.ItemID, path []string, modData json.RawMessage, visiting map[int]bool) {
	var mod struct {
		Items []int `json:"items"`
	}
	if err := json.Unmarshal(modData, &mod); err != nil {
		return
	}

	for _, rawID := range mod.Items {
		child, ok := n.crate.ItemByID(rawID)
		if !ok {
			continue
		}

		if child.InnerKind() == "use" {
			if !child.IsPublic(false) {
				continue
			}
			n.addReexport(moduleID, path, child, visiting)
			continue
		}

		if !child.IsPublic(false) {
			continue
		}
		if child.Name == nil {
			continue // impls and other unnamed entries are reached via their owners
		}
		n.addItem(moduleID, append(path[:len(path):len(path)], *child.Name), rawID, child, visiting)
	}
}

// addReexport resolves a pub use to its definition and installs the item
// under its public-facing path. Chains are followed for at most
// maxReexportHops; a chain that never leaves "use" territory (a cycle)
// degrades to an opaque import alias rather than looping.
func (n *normalizer) addReexport(moduleID graph.ItemID, path []string, useItem *rustdoc.Item, visiting map[int]bool) {
	useData := useItem.InnerData("use")
	if useData == nil {
		return
	}
	var use struct {
		Name   string `json:"name"`
		ID     *int   `json:"id"`
		IsGlob bool   `json:"is_glob"`
	}
	if err := json.Unmarshal(useData, &use); err != nil || use.ID == nil {
		return
	}

	targetID := *use.ID
	var target *rustdoc.Item
	for hop := 0; hop < maxReexportHops; hop++ {
		item, ok := n.crate.ItemByID(targetID)
		if !ok {
			// Definition lives in another crate: record the alias with the
			// kind from the paths table. Doc text and signature stay with
			// the owning crate; resolving them is a query-time concern.
			n.addExternalAlias(moduleID, path, use.Name, targetID)
			return
		}
		if item.InnerKind() != "use" {
			target = item
			break
		}
		nested := item.InnerData("use")
		var next struct {
			ID *int `json:"id"`
		}
		if json.Unmarshal(nested, &next) != nil || next.ID == nil {
			return
		}
		target = item
		targetID = *next.ID
	}
	if target == nil {
		return
	}

	if target.InnerKind() == "use" {
		// Hop bound hit; the chain is cyclic. Keep the alias addressable.
		id, err := n.b.Add(graph.Item{
			Path:   append(path[:len(path):len(path)], use.Name),
			Kind:   graph.KindImport,
			Parent: moduleID,
			Public: true,
		})
		if err == nil {
			n.b.AddChild(moduleID, id)
		}
		return
	}

	if use.IsGlob {
		if target.InnerKind() != "module" || visiting[targetID] {
			return
		}
		modData := target.InnerData("module")
		if modData == nil {
			return
		}
		visiting[targetID] = true
		n.addModuleChildren(moduleID, path, modData, visiting)
		delete(visiting, targetID)
		return
	}

	n.addItem(moduleID, append(path[:len(path):len(path)], use.Name), targetID, target, visiting)
}

// addExternalAlias records a re-export whose definition is owned by a
// different crate. The canonical path is local; only the kind is known.
func (n *normalizer) addExternalAlias(moduleID graph.ItemID, path []string, name string, targetID int) {
	kind := graph.KindOpaque
	if summary, ok := n.crate.SummaryByID(targetID); ok {
		kind = mapKind(summary.Kind, false)
	}
	if name == "" {
		return
	}
	id, err := n.b.Add(graph.Item{
		Path:   append(path[:len(path):len(path)], name),
		Kind:   kind,
		Parent: moduleID,
		Public: true,
	})
	if err != nil {
		return
	}
	n.b.AddChild(moduleID, id)
}

// addItem installs one definition at the given canonical path and recurses
// into whatever it owns: module items, struct fields and methods, enum
// variants, trait members.
func (n *normalizer) addItem(moduleID graph.ItemID, path []string, rawID int, item *rustdoc.Item, visiting map[int]bool) {
	kind := mapKind(item.InnerKind(), false)
	id, err := n.b.Add(graph.Item{
		Path:      path,
		Kind:      kind,
		Signature: signature(item, kind, n.crate),
		Docs:      docsOf(item),
		Parent:    moduleID,
		Public:    true,
	})
	if err != nil {
		return // first declaration at this path wins
	}
	n.b.AddChild(moduleID, id)

	switch kind {
	case graph.KindModule:
		if visiting[rawID] {
			return
		}
		modData := item.InnerData("module")
		if modData == nil {
			return
		}
		visiting[rawID] = true
		n.addModuleChildren(id, path, modData, visiting)
		delete(visiting, rawID)

	case graph.KindStruct, graph.KindUnion:
		data := item.InnerData(item.InnerKind())
		n.addFields(moduleID, id, path, structFieldIDs(data))
		n.addImplMethods(moduleID, id, path, data)

	case graph.KindEnum:
		data := item.InnerData("enum")
		n.addVariants(moduleID, id, path, data)
		n.addImplMethods(moduleID, id, path, data)

	case graph.KindTrait:
		data := item.InnerData("trait")
		n.addTraitItems(moduleID, id, path, data)
	}
}

// addFields indexes a struct's named public fields at Type::field paths.
// Fields are back-reference children of the type; their parent module is
// the type's enclosing module.
func (n *normalizer) addFields(moduleID, owner graph.ItemID, path []string, fieldIDs []int) {
	for _, fid := range fieldIDs {
		field, ok := n.crate.ItemByID(fid)
		if !ok || field.Name == nil || !field.IsPublic(false) {
			continue
		}
		id, err := n.b.Add(graph.Item{
			Path:      append(path[:len(path):len(path)], *field.Name),
			Kind:      graph.KindField,
			Signature: fieldSignature(field),
			Docs:      docsOf(field),
			Parent:    moduleID,
			Public:    true,
		})
		if err != nil {
			continue
		}
		n.b.AddChild(owner, id)
	}
}

// addVariants indexes an enum's variants. Variants inherit the enum's
// visibility.
func (n *normalizer) addVariants(moduleID, owner graph.ItemID, path []string, enumData json.RawMessage) {
	var e struct {
		Variants []int `json:"variants"`
	}
	if enumData == nil || json.Unmarshal(enumData, &e) != nil {
		return
	}
	for _, vid := range e.Variants {
		variant, ok := n.crate.ItemByID(vid)
		if !ok || variant.Name == nil || !variant.IsPublic(true) {
			continue
		}
		id, err := n.b.Add(graph.Item{
			Path:      append(path[:len(path):len(path)], *variant.Name),
			Kind:      graph.KindVariant,
			Signature: variantSignature(variant),
			Docs:      docsOf(variant),
			Parent:    moduleID,
			Public:    true,
		})
		if err != nil {
			continue
		}
		n.b.AddChild(owner, id)
	}
}

// addImplMethods indexes methods from a type's impl blocks at Type::method
// paths. Trait-impl methods carry inherited visibility.
func (n *normalizer) addImplMethods(moduleID, owner graph.ItemID, path []string, typeData json.RawMessage) {
	var t struct {
		Impls []int `json:"impls"`
	}
	if typeData == nil || json.Unmarshal(typeData, &t) != nil {
		return
	}
	for _, implID := range t.Impls {
		implItem, ok := n.crate.ItemByID(implID)
		if !ok {
			continue
		}
		implData := implItem.InnerData("impl")
		if implData == nil {
			continue
		}
		var impl struct {
			Trait *json.RawMessage `json:"trait"`
			Items []int            `json:"items"`
		}
		if err := json.Unmarshal(implData, &impl); err != nil {
			continue
		}
		fromTrait := impl.Trait != nil
		for _, mid := range impl.Items {
			method, ok := n.crate.ItemByID(mid)
			if !ok || method.Name == nil || !method.IsPublic(fromTrait) {
				continue
			}
			kind := mapKind(method.InnerKind(), true)
			id, err := n.b.Add(graph.Item{
				Path:      append(path[:len(path):len(path)], *method.Name),
				Kind:      kind,
				Signature: signature(method, kind, n.crate),
				Docs:      docsOf(method),
				Parent:    moduleID,
				Public:    true,
			})
			if err != nil {
				continue // inherent impls shadow trait impls at the same path
			}
			n.b.AddChild(owner, id)
		}
	}
}

// addTraitItems indexes a trait's associated items.
func (n *normalizer) addTraitItems(moduleID, owner graph.ItemID, path []string, traitData json.RawMessage) {
	var t struct {
		Items []int `json:"items"`
	}
	if traitData == nil || json.Unmarshal(traitData, &t) != nil {
		return
	}
	for _, tid := range t.Items {
		member, ok := n.crate.ItemByID(tid)
		if !ok || member.Name == nil || !member.IsPublic(true) {
			continue
		}
		kind := mapKind(member.InnerKind(), true)
		id, err := n.b.Add(graph.Item{
			Path:      append(path[:len(path):len(path)], *member.Name),
			Kind:      kind,
			Signature: signature(member, kind, n.crate),
			Docs:      docsOf(member),
			Parent:    moduleID,
			Public:    true,
		})
		if err != nil {
			continue
		}
		n.b.AddChild(owner, id)
	}
}

func structFieldIDs(structData json.RawMessage) []int {
	var s struct {
		Kind json.RawMessage `json:"kind"`
	}
	if structData == nil || json.Unmarshal(structData, &s) != nil {
		return nil
	}
	var kind map[string]json.RawMessage
	if json.Unmarshal(s.Kind, &kind) != nil {
		return nil
	}
	plainData, ok := kind["plain"]
	if !ok {
		return nil
	}
	var plain struct {
		Fields []int `json:"fields"`
	}
	if json.Unmarshal(plainData, &plain) != nil {
		return nil
	}
	return plain.Fields
}

func docsOf(item *rustdoc.Item) string {
	if item.Docs == nil {
		return ""
	}
	return *item.Docs
}

// mapKind converts a rustdoc kind name to the graph's closed kind set.
// Functions inside impl blocks and traits become methods. Anything
// unrecognized maps to opaque, never dropped.
func mapKind(raw string, member bool) graph.Kind {
	switch raw {
	case "module":
		return graph.KindModule
	case "struct":
		return graph.KindStruct
	case "enum":
		return graph.KindEnum
	case "variant":
		return graph.KindVariant
	case "struct_field":
		return graph.KindField
	case "union":
		return graph.KindUnion
	case "trait":
		return graph.KindTrait
	case "trait_alias":
		return graph.KindTraitAlias
	case "function":
		if member {
			return graph.KindMethod
		}
		return graph.KindFunction
	case "type_alias":
		if member {
			return graph.KindAssocType
		}
		return graph.KindTypeAlias
	case "constant":
		if member {
			return graph.KindAssocConst
		}
		return graph.KindConstant
	case "assoc_const":
		return graph.KindAssocConst
	case "assoc_type":
		return graph.KindAssocType
	case "static":
		return graph.KindStatic
	case "macro":
		return graph.KindMacro
	case "proc_macro":
		return graph.KindProcMacro
	case "primitive":
		return graph.KindPrimitive
	case "use", "import":
		return graph.KindImport
	default:
		return graph.KindOpaque
	}
}
