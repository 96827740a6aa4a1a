package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cratedex/cratedex/internal/rustdoc"
)

// typeName extracts a plain Rust type name from a rustdoc Type JSON value.
// crate may be nil; it is only consulted to recover names the JSON leaves
// empty. Cross-crate types render as bare names since their graphs may
// not have been requested yet.
func typeName(typeJSON json.RawMessage, crate *rustdoc.Crate) string {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(typeJSON, &outer); err != nil {
		return ""
	}

	if resolved, ok := outer["resolved_path"]; ok {
		return resolvedPathName(resolved, crate)
	}

	if prim, ok := outer["primitive"]; ok {
		var name string
		if json.Unmarshal(prim, &name) == nil {
			return name
		}
	}

	if g, ok := outer["generic"]; ok {
		var name string
		if json.Unmarshal(g, &name) == nil {
			return name
		}
	}

	if br, ok := outer["borrowed_ref"]; ok {
		var r struct {
			Lifetime  *string         `json:"lifetime"`
			IsMutable bool            `json:"is_mutable"`
			Type      json.RawMessage `json:"type"`
		}
		if json.Unmarshal(br, &r) != nil {
			return ""
		}
		inner := typeName(r.Type, crate)
		if inner == "" {
			return ""
		}
		prefix := "&"
		if r.Lifetime != nil && *r.Lifetime != "" {
			prefix += *r.Lifetime + " "
		}
		if r.IsMutable {
			prefix += "mut "
		}
		return prefix + inner
	}

	if sl, ok := outer["slice"]; ok {
		if inner := typeName(sl, crate); inner != "" {
			return "[" + inner + "]"
		}
	}

	if arr, ok := outer["array"]; ok {
		var a struct {
			Type json.RawMessage `json:"type"`
			Len  string          `json:"len"`
		}
		if json.Unmarshal(arr, &a) == nil {
			if inner := typeName(a.Type, crate); inner != "" {
				return fmt.Sprintf("[%s; %s]", inner, a.Len)
			}
		}
	}

	if rp, ok := outer["raw_pointer"]; ok {
		var r struct {
			IsMutable bool            `json:"is_mutable"`
			Type      json.RawMessage `json:"type"`
		}
		if json.Unmarshal(rp, &r) == nil {
			inner := typeName(r.Type, crate)
			if inner != "" {
				if r.IsMutable {
					return "*mut " + inner
				}
				return "*const " + inner
			}
		}
	}

	if tp, ok := outer["tuple"]; ok {
		var types []json.RawMessage
		if json.Unmarshal(tp, &types) == nil {
			parts := make([]string, 0, len(types))
			for _, t := range types {
				if name := typeName(t, crate); name != "" {
					parts = append(parts, name)
				}
			}
			return "(" + strings.Join(parts, ", ") + ")"
		}
	}

	if dt, ok := outer["dyn_trait"]; ok {
		return dynTraitName(dt)
	}

	if qp, ok := outer["qualified_path"]; ok {
		return qualifiedPathName(qp, crate)
	}

	if it, ok := outer["impl_trait"]; ok {
		return implTraitName(it)
	}

	return ""
}

func resolvedPathName(resolved json.RawMessage, crate *rustdoc.Crate) string {
	var rp struct {
		Name string           `json:"name"`
		Path string           `json:"path"`
		ID   int              `json:"id"`
		Args *json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal(resolved, &rp); err != nil {
		return ""
	}

	name := rp.Name
	if name == "" {
		name = rp.Path
	}
	// Name can be empty in rustdoc JSON; fall back to the paths table.
	if name == "" && crate != nil {
		if summary, ok := crate.SummaryByID(rp.ID); ok && len(summary.Path) > 0 {
			name = summary.Path[len(summary.Path)-1]
		}
	}
	if name == "" {
		return ""
	}

	if rp.Args != nil {
		if args := genericArgs(*rp.Args, crate); args != "" {
			name += args
		}
	}
	return name
}

func genericArgs(argsJSON json.RawMessage, crate *rustdoc.Crate) string {
	var args struct {
		AngleBracketed *struct {
			Args []json.RawMessage `json:"args"`
		} `json:"angle_bracketed"`
	}
	if json.Unmarshal(argsJSON, &args) != nil || args.AngleBracketed == nil {
		return ""
	}

	var parts []string
	for _, arg := range args.AngleBracketed.Args {
		var a map[string]json.RawMessage
		if json.Unmarshal(arg, &a) != nil {
			continue
		}
		if typeData, ok := a["type"]; ok {
			if t := typeName(typeData, crate); t != "" {
				parts = append(parts, t)
			}
		} else if lifetime, ok := a["lifetime"]; ok {
			var lt string
			if json.Unmarshal(lifetime, &lt) == nil {
				parts = append(parts, lt)
			}
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

func dynTraitName(dt json.RawMessage) string {
	var d struct {
		Traits []struct {
			Trait struct {
				Name string `json:"name"`
				Path string `json:"path"`
			} `json:"trait"`
		} `json:"traits"`
		Lifetime *string `json:"lifetime"`
	}
	if json.Unmarshal(dt, &d) != nil || len(d.Traits) == 0 {
		return ""
	}
	parts := make([]string, 0, len(d.Traits)+1)
	for _, t := range d.Traits {
		name := t.Trait.Name
		if name == "" {
			name = t.Trait.Path
		}
		parts = append(parts, name)
	}
	if d.Lifetime != nil && *d.Lifetime != "" {
		parts = append(parts, *d.Lifetime)
	}
	return "dyn " + strings.Join(parts, " + ")
}

func qualifiedPathName(qp json.RawMessage, crate *rustdoc.Crate) string {
	var q struct {
		Name     string          `json:"name"`
		SelfType json.RawMessage `json:"self_type"`
		Trait    *struct {
			Name string `json:"name"`
		} `json:"trait"`
	}
	if json.Unmarshal(qp, &q) != nil {
		return ""
	}
	selfType := typeName(q.SelfType, crate)
	if selfType == "" {
		return ""
	}
	if q.Trait != nil && q.Trait.Name != "" {
		return fmt.Sprintf("<%s as %s>::%s", selfType, q.Trait.Name, q.Name)
	}
	return fmt.Sprintf("%s::%s", selfType, q.Name)
}

func implTraitName(it json.RawMessage) string {
	var bounds []struct {
		TraitBound *struct {
			Trait struct {
				Name string `json:"name"`
				Path string `json:"path"`
			} `json:"trait"`
		} `json:"trait_bound"`
	}
	if json.Unmarshal(it, &bounds) != nil || len(bounds) == 0 {
		return ""
	}
	var parts []string
	for _, b := range bounds {
		if b.TraitBound == nil {
			continue
		}
		name := b.TraitBound.Trait.Name
		if name == "" {
			name = b.TraitBound.Trait.Path
		}
		if name != "" {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "impl " + strings.Join(parts, " + ")
}
