package ingest

import (
	"encoding/json"
	"strings"

	"github.com/cratedex/cratedex/internal/graph"
	"github.com/cratedex/cratedex/internal/rustdoc"
)

// signature renders a plain-text Rust signature for an item based on its
// kind. Type names that resolve to other crates are rendered as bare path
// text, never links.
func signature(item *rustdoc.Item, kind graph.Kind, crate *rustdoc.Crate) string {
	name := ""
	if item.Name != nil {
		name = *item.Name
	}

	switch kind {
	case graph.KindFunction, graph.KindMethod:
		return fnSignature(name, item.InnerData("function"), crate)
	case graph.KindStruct:
		return structSignature(name, item.InnerData("struct"))
	case graph.KindUnion:
		return "union " + name + " { ... }"
	case graph.KindEnum:
		return "enum " + name
	case graph.KindTrait:
		return "trait " + name
	case graph.KindTypeAlias, graph.KindAssocType:
		return typeAliasSignature(name, item.InnerData("type_alias"), crate)
	case graph.KindConstant, graph.KindAssocConst:
		return constSignature("const", name, item.InnerData("constant"), crate)
	case graph.KindStatic:
		return constSignature("static", name, item.InnerData("static"), crate)
	case graph.KindMacro:
		return name + "!"
	default:
		return ""
	}
}

// fnSignature builds "fn name<T>(a: A, b: B) -> R" from structured rustdoc
// JSON, rendering self parameters with Rust shorthand.
func fnSignature(name string, fnData json.RawMessage, crate *rustdoc.Crate) string {
	if fnData == nil {
		return ""
	}
	var fn struct {
		Sig struct {
			Inputs []json.RawMessage `json:"inputs"`
			Output json.RawMessage   `json:"output"`
		} `json:"sig"`
		Generics struct {
			Params []struct {
				Name string          `json:"name"`
				Kind json.RawMessage `json:"kind"`
			} `json:"params"`
		} `json:"generics"`
		Header struct {
			IsConst  bool `json:"is_const"`
			IsUnsafe bool `json:"is_unsafe"`
			IsAsync  bool `json:"is_async"`
		} `json:"header"`
	}
	if err := json.Unmarshal(fnData, &fn); err != nil {
		return ""
	}

	var b strings.Builder
	if fn.Header.IsConst {
		b.WriteString("const ")
	}
	if fn.Header.IsUnsafe {
		b.WriteString("unsafe ")
	}
	if fn.Header.IsAsync {
		b.WriteString("async ")
	}
	b.WriteString("fn ")
	b.WriteString(name)

	var genericNames []string
	for _, p := range fn.Generics.Params {
		if p.Name != "" && !strings.HasPrefix(p.Name, "impl ") {
			genericNames = append(genericNames, p.Name)
		}
	}
	if len(genericNames) > 0 {
		b.WriteString("<")
		b.WriteString(strings.Join(genericNames, ", "))
		b.WriteString(">")
	}

	b.WriteString("(")
	var params []string
	for _, input := range fn.Sig.Inputs {
		var pair []json.RawMessage
		if err := json.Unmarshal(input, &pair); err != nil || len(pair) < 2 {
			continue
		}
		var paramName string
		json.Unmarshal(pair[0], &paramName)
		if paramName == "self" {
			params = append(params, selfShorthand(pair[1]))
			continue
		}
		params = append(params, paramName+": "+typeName(pair[1], crate))
	}
	b.WriteString(strings.Join(params, ", "))
	b.WriteString(")")

	if len(fn.Sig.Output) > 0 && string(fn.Sig.Output) != "null" {
		if ret := typeName(fn.Sig.Output, crate); ret != "" {
			b.WriteString(" -> ")
			b.WriteString(ret)
		}
	}
	return b.String()
}

// selfShorthand converts a rustdoc self-parameter type to Rust shorthand:
// {"generic": "Self"} → "self", a borrowed_ref wrapper → "&self" / "&mut self".
func selfShorthand(typeJSON json.RawMessage) string {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(typeJSON, &outer); err != nil {
		return "self"
	}
	if _, ok := outer["generic"]; ok {
		return "self"
	}
	if br, ok := outer["borrowed_ref"]; ok {
		var r struct {
			Lifetime  *string `json:"lifetime"`
			IsMutable bool    `json:"is_mutable"`
		}
		json.Unmarshal(br, &r)
		prefix := "&"
		if r.Lifetime != nil && *r.Lifetime != "" {
			prefix += *r.Lifetime + " "
		}
		if r.IsMutable {
			prefix += "mut "
		}
		return prefix + "self"
	}
	return "self"
}

func structSignature(name string, structData json.RawMessage) string {
	def := "struct " + name
	var s struct {
		Kind json.RawMessage `json:"kind"`
	}
	if structData == nil || json.Unmarshal(structData, &s) != nil {
		return def
	}
	var kindStr string
	if json.Unmarshal(s.Kind, &kindStr) == nil && kindStr == "unit" {
		return def + ";"
	}
	var kindObj map[string]json.RawMessage
	if json.Unmarshal(s.Kind, &kindObj) == nil {
		if _, ok := kindObj["tuple"]; ok {
			return def + "(/* ... */);"
		}
	}
	return def + " { ... }"
}

func typeAliasSignature(name string, data json.RawMessage, crate *rustdoc.Crate) string {
	def := "type " + name
	if data == nil {
		return def
	}
	var t struct {
		Type json.RawMessage `json:"type"`
	}
	if json.Unmarshal(data, &t) != nil || len(t.Type) == 0 {
		return def
	}
	if target := typeName(t.Type, crate); target != "" {
		return def + " = " + target
	}
	return def
}

func constSignature(keyword, name string, data json.RawMessage, crate *rustdoc.Crate) string {
	def := keyword + " " + name
	if data == nil {
		return def
	}
	var c struct {
		Type json.RawMessage `json:"type"`
	}
	if json.Unmarshal(data, &c) != nil || len(c.Type) == 0 {
		return def
	}
	if t := typeName(c.Type, crate); t != "" {
		return def + ": " + t
	}
	return def
}

// fieldSignature renders "name: Type" for a struct field, whose inner
// payload is the field's type directly.
func fieldSignature(field *rustdoc.Item) string {
	name := ""
	if field.Name != nil {
		name = *field.Name
	}
	data := field.InnerData("struct_field")
	if data == nil {
		return name
	}
	if t := typeName(data, nil); t != "" {
		return name + ": " + t
	}
	return name
}

// variantSignature renders the variant name with a payload hint.
func variantSignature(variant *rustdoc.Item) string {
	name := ""
	if variant.Name != nil {
		name = *variant.Name
	}
	data := variant.InnerData("variant")
	if data == nil {
		return name
	}
	var v struct {
		Kind json.RawMessage `json:"kind"`
	}
	if json.Unmarshal(data, &v) != nil {
		return name
	}
	var kindObj map[string]json.RawMessage
	if json.Unmarshal(v.Kind, &kindObj) == nil {
		if _, ok := kindObj["tuple"]; ok {
			return name + "(...)"
		}
		if _, ok := kindObj["struct"]; ok {
			return name + " { ... }"
		}
	}
	return name
}
