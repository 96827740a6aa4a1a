package ingest

import (
	"encoding/json"
	"testing"

	"github.com/cratedex/cratedex/internal/graph"
	"github.com/cratedex/cratedex/internal/rustdoc"
)

func strPtr(s string) *string { return &s }

func fnItem(name, fnData string) *rustdoc.Item {
	return &rustdoc.Item{
		Name:       strPtr(name),
		Visibility: json.RawMessage(`"public"`),
		Inner:      json.RawMessage(`{"function":` + fnData + `}`),
	}
}

func TestFnSignature(t *testing.T) {
	t.Parallel()
	crate := &rustdoc.Crate{
		Index:          map[string]rustdoc.Item{},
		Paths:          map[string]rustdoc.Summary{},
		ExternalCrates: map[string]rustdoc.ExternalCrate{},
	}

	tests := []struct {
		name   string
		fnName string
		fnData string
		want   string
	}{
		{
			name:   "simple_no_params",
			fnName: "foo",
			fnData: `{"sig":{"inputs":[],"output":null},"generics":{"params":[]},"header":{}}`,
			want:   "fn foo()",
		},
		{
			name:   "with_return",
			fnName: "bar",
			fnData: `{"sig":{"inputs":[],"output":{"primitive":"bool"}},"generics":{"params":[]},"header":{}}`,
			want:   "fn bar() -> bool",
		},
		{
			name:   "with_param",
			fnName: "greet",
			fnData: `{"sig":{"inputs":[["name",{"primitive":"str"}]],"output":null},"generics":{"params":[]},"header":{}}`,
			want:   "fn greet(name: str)",
		},
		{
			name:   "with_generics",
			fnName: "identity",
			fnData: `{"sig":{"inputs":[["val",{"generic":"T"}]],"output":{"generic":"T"}},"generics":{"params":[{"name":"T","kind":{}}]},"header":{}}`,
			want:   "fn identity<T>(val: T) -> T",
		},
		{
			name:   "const_unsafe_async",
			fnName: "danger",
			fnData: `{"sig":{"inputs":[],"output":null},"generics":{"params":[]},"header":{"is_const":true,"is_unsafe":true,"is_async":true}}`,
			want:   "const unsafe async fn danger()",
		},
		{
			name:   "self_borrowed",
			fnName: "method",
			fnData: `{"sig":{"inputs":[["self",{"borrowed_ref":{"lifetime":null,"is_mutable":false,"type":{"generic":"Self"}}}]],"output":null},"generics":{"params":[]},"header":{}}`,
			want:   "fn method(&self)",
		},
		{
			name:   "self_mut",
			fnName: "mutate",
			fnData: `{"sig":{"inputs":[["self",{"borrowed_ref":{"lifetime":null,"is_mutable":true,"type":{"generic":"Self"}}}],["n",{"primitive":"u32"}]],"output":null},"generics":{"params":[]},"header":{}}`,
			want:   "fn mutate(&mut self, n: u32)",
		},
		{
			name:   "self_owned",
			fnName: "consume",
			fnData: `{"sig":{"inputs":[["self",{"generic":"Self"}]],"output":null},"generics":{"params":[]},"header":{}}`,
			want:   "fn consume(self)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := signature(fnItem(tt.fnName, tt.fnData), graph.KindFunction, crate)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTypeSignatures(t *testing.T) {
	t.Parallel()
	crate := &rustdoc.Crate{
		Index: map[string]rustdoc.Item{},
		Paths: map[string]rustdoc.Summary{},
	}

	tests := []struct {
		name  string
		kind  graph.Kind
		inner string
		want  string
	}{
		{
			name:  "unit_struct",
			kind:  graph.KindStruct,
			inner: `{"struct":{"kind":"unit","impls":[]}}`,
			want:  "struct Thing;",
		},
		{
			name:  "tuple_struct",
			kind:  graph.KindStruct,
			inner: `{"struct":{"kind":{"tuple":[1,2]},"impls":[]}}`,
			want:  "struct Thing(/* ... */);",
		},
		{
			name:  "type_alias",
			kind:  graph.KindTypeAlias,
			inner: `{"type_alias":{"type":{"primitive":"u64"}}}`,
			want:  "type Thing = u64",
		},
		{
			name:  "constant",
			kind:  graph.KindConstant,
			inner: `{"constant":{"type":{"primitive":"usize"}}}`,
			want:  "const Thing: usize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			item := &rustdoc.Item{
				Name:  strPtr("Thing"),
				Inner: json.RawMessage(tt.inner),
			}
			got := signature(item, tt.kind, crate)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
