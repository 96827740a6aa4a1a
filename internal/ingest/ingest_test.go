package ingest

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cratedex/cratedex/internal/graph"
)

// demoCrate exercises the main normalization paths: nested modules,
// struct fields and methods, enum variants, a private item, a renaming
// re-export, a re-export cycle, an external re-export, and an item of
// unknown kind.
const demoCrate = `{
	"root": 0,
	"crate_version": "0.3.1",
	"format_version": 37,
	"external_crates": {"1": {"name": "serde"}},
	"paths": {"20": {"crate_id": 1, "path": ["serde", "Serialize"], "kind": "trait"}},
	"index": {
		"0": {"id": 0, "name": "demo", "visibility": "public", "docs": "Demo crate. Second sentence.", "inner": {"module": {"items": [1, 2, 5, 7, 10, 12, 14, 16], "is_stripped": false}}},
		"1": {"id": 1, "name": "Foo", "visibility": "public", "docs": "A container. More detail.", "inner": {"struct": {"kind": {"plain": {"fields": [3], "has_stripped_fields": false}}, "impls": [4], "generics": {"params": []}}}},
		"2": {"id": 2, "name": "Mode", "visibility": "public", "docs": "Operating mode.", "inner": {"enum": {"variants": [9], "impls": []}}},
		"3": {"id": 3, "name": "count", "visibility": "public", "docs": "Number of entries.", "inner": {"struct_field": {"primitive": "u64"}}},
		"4": {"id": 4, "name": null, "visibility": "default", "inner": {"impl": {"trait": null, "items": [8]}}},
		"5": {"id": 5, "name": "hidden", "visibility": "crate", "inner": {"function": {"sig": {"inputs": [], "output": null}, "generics": {"params": []}, "header": {}}}},
		"7": {"id": 7, "name": "util", "visibility": "public", "inner": {"module": {"items": [11], "is_stripped": false}}},
		"8": {"id": 8, "name": "bar", "visibility": "public", "docs": "Returns the count.", "inner": {"function": {"sig": {"inputs": [["self", {"borrowed_ref": {"lifetime": null, "is_mutable": false, "type": {"generic": "Self"}}}]], "output": {"primitive": "u64"}}, "generics": {"params": []}, "header": {}}}},
		"9": {"id": 9, "name": "Fast", "visibility": "default", "inner": {"variant": {"kind": "plain", "discriminant": null}}},
		"10": {"id": 10, "name": null, "visibility": "public", "inner": {"use": {"source": "Foo", "name": "Renamed", "id": 1, "is_glob": false}}},
		"11": {"id": 11, "name": "helper", "visibility": "public", "inner": {"function": {"sig": {"inputs": [], "output": null}, "generics": {"params": []}, "header": {}}}},
		"12": {"id": 12, "name": null, "visibility": "public", "inner": {"use": {"source": "looped", "name": "looped", "id": 13, "is_glob": false}}},
		"13": {"id": 13, "name": null, "visibility": "public", "inner": {"use": {"source": "looped2", "name": "looped2", "id": 12, "is_glob": false}}},
		"14": {"id": 14, "name": null, "visibility": "public", "inner": {"use": {"source": "serde::Serialize", "name": "Serialize", "id": 20, "is_glob": false}}},
		"16": {"id": 16, "name": "Mystery", "visibility": "public", "inner": {"weird_thing": {}}}
	}
}`

func mustIngest(t *testing.T, data, crate string) *graph.Graph {
	t.Helper()
	g, err := Ingest([]byte(data), crate)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	return g
}

func TestIngest_Basic(t *testing.T) {
	t.Parallel()
	g := mustIngest(t, demoCrate, "demo")

	if g.Crate() != "demo" || g.Version() != "0.3.1" {
		t.Errorf("crate = %q version = %q", g.Crate(), g.Version())
	}

	wantKinds := map[string]graph.Kind{
		"demo":               graph.KindModule,
		"demo::Foo":          graph.KindStruct,
		"demo::Foo::count":   graph.KindField,
		"demo::Foo::bar":     graph.KindMethod,
		"demo::Mode":         graph.KindEnum,
		"demo::Mode::Fast":   graph.KindVariant,
		"demo::util":         graph.KindModule,
		"demo::util::helper": graph.KindFunction,
		"demo::Renamed":      graph.KindStruct,
		"demo::looped":       graph.KindImport,
		"demo::Serialize":    graph.KindTrait,
		"demo::Mystery":      graph.KindOpaque,
	}
	for path, kind := range wantKinds {
		id, ok := g.Lookup(path)
		if !ok {
			t.Errorf("missing path %q", path)
			continue
		}
		if got := g.Item(id).Kind; got != kind {
			t.Errorf("path %q: kind = %q, want %q", path, got, kind)
		}
	}

	if _, ok := g.Lookup("demo::hidden"); ok {
		t.Error("private item demo::hidden should not be indexed")
	}
}

func TestIngest_RootChildOrder(t *testing.T) {
	t.Parallel()
	g := mustIngest(t, demoCrate, "demo")

	var got []string
	for _, id := range g.Children(g.Root()) {
		it := g.Item(id)
		got = append(got, it.PathString())
	}
	want := []string{
		"demo::Foo",
		"demo::Mode",
		"demo::util",
		"demo::Renamed",
		"demo::looped",
		"demo::Serialize",
		"demo::Mystery",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("root children = %v, want %v", got, want)
	}
}

func TestIngest_Signatures(t *testing.T) {
	t.Parallel()
	g := mustIngest(t, demoCrate, "demo")

	tests := []struct {
		path string
		want string
	}{
		{"demo::Foo", "struct Foo { ... }"},
		{"demo::Foo::count", "count: u64"},
		{"demo::Foo::bar", "fn bar(&self) -> u64"},
		{"demo::Mode", "enum Mode"},
		{"demo::util::helper", "fn helper()"},
	}
	for _, tt := range tests {
		id, ok := g.Lookup(tt.path)
		if !ok {
			t.Errorf("missing path %q", tt.path)
			continue
		}
		if got := g.Item(id).Signature; got != tt.want {
			t.Errorf("signature of %q = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestIngest_MemberChildren(t *testing.T) {
	t.Parallel()
	g := mustIngest(t, demoCrate, "demo")

	fooID, ok := g.Lookup("demo::Foo")
	if !ok {
		t.Fatal("missing demo::Foo")
	}
	var got []string
	for _, id := range g.Children(fooID) {
		it := g.Item(id)
		got = append(got, it.Name())
	}
	want := []string{"count", "bar"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Foo children = %v, want %v", got, want)
	}

	// Members hang off the type but live in the enclosing module.
	barID, _ := g.Lookup("demo::Foo::bar")
	if parent, _ := g.Parent(barID); parent != g.Root() {
		t.Errorf("bar parent = %d, want root %d", parent, g.Root())
	}
}

func TestIngest_Idempotent(t *testing.T) {
	t.Parallel()
	g1 := mustIngest(t, demoCrate, "demo")
	g2 := mustIngest(t, demoCrate, "demo")

	if g1.Len() != g2.Len() {
		t.Fatalf("item counts differ: %d vs %d", g1.Len(), g2.Len())
	}
	var paths1, paths2 []string
	g1.Walk(func(it graph.Item) { paths1 = append(paths1, it.PathString()+"/"+string(it.Kind)) })
	g2.Walk(func(it graph.Item) { paths2 = append(paths2, it.PathString()+"/"+string(it.Kind)) })
	if !reflect.DeepEqual(paths1, paths2) {
		t.Errorf("graphs differ:\n%v\n%v", paths1, paths2)
	}
}

func TestIngest_GlobReexport(t *testing.T) {
	t.Parallel()
	const crate = `{
		"root": 0,
		"format_version": 37,
		"index": {
			"0": {"id": 0, "name": "demo", "visibility": "public", "inner": {"module": {"items": [2]}}},
			"1": {"id": 1, "name": "inner", "visibility": "crate", "inner": {"module": {"items": [3]}}},
			"2": {"id": 2, "name": null, "visibility": "public", "inner": {"use": {"name": "inner", "id": 1, "is_glob": true}}},
			"3": {"id": 3, "name": "f", "visibility": "public", "inner": {"function": {"sig": {"inputs": [], "output": null}, "generics": {"params": []}, "header": {}}}}
		}
	}`
	g := mustIngest(t, crate, "demo")

	id, ok := g.Lookup("demo::f")
	if !ok {
		t.Fatal("glob re-export did not inline demo::f")
	}
	if got := g.Item(id).Kind; got != graph.KindFunction {
		t.Errorf("demo::f kind = %q, want function", got)
	}
	if _, ok := g.Lookup("demo::inner"); ok {
		t.Error("private module demo::inner should not be indexed")
	}
}

func TestIngest_UnsupportedVersion(t *testing.T) {
	t.Parallel()
	for _, version := range []string{"12", "99"} {
		data := `{"root": 0, "format_version": ` + version + `, "index": {}}`
		_, err := Ingest([]byte(data), "demo")
		if !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("format_version %s: err = %v, want ErrUnsupportedVersion", version, err)
		}
	}
}

func TestIngest_Malformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data string
	}{
		{"not_json", `{broken`},
		{"root_missing", `{"root": 0, "format_version": 37, "index": {}}`},
		{"root_not_module", `{"root": 0, "format_version": 37, "index": {"0": {"id": 0, "name": "demo", "visibility": "public", "inner": {"struct": {}}}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Ingest([]byte(tt.data), "demo")
			if !errors.Is(err, ErrMalformedInput) {
				t.Errorf("err = %v, want ErrMalformedInput", err)
			}
			var ingestErr *Error
			if !errors.As(err, &ingestErr) || ingestErr.Crate != "demo" {
				t.Errorf("error should carry crate name, got %v", err)
			}
		})
	}
}
