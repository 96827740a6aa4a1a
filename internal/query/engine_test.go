package query

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cratedex/cratedex/internal/docgen"
	"github.com/cratedex/cratedex/internal/graph"
	"github.com/cratedex/cratedex/internal/manifest"
	"github.com/cratedex/cratedex/internal/store"
)

const demoJSON = `{
	"root": 0,
	"crate_version": "0.3.1",
	"format_version": 37,
	"index": {
		"0": {"id": 0, "name": "demo", "visibility": "public", "docs": "Demo crate. Extra detail.", "inner": {"module": {"items": [1, 2]}}},
		"1": {"id": 1, "name": "Foo", "visibility": "public", "docs": "A Foo.", "inner": {"struct": {"kind": {"plain": {"fields": []}}, "impls": [3]}}},
		"2": {"id": 2, "name": "util", "visibility": "public", "docs": "Utilities.", "inner": {"module": {"items": []}}},
		"3": {"id": 3, "name": null, "visibility": "default", "inner": {"impl": {"trait": null, "items": [4]}}},
		"4": {"id": 4, "name": "bar", "visibility": "public", "docs": "Does bar things.", "inner": {"function": {"sig": {"inputs": [["self", {"borrowed_ref": {"lifetime": null, "is_mutable": false, "type": {"generic": "Self"}}}]], "output": null}, "generics": {"params": []}, "header": {}}}}
	}
}`

// testEngine wires an engine over a pre-generated rustdoc JSON file, so
// no cargo invocation ever happens.
func testEngine(t *testing.T) *Engine {
	t.Helper()
	targetDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(targetDir, "doc"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(targetDir, "doc", "demo.json"), []byte(demoJSON), 0644); err != nil {
		t.Fatal(err)
	}

	m := manifest.Static(t.TempDir(), targetDir, manifest.Dep{Name: "demo", Version: "0.3.1"})
	s := store.New(context.Background(), t.TempDir(), 8, 2)
	gen := docgen.New("nightly", m.Root, targetDir)
	engine, err := New(m, s, gen, 20)
	if err != nil {
		t.Fatal(err)
	}
	return engine
}

func TestListDeps(t *testing.T) {
	t.Parallel()
	engine := testEngine(t)

	deps := engine.ListDeps()
	if len(deps) != 1 || deps[0] != "demo@0.3.1" {
		t.Errorf("deps = %v, want [demo@0.3.1]", deps)
	}
}

// The listing covers the crate root's direct children only: no root
// entry, no nested members like demo::Foo::bar.
func TestListCrateItems(t *testing.T) {
	t.Parallel()
	engine := testEngine(t)

	items, err := engine.ListCrateItems(context.Background(), "demo")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v, want exactly the two root children", items)
	}
	if items[0].Path != "demo::Foo" || items[0].Kind != graph.KindStruct {
		t.Errorf("items[0] = %+v, want demo::Foo (struct)", items[0])
	}
	if items[0].Summary != "A Foo." {
		t.Errorf("items[0].Summary = %q, want %q", items[0].Summary, "A Foo.")
	}
	if items[1].Path != "demo::util" || items[1].Kind != graph.KindModule {
		t.Errorf("items[1] = %+v, want demo::util (module)", items[1])
	}
}

func TestGetModule_Root(t *testing.T) {
	t.Parallel()
	engine := testEngine(t)

	doc, err := engine.GetModule(context.Background(), "demo", "")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# demo", "**Version:** 0.3.1", "## Modules", "## Structs", "`demo::Foo`"} {
		if !strings.Contains(doc, want) {
			t.Errorf("module view missing %q:\n%s", want, doc)
		}
	}
}

func TestGetModule_NonModule(t *testing.T) {
	t.Parallel()
	engine := testEngine(t)

	_, err := engine.GetModule(context.Background(), "demo", "demo::Foo")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "not a module") {
		t.Errorf("error should explain the kind mismatch: %v", err)
	}
}

func TestGetDocs(t *testing.T) {
	t.Parallel()
	engine := testEngine(t)

	doc, err := engine.GetDocs(context.Background(), "demo", "demo::Foo")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# demo::Foo", "**Kind:** struct", "```rust", "struct Foo", "## Methods", "fn bar(&self)"} {
		if !strings.Contains(doc, want) {
			t.Errorf("docs missing %q:\n%s", want, doc)
		}
	}
}

func TestGetDocs_PrefixOptional(t *testing.T) {
	t.Parallel()
	engine := testEngine(t)

	withPrefix, err := engine.GetDocs(context.Background(), "demo", "demo::Foo")
	if err != nil {
		t.Fatal(err)
	}
	withoutPrefix, err := engine.GetDocs(context.Background(), "demo", "Foo")
	if err != nil {
		t.Fatal(err)
	}
	if withPrefix != withoutPrefix {
		t.Error("prefixed and unprefixed paths should render identically")
	}
}

func TestGetDocs_NotFoundSuggests(t *testing.T) {
	t.Parallel()
	engine := testEngine(t)

	_, err := engine.GetDocs(context.Background(), "demo", "demo::Fob")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "demo::Foo") {
		t.Errorf("error should suggest demo::Foo: %v", err)
	}
}

// Path lookup is exact: a case variant of an existing path is not
// found, though the real path surfaces as a suggestion.
func TestGetDocs_CaseVariantNotFound(t *testing.T) {
	t.Parallel()
	engine := testEngine(t)

	_, err := engine.GetDocs(context.Background(), "demo", "demo::foo")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "demo::Foo") {
		t.Errorf("error should suggest demo::Foo: %v", err)
	}
}

func TestUnknownCrate(t *testing.T) {
	t.Parallel()
	engine := testEngine(t)

	_, err := engine.GetDocs(context.Background(), "nope", "whatever")
	if !errors.Is(err, ErrUnknownCrate) {
		t.Fatalf("err = %v, want ErrUnknownCrate", err)
	}
	if !strings.Contains(err.Error(), "demo@0.3.1") {
		t.Errorf("error should list known crates: %v", err)
	}
}

func TestSearchDocs_Scoped(t *testing.T) {
	t.Parallel()
	engine := testEngine(t)

	matches, err := engine.SearchDocs(context.Background(), "bar", "demo", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 || matches[0].Path != "demo::Foo::bar" {
		t.Errorf("matches = %+v, want demo::Foo::bar first", matches)
	}
}

func TestSearchDocs_UnscopedUsesResidentOnly(t *testing.T) {
	t.Parallel()
	engine := testEngine(t)

	// Nothing resident yet, so an unscoped search finds nothing and
	// triggers no generation.
	matches, err := engine.SearchDocs(context.Background(), "bar", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("matches before any build = %+v, want none", matches)
	}

	if _, err := engine.ListCrateItems(context.Background(), "demo"); err != nil {
		t.Fatal(err)
	}
	matches, err = engine.SearchDocs(context.Background(), "bar", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 || matches[0].Path != "demo::Foo::bar" {
		t.Errorf("matches after build = %+v, want demo::Foo::bar first", matches)
	}
}
