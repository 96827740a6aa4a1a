package manifest

import (
	"reflect"
	"testing"
)

const metadataJSON = `{
	"packages": [
		{"id": "registry+serde@1.0.200", "name": "serde", "version": "1.0.200"},
		{"id": "registry+tokio-util@0.7.10", "name": "tokio-util", "version": "0.7.10"}
	],
	"resolve": {
		"nodes": [
			{"id": "registry+serde@1.0.200", "features": ["derive", "std"]},
			{"id": "registry+tokio-util@0.7.10", "features": []}
		]
	},
	"target_directory": "/work/target",
	"workspace_root": "/work"
}`

func TestParse(t *testing.T) {
	t.Parallel()
	m, err := parse([]byte(metadataJSON))
	if err != nil {
		t.Fatal(err)
	}

	if m.TargetDir != "/work/target" {
		t.Errorf("TargetDir = %q", m.TargetDir)
	}

	deps := m.Deps()
	want := []Dep{
		{Name: "serde", Version: "1.0.200", Features: []string{"derive", "std"}},
		{Name: "tokio-util", Version: "0.7.10", Features: []string{}},
	}
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("deps = %+v, want %+v", deps, want)
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()
	if _, err := parse([]byte(`{broken`)); err == nil {
		t.Error("expected error for malformed metadata")
	}
}

func TestResolve_HyphenUnderscore(t *testing.T) {
	t.Parallel()
	m, err := parse([]byte(metadataJSON))
	if err != nil {
		t.Fatal(err)
	}

	// rustdoc reports the underscore form; cargo uses hyphens.
	for _, name := range []string{"tokio-util", "tokio_util"} {
		dep, ok := m.Resolve(name)
		if !ok || dep.Name != "tokio-util" {
			t.Errorf("Resolve(%q) = %+v, %v", name, dep, ok)
		}
	}
	if _, ok := m.Resolve("nonexistent"); ok {
		t.Error("Resolve should miss for unknown crates")
	}
}

func TestDep_LibName(t *testing.T) {
	t.Parallel()
	dep := Dep{Name: "tokio-util", Version: "0.7.10"}
	if got := dep.LibName(); got != "tokio_util" {
		t.Errorf("LibName = %q, want tokio_util", got)
	}
	if got := dep.String(); got != "tokio-util@0.7.10" {
		t.Errorf("String = %q", got)
	}
}

func TestDep_Fingerprint(t *testing.T) {
	t.Parallel()
	base := Dep{Name: "serde", Version: "1.0.200"}
	if base.Fingerprint() != base.Fingerprint() {
		t.Error("fingerprint should be deterministic")
	}
	if len(base.Fingerprint()) != 16 {
		t.Errorf("fingerprint %q should be 16 hex chars", base.Fingerprint())
	}

	variants := []Dep{
		{Name: "serde", Version: "1.0.201"},
		{Name: "serde", Version: "1.0.200", Features: []string{"derive"}},
		{Name: "serde2", Version: "1.0.200"},
	}
	for _, v := range variants {
		if v.Fingerprint() == base.Fingerprint() {
			t.Errorf("%+v should have a distinct fingerprint", v)
		}
	}
}
