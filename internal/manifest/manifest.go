// Package manifest discovers the project's dependency set by shelling out
// to cargo metadata. The result is an immutable snapshot; callers re-run
// Load for an explicit refresh.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Dep is one dependency record: crate name, resolved version, and the
// feature set enabled by the current resolve graph.
type Dep struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Features []string `json:"features,omitempty"`
}

func (d Dep) String() string {
	return d.Name + "@" + d.Version
}

// LibName returns the rustc library name (hyphens become underscores),
// which is how rustdoc names its output file.
func (d Dep) LibName() string {
	return strings.ReplaceAll(d.Name, "-", "_")
}

// Fingerprint identifies the crate's exact documented state: name, resolved
// version, and enabled features. It keys both the in-memory store and the
// on-disk byte cache.
func (d Dep) Fingerprint() string {
	h := xxhash.New()
	h.WriteString(d.Name)
	h.Write([]byte{0})
	h.WriteString(d.Version)
	for _, f := range d.Features {
		h.Write([]byte{0})
		h.WriteString(f)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Manifest is the dependency snapshot for one project.
type Manifest struct {
	Root      string
	TargetDir string

	deps   []Dep
	byName map[string]Dep
}

// Load runs cargo metadata for the project at root and parses the result.
func Load(ctx context.Context, root string) (*Manifest, error) {
	cmd := exec.CommandContext(ctx, "cargo", "metadata",
		"--format-version", "1",
		"--manifest-path", filepath.Join(root, "Cargo.toml"))
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("cargo metadata: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("running cargo metadata: %w", err)
	}

	m, err := parse(out)
	if err != nil {
		return nil, err
	}
	m.Root = root
	return m, nil
}

// parse decodes cargo metadata JSON. Package order is preserved as the
// canonical dependency order.
func parse(data []byte) (*Manifest, error) {
	var meta struct {
		Packages []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"packages"`
		Resolve *struct {
			Nodes []struct {
				ID       string   `json:"id"`
				Features []string `json:"features"`
			} `json:"nodes"`
		} `json:"resolve"`
		TargetDirectory string `json:"target_directory"`
		WorkspaceRoot   string `json:"workspace_root"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing cargo metadata: %w", err)
	}

	features := make(map[string][]string)
	if meta.Resolve != nil {
		for _, node := range meta.Resolve.Nodes {
			features[node.ID] = node.Features
		}
	}

	m := &Manifest{
		TargetDir: meta.TargetDirectory,
		byName:    make(map[string]Dep, len(meta.Packages)),
	}
	for _, pkg := range meta.Packages {
		dep := Dep{
			Name:     pkg.Name,
			Version:  pkg.Version,
			Features: features[pkg.ID],
		}
		m.deps = append(m.deps, dep)
		m.byName[dep.Name] = dep
	}
	return m, nil
}

// Static builds a manifest from a fixed dependency set, bypassing cargo
// metadata discovery.
func Static(root, targetDir string, deps ...Dep) *Manifest {
	m := &Manifest{
		Root:      root,
		TargetDir: targetDir,
		byName:    make(map[string]Dep, len(deps)),
	}
	for _, d := range deps {
		m.deps = append(m.deps, d)
		m.byName[d.Name] = d
	}
	return m
}

// Deps returns the full dependency record set in manifest order.
func (m *Manifest) Deps() []Dep {
	out := make([]Dep, len(m.deps))
	copy(out, m.deps)
	return out
}

// Resolve finds a dependency by name. Crate names may be given with either
// hyphens or underscores; rustdoc output always uses the underscore form.
func (m *Manifest) Resolve(name string) (Dep, bool) {
	if dep, ok := m.byName[name]; ok {
		return dep, true
	}
	underscored := strings.ReplaceAll(name, "-", "_")
	for _, dep := range m.deps {
		if dep.LibName() == underscored {
			return dep, true
		}
	}
	return Dep{}, false
}
