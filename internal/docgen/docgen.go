// Package docgen shells out to the Rust toolchain to produce rustdoc
// JSON for a single dependency of the active workspace.
package docgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cratedex/cratedex/internal/manifest"
)

// GenerationError carries the generator's stderr so callers can surface
// compiler diagnostics instead of a bare exit status.
type GenerationError struct {
	Crate  string
	Stderr string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("generate docs for %s: %v\n%s", e.Crate, e.Err, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("generate docs for %s: %v", e.Crate, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator produces rustdoc JSON files under the workspace target
// directory.
type Generator struct {
	toolchain     string
	workspaceRoot string
	targetDir     string
}

func New(toolchain, workspaceRoot, targetDir string) *Generator {
	if toolchain == "" {
		toolchain = "nightly"
	}
	return &Generator{toolchain: toolchain, workspaceRoot: workspaceRoot, targetDir: targetDir}
}

// HasToolchain reports whether the configured toolchain is installed.
func (g *Generator) HasToolchain(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "cargo", "+"+g.toolchain, "--version")
	return cmd.Run() == nil
}

// Generate produces and reads the rustdoc JSON for one dependency. A
// JSON file already present in the target directory is reused as-is;
// staleness is the caller's concern via the dependency fingerprint.
func (g *Generator) Generate(ctx context.Context, dep manifest.Dep) ([]byte, error) {
	path := g.jsonPath(dep)
	if data, err := os.ReadFile(path); err == nil {
		slog.Debug("rustdoc json already present", "crate", dep.String(), "path", path)
		return data, nil
	}

	args := g.buildArgs(dep)
	slog.Info("generating rustdoc json", "crate", dep.String(), "toolchain", g.toolchain)
	cmd := exec.CommandContext(ctx, "cargo", args...)
	cmd.Dir = g.workspaceRoot
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &GenerationError{Crate: dep.String(), Stderr: stderr.String(), Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &GenerationError{
			Crate: dep.String(),
			Err:   fmt.Errorf("rustdoc output missing at %s: %w", path, err),
		}
	}
	return data, nil
}

// buildArgs assembles the cargo invocation. The resolved feature list is
// complete, so defaults are disabled and the list passed verbatim.
func (g *Generator) buildArgs(dep manifest.Dep) []string {
	args := []string{
		"+" + g.toolchain,
		"rustdoc",
		"-p", dep.String(),
		"--lib",
	}
	if len(dep.Features) > 0 {
		args = append(args, "--no-default-features", "--features", strings.Join(dep.Features, ","))
	}
	args = append(args,
		"--",
		"--output-format", "json",
		"-Z", "unstable-options",
	)
	return args
}

// jsonPath is where rustdoc writes the crate's JSON document.
func (g *Generator) jsonPath(dep manifest.Dep) string {
	return filepath.Join(g.targetDir, "doc", dep.LibName()+".json")
}

// IsGenerationFailure reports whether err originated in the external
// generator rather than in parsing or lookup.
func IsGenerationFailure(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
