package store

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cratedex/cratedex/internal/manifest"
	"github.com/klauspost/compress/zstd"
)

// cachePath returns the byte-cache file for a dependency. The fingerprint
// hash is part of the name, so a version or feature change misses cleanly
// instead of reusing stale bytes.
func (s *Store) cachePath(dep manifest.Dep) string {
	name := fmt.Sprintf("%s_%s_%s.json.zst", dep.LibName(), dep.Version, dep.Fingerprint())
	return filepath.Join(s.dir, name)
}

// saveBytes compresses and persists raw rustdoc JSON for a fingerprint.
func (s *Store) saveBytes(dep manifest.Dep, data []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating byte cache dir: %w", err)
	}

	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("compressing rustdoc JSON: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing zstd writer: %w", err)
	}

	if err := os.WriteFile(s.cachePath(dep), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing byte cache file: %w", err)
	}
	return nil
}

// loadBytes reads and decompresses cached rustdoc JSON for a fingerprint.
// A missing file is reported via os.IsNotExist on the wrapped error.
func (s *Store) loadBytes(dep manifest.Dep) ([]byte, error) {
	f, err := os.Open(s.cachePath(dep))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing byte cache for %s: %w", dep, err)
	}
	return data, nil
}

// dropBytes removes a fingerprint's byte-cache file.
func (s *Store) dropBytes(dep manifest.Dep) {
	os.Remove(s.cachePath(dep))
}
