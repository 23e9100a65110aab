// Package store persists pipeline artifacts under stable keys. The presence
// of an artifact is what makes every stage resumable, so writes must never
// leave partial data behind.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"TiskyPipeline/internal/ports"
)

// FS stores each artifact as a file under the data directory.
type FS struct {
	root string
	log  *slog.Logger
}

var _ ports.ArtifactStore = (*FS)(nil)

// NewFS builds a filesystem store rooted at dir.
func NewFS(dir string, log *slog.Logger) *FS {
	return &FS{root: dir, log: log}
}

func (s *FS) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Get returns the artifact bytes or ports.ErrNotFound.
func (s *FS) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("get %s: %w", key, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// Put writes the artifact atomically: a temp file in the target directory is
// renamed into place, so readers never observe a partial artifact.
func (s *FS) Put(_ context.Context, key string, data []byte) error {
	path := s.path(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// Exists reports whether the artifact is present.
func (s *FS) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}

// Delete removes the artifact. Deleting a missing key is not an error.
func (s *FS) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List returns all keys under prefix, sorted. A prefix nothing was written
// under yields an empty result.
func (s *FS) List(_ context.Context, prefix string) ([]string, error) {
	dir := strings.TrimSuffix(prefix, "/")
	if !strings.HasSuffix(prefix, "/") {
		if i := strings.LastIndex(prefix, "/"); i >= 0 {
			dir = prefix[:i]
		} else {
			dir = ""
		}
	}
	base := filepath.Join(s.root, filepath.FromSlash(dir))
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return nil, nil
	}

	var keys []string
	err := filepath.WalkDir(base, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		if key := filepath.ToSlash(rel); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// ModTime returns when the artifact was last written, or ports.ErrNotFound.
func (s *FS) ModTime(_ context.Context, key string) (time.Time, error) {
	info, err := os.Stat(s.path(key))
	if os.IsNotExist(err) {
		return time.Time{}, fmt.Errorf("modtime %s: %w", key, ports.ErrNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("modtime %s: %w", key, err)
	}
	return info.ModTime(), nil
}
