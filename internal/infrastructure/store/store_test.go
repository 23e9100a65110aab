package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"TiskyPipeline/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runStoreSuite(t *testing.T, s ports.ArtifactStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "tisky_text/9/1.txt"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ok, err := s.Exists(ctx, "tisky_text/9/1.txt"); err != nil || ok {
		t.Fatalf("missing key should not exist: ok=%v err=%v", ok, err)
	}
	if _, err := s.ModTime(ctx, "tisky_text/9/1.txt"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from ModTime, got %v", err)
	}

	if err := s.Put(ctx, "tisky_text/9/1.txt", []byte("first")); err != nil {
		t.Fatalf("put: %v", err)
	}
	data, err := s.Get(ctx, "tisky_text/9/1.txt")
	if err != nil || string(data) != "first" {
		t.Fatalf("get after put: %q, %v", data, err)
	}
	if ok, err := s.Exists(ctx, "tisky_text/9/1.txt"); err != nil || !ok {
		t.Fatalf("key should exist: ok=%v err=%v", ok, err)
	}
	mod, err := s.ModTime(ctx, "tisky_text/9/1.txt")
	if err != nil {
		t.Fatalf("modtime: %v", err)
	}
	if time.Since(mod) > time.Minute || mod.IsZero() {
		t.Fatalf("modtime should be recent, got %v", mod)
	}

	if err := s.Put(ctx, "tisky_text/9/1.txt", []byte("second")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if data, _ := s.Get(ctx, "tisky_text/9/1.txt"); string(data) != "second" {
		t.Fatalf("overwrite not visible: %q", data)
	}

	for _, key := range []string{"tisky_text/9/2.txt", "tisky_text/9/10_1.txt", "tisky_text/8/3.txt", "tisky_meta/9/topics.csv"} {
		if err := s.Put(ctx, key, []byte("x")); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	keys, err := s.List(ctx, "tisky_text/9/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"tisky_text/9/1.txt", "tisky_text/9/10_1.txt", "tisky_text/9/2.txt"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("list = %v, want %v", keys, want)
	}

	empty, err := s.List(ctx, "tisky_pdf/9/")
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty prefix list: %v, %v", empty, err)
	}

	// "_" in a prefix is a literal, not a single-character wildcard.
	for _, key := range []string{"tisky_meta/related_bills/7.json", "tisky_meta/relatedxbills/7.json"} {
		if err := s.Put(ctx, key, []byte("x")); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	bills, err := s.List(ctx, "tisky_meta/related_bills/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(bills, []string{"tisky_meta/related_bills/7.json"}) {
		t.Fatalf("prefix underscore over-matched: %v", bills)
	}

	if err := s.Delete(ctx, "tisky_text/9/1.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "tisky_text/9/1.txt"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "tisky_text/9/1.txt"); err != nil {
		t.Fatalf("repeat delete should be a no-op: %v", err)
	}
}

func TestFSStore(t *testing.T) {
	t.Parallel()
	runStoreSuite(t, NewFS(t.TempDir(), discardLogger()))
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "artifacts.db"), discardLogger())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	runStoreSuite(t, s)
}

func TestFSListSkipsTempFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := NewFS(dir, discardLogger())
	ctx := context.Background()

	if err := s.Put(ctx, "tisky_text/9/1.txt", []byte("x")); err != nil {
		t.Fatalf("put: %v", err)
	}
	stray := filepath.Join(dir, "tisky_text", "9", ".tmp-123")
	if err := os.WriteFile(stray, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write stray: %v", err)
	}

	keys, err := s.List(ctx, "tisky_text/9/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"tisky_text/9/1.txt"}) {
		t.Fatalf("temp file leaked into listing: %v", keys)
	}
}
