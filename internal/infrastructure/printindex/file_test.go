package printindex

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeIndex(t *testing.T, path, content string, mod time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestPeriodsAndPrints(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "print_index.json")
	writeIndex(t, path, `{"10": [650, 23, 100], "9": [5]}`, time.Now())

	idx := NewFile(path, discardLogger())
	periods, err := idx.Periods(context.Background())
	if err != nil {
		t.Fatalf("Periods: %v", err)
	}
	if !reflect.DeepEqual(periods, []int{9, 10}) {
		t.Fatalf("Periods = %v", periods)
	}

	prints, err := idx.Prints(context.Background(), 10)
	if err != nil {
		t.Fatalf("Prints: %v", err)
	}
	if !reflect.DeepEqual(prints, []int{23, 100, 650}) {
		t.Fatalf("Prints(10) = %v, want ascending", prints)
	}

	empty, err := idx.Prints(context.Background(), 7)
	if err != nil {
		t.Fatalf("Prints(7): %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("Prints(7) = %v, want empty", empty)
	}
}

func TestMissingFileStartsEmpty(t *testing.T) {
	t.Parallel()

	idx := NewFile(filepath.Join(t.TempDir(), "absent.json"), discardLogger())
	periods, err := idx.Periods(context.Background())
	if err != nil {
		t.Fatalf("Periods: %v", err)
	}
	if len(periods) != 0 {
		t.Fatalf("Periods = %v, want empty", periods)
	}
}

func TestMalformedFileErrors(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "print_index.json")
	writeIndex(t, path, `{"10": "not a list"}`, time.Now())

	idx := NewFile(path, discardLogger())
	if _, err := idx.Periods(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestModTimeGatesReread(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "print_index.json")
	base := time.Now().Add(-time.Hour)
	writeIndex(t, path, `{"10": [1]}`, base)

	idx := NewFile(path, discardLogger())
	first, err := idx.Prints(context.Background(), 10)
	if err != nil {
		t.Fatalf("Prints: %v", err)
	}
	if !reflect.DeepEqual(first, []int{1}) {
		t.Fatalf("Prints = %v", first)
	}

	// Same mtime: the cached view must survive a content change.
	writeIndex(t, path, `{"10": [1, 2]}`, base)
	cached, err := idx.Prints(context.Background(), 10)
	if err != nil {
		t.Fatalf("Prints: %v", err)
	}
	if !reflect.DeepEqual(cached, []int{1}) {
		t.Fatalf("Prints = %v, want cached view", cached)
	}

	// Bumped mtime: the new content is picked up without Reload.
	writeIndex(t, path, `{"10": [1, 2]}`, base.Add(time.Minute))
	fresh, err := idx.Prints(context.Background(), 10)
	if err != nil {
		t.Fatalf("Prints: %v", err)
	}
	if !reflect.DeepEqual(fresh, []int{1, 2}) {
		t.Fatalf("Prints = %v, want re-read view", fresh)
	}
}

func TestReloadForcesReread(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "print_index.json")
	base := time.Now().Add(-time.Hour)
	writeIndex(t, path, `{"9": [4]}`, base)

	idx := NewFile(path, discardLogger())
	if _, err := idx.Prints(context.Background(), 9); err != nil {
		t.Fatalf("Prints: %v", err)
	}

	writeIndex(t, path, `{"9": [4, 8]}`, base)
	if err := idx.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	fresh, err := idx.Prints(context.Background(), 9)
	if err != nil {
		t.Fatalf("Prints: %v", err)
	}
	if !reflect.DeepEqual(fresh, []int{4, 8}) {
		t.Fatalf("Prints = %v, want reloaded view", fresh)
	}
}
