package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"TiskyPipeline/internal/domain"
	"TiskyPipeline/internal/infrastructure/store"
	"TiskyPipeline/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	dir     string
	store   *store.FS
	table   *store.ClassificationTable
	manager *Manager
}

func newFixture(t *testing.T, related ports.HistorySource) fixture {
	t.Helper()
	dir := t.TempDir()
	fs := store.NewFS(dir, discardLogger())
	table := store.NewClassificationTable(fs)
	return fixture{
		dir:     dir,
		store:   fs,
		table:   table,
		manager: NewManager(fs, table, related, discardLogger()),
	}
}

func TestTopicsReloadOnModTimeChange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)

	records := map[int]domain.ClassificationRecord{
		1: {CT: 1, TopicsCS: []string{"Finance"}, TopicsEN: []string{"Finance"}, Source: "keyword"},
	}
	if err := f.table.Save(ctx, 10, records); err != nil {
		t.Fatalf("save table: %v", err)
	}

	loaded, err := f.manager.Topics(ctx, 10)
	if err != nil {
		t.Fatalf("Topics: %v", err)
	}
	if !reflect.DeepEqual(loaded, records) {
		t.Fatalf("round-trip mismatch: %+v", loaded)
	}

	// A rewrite with an advanced mod time must be picked up.
	records[2] = domain.ClassificationRecord{CT: 2, TopicsCS: []string{"Doprava"}, TopicsEN: []string{"Transport"}, Source: "keyword"}
	if err := f.table.Save(ctx, 10, records); err != nil {
		t.Fatalf("rewrite table: %v", err)
	}
	tablePath := filepath.Join(f.dir, "tisky_meta", "10", "topics.csv")
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(tablePath, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	reloaded, err := f.manager.Topics(ctx, 10)
	if err != nil {
		t.Fatalf("Topics after rewrite: %v", err)
	}
	if len(reloaded) != 2 {
		t.Fatalf("reloaded = %+v, want 2 records", reloaded)
	}
}

func TestTopicsOfUnclassifiedPeriodIsEmpty(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	records, err := f.manager.Topics(context.Background(), 7)
	if err != nil {
		t.Fatalf("Topics: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %+v, want empty", records)
	}
}

func TestHistoryMemoizedUntilInvalidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)

	put := func(submitter string) {
		raw, _ := json.Marshal(domain.PrintHistory{CT: 650, Period: 10, Submitter: submitter})
		if err := f.store.Put(ctx, store.HistoryKey(10, 650), raw); err != nil {
			t.Fatalf("put history: %v", err)
		}
	}
	put("vláda")

	history, err := f.manager.History(ctx, 10, 650)
	if err != nil || history.Submitter != "vláda" {
		t.Fatalf("History: %+v, %v", history, err)
	}

	// The memoized entry shadows the rewrite until the period is
	// invalidated, which the pipeline's completion callback does.
	put("skupina poslanců")
	history, _ = f.manager.History(ctx, 10, 650)
	if history.Submitter != "vláda" {
		t.Fatalf("memoized entry lost: %+v", history)
	}

	f.manager.Invalidate(10)
	history, _ = f.manager.History(ctx, 10, 650)
	if history.Submitter != "skupina poslanců" {
		t.Fatalf("invalidate did not drop the entry: %+v", history)
	}
}

func TestReadThroughArtifacts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)

	changes := []domain.ProposedLawChange{{Citation: "111/1998 Sb.", ChangeKind: "novela", TargetLaw: "zákon o vysokých školách"}}
	raw, _ := json.Marshal(changes)
	if err := f.store.Put(ctx, store.LawChangesKey(10, 650), raw); err != nil {
		t.Fatalf("put law changes: %v", err)
	}
	loaded, err := f.manager.LawChanges(ctx, 10, 650)
	if err != nil || !reflect.DeepEqual(loaded, changes) {
		t.Fatalf("LawChanges = %+v, %v", loaded, err)
	}

	// Confirmed-none sentinel decodes as an empty slice with nil error.
	if err := f.store.Put(ctx, store.LawChangesKey(10, 651), []byte("[]")); err != nil {
		t.Fatalf("put sentinel: %v", err)
	}
	if loaded, err := f.manager.LawChanges(ctx, 10, 651); err != nil || len(loaded) != 0 {
		t.Fatalf("sentinel read = %+v, %v", loaded, err)
	}
	// A print that was never attempted is ErrNotFound.
	if _, err := f.manager.LawChanges(ctx, 10, 652); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	versions := []domain.SubVersion{{Period: 10, CT: 650, CT1: 0, HasText: true}, {Period: 10, CT: 650, CT1: 1}}
	raw, _ = json.Marshal(versions)
	if err := f.store.Put(ctx, store.SubVersionsKey(10, 650), raw); err != nil {
		t.Fatalf("put sub-versions: %v", err)
	}
	if loaded, err := f.manager.SubVersions(ctx, 10, 650); err != nil || !reflect.DeepEqual(loaded, versions) {
		t.Fatalf("SubVersions = %+v, %v", loaded, err)
	}

	if err := f.store.Put(ctx, store.VersionDiffKey(10, 650, 1), []byte("rozdíl")); err != nil {
		t.Fatalf("put diff: %v", err)
	}
	diff, err := f.manager.VersionDiff(ctx, 10, 650, 1)
	if err != nil || diff.CS != "rozdíl" || diff.EN != "" {
		t.Fatalf("VersionDiff = %+v, %v", diff, err)
	}
}

func TestAvailableTextsSkipsSubVersions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)

	for _, key := range []string{
		store.TextKey(10, 650),
		store.TextKey(10, 12),
		store.SubVersionTextKey(10, 650, 1),
	} {
		if err := f.store.Put(ctx, key, []byte("x")); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	cts, err := f.manager.AvailableTexts(ctx, 10)
	if err != nil {
		t.Fatalf("AvailableTexts: %v", err)
	}
	if !reflect.DeepEqual(cts, []int{12, 650}) {
		t.Fatalf("cts = %v, want [12 650]", cts)
	}
	if !f.manager.HasPrintText(ctx, 10, 650) || f.manager.HasPrintText(ctx, 10, 99) {
		t.Fatal("HasPrintText mismatch")
	}
}

func TestAvailableDiffsGroupsPairs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)

	for _, key := range []string{
		store.VersionDiffKey(10, 650, 1),
		store.VersionDiffENKey(10, 650, 1),
		store.VersionDiffENKey(10, 650, 2),
		store.VersionDiffKey(10, 12, 1),
	} {
		if err := f.store.Put(ctx, key, []byte("x")); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	pairs, err := f.manager.AvailableDiffs(ctx, 10)
	if err != nil {
		t.Fatalf("AvailableDiffs: %v", err)
	}
	want := map[int][]int{650: {1, 2}, 12: {1}}
	if !reflect.DeepEqual(pairs, want) {
		t.Fatalf("pairs = %v, want %v", pairs, want)
	}
}

// scrapeCounter serves related bills and counts scrapes.
type scrapeCounter struct {
	bills []domain.RelatedBill
	calls atomic.Int64
}

func (s *scrapeCounter) FetchHistory(context.Context, int, int) (*domain.PrintHistory, error) {
	return nil, nil
}

func (s *scrapeCounter) FetchLawChanges(context.Context, int, int) ([]domain.ProposedLawChange, error) {
	return nil, nil
}

func (s *scrapeCounter) FetchRelatedBills(context.Context, int) ([]domain.RelatedBill, error) {
	s.calls.Add(1)
	return s.bills, nil
}

func TestRelatedBillsScrapeOnMissOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	source := &scrapeCounter{bills: []domain.RelatedBill{{DisplayNumber: "650/0", ShortTitle: "Novela zákona"}}}
	f := newFixture(t, source)

	first, err := f.manager.RelatedBills(ctx, 4242)
	if err != nil || len(first) != 1 {
		t.Fatalf("RelatedBills = %+v, %v", first, err)
	}
	second, err := f.manager.RelatedBills(ctx, 4242)
	if err != nil || !reflect.DeepEqual(first, second) {
		t.Fatalf("cached read = %+v, %v", second, err)
	}
	if got := source.calls.Load(); got != 1 {
		t.Fatalf("scrapes = %d, want 1", got)
	}
}
