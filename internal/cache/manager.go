// Package cache is the serving layer's read boundary over the pipeline's
// persisted artifacts. Memoized entries are keyed to the backing artifact's
// modification time, so the store on disk stays the sole source of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"TiskyPipeline/internal/domain"
	"TiskyPipeline/internal/infrastructure/store"
	"TiskyPipeline/internal/ports"
)

// Manager reads pipeline artifacts for the serving layer. The classification
// table and histories are memoized; everything else reads through.
type Manager struct {
	store   ports.ArtifactStore
	table   *store.ClassificationTable
	related ports.HistorySource
	log     *slog.Logger

	mu        sync.Mutex
	topics    map[int]topicsEntry
	histories map[string]*domain.PrintHistory
}

type topicsEntry struct {
	modTime time.Time
	records map[int]domain.ClassificationRecord
}

var _ ports.Invalidator = (*Manager)(nil)

// NewManager wires the cache manager. related may be nil; RelatedBills then
// serves cached artifacts only.
func NewManager(artifacts ports.ArtifactStore, table *store.ClassificationTable, related ports.HistorySource, log *slog.Logger) *Manager {
	return &Manager{
		store:     artifacts,
		table:     table,
		related:   related,
		log:       log,
		topics:    map[int]topicsEntry{},
		histories: map[string]*domain.PrintHistory{},
	}
}

// Topics returns the classification records of a period, re-reading the
// table only when its modification time has advanced.
func (m *Manager) Topics(ctx context.Context, period int) (map[int]domain.ClassificationRecord, error) {
	// A period that was never classified memoizes as an empty table under
	// the zero mod time until the pipeline writes one.
	modTime, err := m.store.ModTime(ctx, store.TopicsKey(period))
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return nil, fmt.Errorf("stat topics table: %w", err)
	}

	m.mu.Lock()
	if entry, ok := m.topics[period]; ok && entry.modTime.Equal(modTime) {
		m.mu.Unlock()
		return entry.records, nil
	}
	m.mu.Unlock()

	records, err := m.table.Load(ctx, period)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.topics[period] = topicsEntry{modTime: modTime, records: records}
	m.mu.Unlock()
	return records, nil
}

// History returns the legislative history of one print, memoized after the
// first read. Absent histories return ports.ErrNotFound.
func (m *Manager) History(ctx context.Context, period, ct int) (*domain.PrintHistory, error) {
	key := store.HistoryKey(period, ct)

	m.mu.Lock()
	if history, ok := m.histories[key]; ok {
		m.mu.Unlock()
		return history, nil
	}
	m.mu.Unlock()

	raw, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var history domain.PrintHistory
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", key, err)
	}

	m.mu.Lock()
	m.histories[key] = &history
	m.mu.Unlock()
	return &history, nil
}

// LawChanges returns the proposed law changes of one print. An empty slice
// with nil error is the "confirmed none" artifact; an absent artifact
// returns ports.ErrNotFound.
func (m *Manager) LawChanges(ctx context.Context, period, ct int) ([]domain.ProposedLawChange, error) {
	raw, err := m.store.Get(ctx, store.LawChangesKey(period, ct))
	if err != nil {
		return nil, err
	}
	var changes []domain.ProposedLawChange
	if err := json.Unmarshal(raw, &changes); err != nil {
		return nil, fmt.Errorf("decode law changes %d/%d: %w", period, ct, err)
	}
	return changes, nil
}

// SubVersions returns the sub-version scan result of one print.
func (m *Manager) SubVersions(ctx context.Context, period, ct int) ([]domain.SubVersion, error) {
	raw, err := m.store.Get(ctx, store.SubVersionsKey(period, ct))
	if err != nil {
		return nil, err
	}
	var versions []domain.SubVersion
	if err := json.Unmarshal(raw, &versions); err != nil {
		return nil, fmt.Errorf("decode sub-versions %d/%d: %w", period, ct, err)
	}
	return versions, nil
}

// VersionDiff returns the bilingual diff summary of one version pair. Either
// side may be empty when only the other language was produced.
func (m *Manager) VersionDiff(ctx context.Context, period, ct, ct1 int) (domain.Bilingual, error) {
	var diff domain.Bilingual
	cs, errCS := m.store.Get(ctx, store.VersionDiffKey(period, ct, ct1))
	en, errEN := m.store.Get(ctx, store.VersionDiffENKey(period, ct, ct1))
	if errCS != nil && errEN != nil {
		return diff, errCS
	}
	if errCS == nil {
		diff.CS = string(cs)
	}
	if errEN == nil {
		diff.EN = string(en)
	}
	return diff, nil
}

// PrintText returns the extracted text of a print's base version.
func (m *Manager) PrintText(ctx context.Context, period, ct int) (string, error) {
	raw, err := m.store.Get(ctx, store.TextKey(period, ct))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// HasPrintText reports whether a print's base text was extracted.
func (m *Manager) HasPrintText(ctx context.Context, period, ct int) bool {
	ok, err := m.store.Exists(ctx, store.TextKey(period, ct))
	return err == nil && ok
}

// AvailableTexts lists the prints of a period with an extracted base text,
// ascending.
func (m *Manager) AvailableTexts(ctx context.Context, period int) ([]int, error) {
	keys, err := m.store.List(ctx, store.TextPrefix(period))
	if err != nil {
		return nil, fmt.Errorf("list texts: %w", err)
	}

	var cts []int
	for _, key := range keys {
		stem := strings.TrimSuffix(path.Base(key), ".txt")
		if _, _, sub := store.SplitSubVersionStem(stem); sub {
			continue
		}
		ct, err := strconv.Atoi(stem)
		if err != nil {
			continue
		}
		cts = append(cts, ct)
	}
	sort.Ints(cts)
	return cts, nil
}

// AvailableDiffs lists, per print, the sub-version ordinals of a period that
// have a stored diff summary. Pairs that only produced one language count
// once.
func (m *Manager) AvailableDiffs(ctx context.Context, period int) (map[int][]int, error) {
	keys, err := m.store.List(ctx, store.VersionDiffPrefix(period))
	if err != nil {
		return nil, fmt.Errorf("list version diffs: %w", err)
	}

	pairs := make(map[int][]int)
	seen := make(map[string]bool)
	for _, key := range keys {
		stem := strings.TrimSuffix(path.Base(key), ".txt")
		stem = strings.TrimSuffix(stem, "_en")
		if seen[stem] {
			continue
		}
		ct, ct1, ok := store.SplitSubVersionStem(stem)
		if !ok {
			continue
		}
		seen[stem] = true
		pairs[ct] = append(pairs[ct], ct1)
	}
	for ct := range pairs {
		sort.Ints(pairs[ct])
	}
	return pairs, nil
}

// RelatedBills returns the bills touching the same law, scraping on a cache
// miss and persisting the result for the next reader.
func (m *Manager) RelatedBills(ctx context.Context, idsb int) ([]domain.RelatedBill, error) {
	key := store.RelatedBillsKey(idsb)
	if raw, err := m.store.Get(ctx, key); err == nil {
		var bills []domain.RelatedBill
		if err := json.Unmarshal(raw, &bills); err != nil {
			return nil, fmt.Errorf("decode related bills %d: %w", idsb, err)
		}
		return bills, nil
	} else if !errors.Is(err, ports.ErrNotFound) {
		return nil, err
	}

	if m.related == nil {
		return nil, ports.ErrNotFound
	}
	bills, err := m.related.FetchRelatedBills(ctx, idsb)
	if err != nil {
		return nil, fmt.Errorf("fetch related bills %d: %w", idsb, err)
	}
	if bills == nil {
		bills = []domain.RelatedBill{}
	}

	raw, err := json.Marshal(bills)
	if err == nil {
		if putErr := m.store.Put(ctx, key, raw); putErr != nil {
			m.log.Warn("related bills cache write failed", "idsb", idsb, "error", putErr)
		}
	}
	return bills, nil
}

// Invalidate drops every memoized entry for the period. The pipeline's
// completion callback calls this so the next read re-derives from the fresh
// artifacts.
func (m *Manager) Invalidate(period int) {
	prefix := store.HistoryPrefix(period)

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.topics, period)
	for key := range m.histories {
		if strings.HasPrefix(key, prefix) {
			delete(m.histories, key)
		}
	}
}
