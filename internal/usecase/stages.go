package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"TiskyPipeline/internal/domain"
	"TiskyPipeline/internal/infrastructure/store"
	"TiskyPipeline/internal/ports"
)

// maxSubVersions bounds the sub-version probe walk per print.
const maxSubVersions = 20

// consolidationThreshold is the distinct-label count below which topic
// consolidation is not worth an LLM round trip.
const consolidationThreshold = 10

// Stages holds the per-period pipeline stages in their fixed execution
// order. Every stage is resumable: cached artifacts are never redone, and a
// failure on one print is logged and skipped, never aborting the stage.
type Stages struct {
	store      ports.ArtifactStore
	table      *store.ClassificationTable
	history    ports.HistorySource
	documents  ports.DocumentSource
	downloader ports.Downloader
	extractor  ports.TextExtractor
	fallback   ports.FallbackClassifier
	log        *slog.Logger
}

// NewStages wires the stage implementations.
func NewStages(
	artifacts ports.ArtifactStore,
	table *store.ClassificationTable,
	history ports.HistorySource,
	documents ports.DocumentSource,
	downloader ports.Downloader,
	extractor ports.TextExtractor,
	fallback ports.FallbackClassifier,
	log *slog.Logger,
) *Stages {
	return &Stages{
		store:      artifacts,
		table:      table,
		history:    history,
		documents:  documents,
		downloader: downloader,
		extractor:  extractor,
		fallback:   fallback,
		log:        log,
	}
}

// ScrapeHistories fetches and caches the legislative history of every print.
// Cached prints are loaded from the store rather than re-scraped.
func (s *Stages) ScrapeHistories(ctx context.Context, period int, prints []int, force bool) map[int]*domain.PrintHistory {
	histories := make(map[int]*domain.PrintHistory)

	for _, ct := range prints {
		if err := ctx.Err(); err != nil {
			return histories
		}

		key := store.HistoryKey(period, ct)
		if !force {
			if cached, ok := s.loadHistory(ctx, key); ok {
				histories[ct] = cached
				continue
			}
		}

		history, err := s.history.FetchHistory(ctx, period, ct)
		if err != nil {
			s.log.Warn("history scrape failed", "period", period, "ct", ct, "error", err)
			continue
		}
		if history == nil {
			continue
		}

		raw, err := json.Marshal(history)
		if err != nil {
			s.log.Warn("history encode failed", "period", period, "ct", ct, "error", err)
			continue
		}
		if err := s.store.Put(ctx, key, raw); err != nil {
			s.log.Warn("history store failed", "period", period, "ct", ct, "error", err)
			continue
		}
		histories[ct] = history
	}

	s.log.Info("histories stage done", "period", period, "count", len(histories))
	return histories
}

func (s *Stages) loadHistory(ctx context.Context, key string) (*domain.PrintHistory, bool) {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var history domain.PrintHistory
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, false
	}
	return &history, true
}

// ProcessDocuments resolves, downloads, and extracts the main document of
// every print. Returns the pdf and text artifact keys per print; partial
// coverage is expected (prints without documents or with scanned PDFs are
// simply absent from the maps).
func (s *Stages) ProcessDocuments(ctx context.Context, period int, prints []int, force bool) (map[int]string, map[int]string) {
	pdfKeys := make(map[int]string)
	textKeys := make(map[int]string)

	for _, ct := range prints {
		if err := ctx.Err(); err != nil {
			return pdfKeys, textKeys
		}

		pdfKey := store.PDFKey(period, ct)
		textKey := store.TextKey(period, ct)

		if !force {
			if ok, _ := s.store.Exists(ctx, textKey); ok {
				// The PDF may have been pruned after extraction; only
				// report keys that still resolve.
				if pdfOK, _ := s.store.Exists(ctx, pdfKey); pdfOK {
					pdfKeys[ct] = pdfKey
				}
				textKeys[ct] = textKey
				continue
			}
			if ok, _ := s.store.Exists(ctx, pdfKey); ok {
				pdfKeys[ct] = pdfKey
				if s.extract(ctx, pdfKey, textKey, force) {
					textKeys[ct] = textKey
				}
				continue
			}
		}

		docs, found, err := s.documents.FetchDocuments(ctx, period, ct, 0)
		if err != nil {
			s.log.Warn("document listing failed", "period", period, "ct", ct, "error", err)
			continue
		}
		if !found {
			continue
		}
		best, ok := bestDocument(docs)
		if !ok {
			continue
		}

		if _, err := s.downloader.Fetch(ctx, best.ID, pdfKey, force); err != nil {
			s.log.Warn("document download failed", "period", period, "ct", ct, "idd", best.ID, "error", err)
			continue
		}
		pdfKeys[ct] = pdfKey
		if s.extract(ctx, pdfKey, textKey, force) {
			textKeys[ct] = textKey
		}
	}

	s.log.Info("documents stage done", "period", period, "pdfs", len(pdfKeys), "texts", len(textKeys))
	return pdfKeys, textKeys
}

// extract runs the text extractor and reports whether a text artifact exists
// afterwards, regardless of whether this call produced it.
func (s *Stages) extract(ctx context.Context, pdfKey, textKey string, force bool) bool {
	if _, err := s.extractor.Extract(ctx, pdfKey, textKey, force); err != nil {
		s.log.Warn("text extraction failed", "key", pdfKey, "error", err)
		return false
	}
	ok, _ := s.store.Exists(ctx, textKey)
	return ok
}

func bestDocument(docs []domain.Document) (domain.Document, bool) {
	if len(docs) == 0 {
		return domain.Document{}, false
	}
	for _, doc := range docs {
		if doc.IsComplete {
			return doc, true
		}
	}
	return docs[0], true
}

// ClassifyAndPersist assigns topics and summaries to every print that has
// extracted text but no classification record yet. The table is rewritten
// after every item, so a crash loses at most one print of work. Prints the
// model yields nothing for fall back to the keyword classifier.
func (s *Stages) ClassifyAndPersist(ctx context.Context, period int, textKeys map[int]string, llm ports.LLM) (map[int]domain.ClassificationRecord, error) {
	records, err := s.table.Load(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("load classifications: %w", err)
	}

	var remaining []int
	for ct := range textKeys {
		if _, done := records[ct]; !done {
			remaining = append(remaining, ct)
		}
	}
	sort.Ints(remaining)
	if len(remaining) == 0 {
		s.log.Info("classification stage done", "period", period, "new", 0, "total", len(records))
		return records, nil
	}

	available := llm != nil && llm.Available(ctx)
	if !available {
		s.log.Warn("llm unavailable, classifying by keywords", "period", period, "remaining", len(remaining))
	}

	for _, ct := range remaining {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		raw, err := s.store.Get(ctx, textKeys[ct])
		if err != nil {
			s.log.Warn("classification text missing", "period", period, "ct", ct, "error", err)
			continue
		}
		text := string(raw)

		record := s.classifyOne(ctx, ct, "", text, llm, available)
		records[ct] = record

		if err := s.table.Save(ctx, period, records); err != nil {
			return records, fmt.Errorf("save classifications: %w", err)
		}
	}

	s.log.Info("classification stage done", "period", period, "new", len(remaining), "total", len(records))
	return records, nil
}

func (s *Stages) classifyOne(ctx context.Context, ct int, title, text string, llm ports.LLM, available bool) domain.ClassificationRecord {
	if available {
		topicsCS, topicsEN, err := llm.ClassifyBilingual(ctx, title, text)
		if err == nil && len(topicsCS) > 0 {
			summary, sErr := llm.SummarizeBilingual(ctx, title, text)
			if sErr != nil {
				summary = domain.Bilingual{}
			}
			return domain.ClassificationRecord{
				CT:        ct,
				TopicsCS:  topicsCS,
				TopicsEN:  topicsEN,
				SummaryCS: summary.CS,
				SummaryEN: summary.EN,
				Source:    "llm:" + llm.Model(),
			}
		}
		if err != nil {
			s.log.Warn("llm classification failed, using keywords", "ct", ct, "error", err)
		}
	}

	record := domain.ClassificationRecord{CT: ct, Source: domain.SourceKeyword}
	if labels := s.fallback.Classify(title, text); len(labels) > 0 {
		record.TopicsCS = []string{labels[0].CS}
		record.TopicsEN = []string{labels[0].EN}
	}
	return record
}

// ConsolidateTopics merges near-duplicate topic labels under canonical
// names, once per period. The completion marker makes the pass one-shot; a
// small vocabulary skips the model call entirely. When the model is
// unavailable no marker is written, so the next run retries.
func (s *Stages) ConsolidateTopics(ctx context.Context, period int, llm ports.LLM) error {
	// A cancelled run must not write the one-shot marker.
	if err := ctx.Err(); err != nil {
		return err
	}

	marker := store.ConsolidationMarkerKey(period)
	if done, err := s.store.Exists(ctx, marker); err != nil {
		return fmt.Errorf("check consolidation marker: %w", err)
	} else if done {
		return nil
	}

	records, err := s.table.Load(ctx, period)
	if err != nil {
		return fmt.Errorf("load classifications: %w", err)
	}

	labelsCS := distinctLabels(records, func(r domain.ClassificationRecord) []string { return r.TopicsCS })
	labelsEN := distinctLabels(records, func(r domain.ClassificationRecord) []string { return r.TopicsEN })

	if len(labelsCS) <= consolidationThreshold && len(labelsEN) <= consolidationThreshold {
		s.log.Info("topic vocabulary small, skipping consolidation", "period", period, "cs", len(labelsCS), "en", len(labelsEN))
		return s.store.Put(ctx, marker, []byte{})
	}

	if llm == nil || !llm.Available(ctx) {
		s.log.Warn("llm unavailable, consolidation deferred", "period", period)
		return nil
	}

	mapCS, mapEN, err := llm.ConsolidateTopics(ctx, labelsCS, labelsEN)
	if err != nil {
		return fmt.Errorf("consolidate topics: %w", err)
	}

	for ct, record := range records {
		record.TopicsCS = remapLabels(record.TopicsCS, mapCS)
		record.TopicsEN = remapLabels(record.TopicsEN, mapEN)
		records[ct] = record
	}
	if err := s.table.Save(ctx, period, records); err != nil {
		return fmt.Errorf("save consolidated table: %w", err)
	}

	s.log.Info("topics consolidated", "period", period, "cs", len(labelsCS), "en", len(labelsEN))
	return s.store.Put(ctx, marker, []byte{})
}

func distinctLabels(records map[int]domain.ClassificationRecord, pick func(domain.ClassificationRecord) []string) []string {
	seen := make(map[string]bool)
	var labels []string
	cts := make([]int, 0, len(records))
	for ct := range records {
		cts = append(cts, ct)
	}
	sort.Ints(cts)
	for _, ct := range cts {
		for _, label := range pick(records[ct]) {
			if label != "" && !seen[label] {
				seen[label] = true
				labels = append(labels, label)
			}
		}
	}
	return labels
}

// remapLabels applies a canonical mapping and deduplicates while preserving
// first-seen order. Unmapped labels pass through unchanged.
func remapLabels(labels []string, mapping map[string]string) []string {
	if len(labels) == 0 {
		return labels
	}
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if canonical, ok := mapping[label]; ok && canonical != "" {
			label = canonical
		}
		if !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}
	return out
}

// ScrapeLawChanges fetches and caches the proposed law changes of every
// print. An empty array artifact records "confirmed none", distinct from a
// print that was never attempted.
func (s *Stages) ScrapeLawChanges(ctx context.Context, period int, prints []int, force bool) map[int][]domain.ProposedLawChange {
	changes := make(map[int][]domain.ProposedLawChange)

	for _, ct := range prints {
		if err := ctx.Err(); err != nil {
			return changes
		}

		key := store.LawChangesKey(period, ct)
		if !force {
			if raw, err := s.store.Get(ctx, key); err == nil {
				var cached []domain.ProposedLawChange
				if json.Unmarshal(raw, &cached) == nil {
					changes[ct] = cached
					continue
				}
			} else if !errors.Is(err, ports.ErrNotFound) {
				s.log.Warn("law changes read failed", "period", period, "ct", ct, "error", err)
				continue
			}
		}

		scraped, err := s.history.FetchLawChanges(ctx, period, ct)
		if err != nil {
			s.log.Warn("law changes scrape failed", "period", period, "ct", ct, "error", err)
			continue
		}
		if scraped == nil {
			scraped = []domain.ProposedLawChange{}
		}

		raw, err := json.Marshal(scraped)
		if err != nil {
			continue
		}
		if err := s.store.Put(ctx, key, raw); err != nil {
			s.log.Warn("law changes store failed", "period", period, "ct", ct, "error", err)
			continue
		}
		changes[ct] = scraped
	}

	s.log.Info("law changes stage done", "period", period, "count", len(changes))
	return changes
}

// ProcessSubVersions enumerates the amendment sub-versions of every print,
// downloading and extracting each versioned document next to the base files.
func (s *Stages) ProcessSubVersions(ctx context.Context, period int, prints []int, force bool) map[int][]domain.SubVersion {
	versions := make(map[int][]domain.SubVersion)

	for _, ct := range prints {
		if err := ctx.Err(); err != nil {
			return versions
		}

		key := store.SubVersionsKey(period, ct)
		if !force {
			if raw, err := s.store.Get(ctx, key); err == nil {
				var cached []domain.SubVersion
				if json.Unmarshal(raw, &cached) == nil {
					versions[ct] = cached
					continue
				}
			}
		}

		scanned, err := s.documents.EnumerateSubVersions(ctx, period, ct, maxSubVersions)
		if err != nil {
			s.log.Warn("sub-version scan failed", "period", period, "ct", ct, "error", err)
			continue
		}

		for i := range scanned {
			version := &scanned[i]
			if version.CT1 == 0 {
				ok, _ := s.store.Exists(ctx, store.TextKey(period, ct))
				version.HasText = ok
				continue
			}
			if version.DocumentID == 0 {
				continue
			}
			pdfKey := store.SubVersionPDFKey(period, ct, version.CT1)
			textKey := store.SubVersionTextKey(period, ct, version.CT1)
			if _, err := s.downloader.Fetch(ctx, version.DocumentID, pdfKey, force); err != nil {
				s.log.Warn("sub-version download failed", "period", period, "ct", ct, "ct1", version.CT1, "error", err)
				continue
			}
			version.HasPDF = true
			version.HasText = s.extract(ctx, pdfKey, textKey, force)
		}

		if scanned == nil {
			scanned = []domain.SubVersion{}
		}
		raw, err := json.Marshal(scanned)
		if err != nil {
			continue
		}
		if err := s.store.Put(ctx, key, raw); err != nil {
			s.log.Warn("sub-versions store failed", "period", period, "ct", ct, "error", err)
			continue
		}
		versions[ct] = scanned
	}

	s.log.Info("sub-versions stage done", "period", period, "count", len(versions))
	return versions
}

// AnalyzeDiffs produces bilingual difference summaries for every consecutive
// pair of extracted text versions of a print. Cached pairs are never
// recomputed; without a model the whole stage is skipped.
func (s *Stages) AnalyzeDiffs(ctx context.Context, period int, subVersions map[int][]domain.SubVersion, llm ports.LLM) (map[string]string, map[string]string) {
	diffsCS := make(map[string]string)
	diffsEN := make(map[string]string)

	if llm == nil || !llm.Available(ctx) {
		s.log.Info("llm unavailable, skipping version diffs", "period", period)
		return diffsCS, diffsEN
	}

	cts := make([]int, 0, len(subVersions))
	for ct := range subVersions {
		cts = append(cts, ct)
	}
	sort.Ints(cts)

	for _, ct := range cts {
		if err := ctx.Err(); err != nil {
			return diffsCS, diffsEN
		}
		texts := s.versionTexts(ctx, period, ct, subVersions[ct])
		if len(texts) < 2 {
			continue
		}
		for i := 1; i < len(texts); i++ {
			s.diffPair(ctx, period, ct, texts[i-1], texts[i], llm, diffsCS, diffsEN)
		}
	}

	s.log.Info("version diffs stage done", "period", period, "pairs", len(diffsCS))
	return diffsCS, diffsEN
}

// versionTexts loads every extracted text revision of a print in ordinal
// order, the base text as ordinal 0.
func (s *Stages) versionTexts(ctx context.Context, period, ct int, versions []domain.SubVersion) []domain.VersionText {
	var texts []domain.VersionText

	labels := make(map[int]string, len(versions))
	for _, version := range versions {
		labels[version.CT1] = version.Description
	}

	if raw, err := s.store.Get(ctx, store.TextKey(period, ct)); err == nil {
		texts = append(texts, domain.VersionText{Ordinal: 0, Label: labels[0], Text: string(raw)})
	}
	for _, version := range versions {
		if version.CT1 == 0 || !version.HasText {
			continue
		}
		raw, err := s.store.Get(ctx, store.SubVersionTextKey(period, ct, version.CT1))
		if err != nil {
			continue
		}
		texts = append(texts, domain.VersionText{Ordinal: version.CT1, Label: version.Description, Text: string(raw)})
	}

	sort.Slice(texts, func(i, j int) bool { return texts[i].Ordinal < texts[j].Ordinal })
	return texts
}

func (s *Stages) diffPair(ctx context.Context, period, ct int, older, newer domain.VersionText, llm ports.LLM, diffsCS, diffsEN map[string]string) {
	pair := fmt.Sprintf("%d_%d", ct, newer.Ordinal)
	keyCS := store.VersionDiffKey(period, ct, newer.Ordinal)
	keyEN := store.VersionDiffENKey(period, ct, newer.Ordinal)

	cachedCS, errCS := s.store.Get(ctx, keyCS)
	cachedEN, errEN := s.store.Get(ctx, keyEN)
	if errCS == nil && errEN == nil {
		diffsCS[pair] = string(cachedCS)
		diffsEN[pair] = string(cachedEN)
		return
	}

	summary, err := llm.CompareVersions(ctx, older, newer)
	if err != nil {
		s.log.Warn("version comparison failed", "period", period, "ct", ct, "ct1", newer.Ordinal, "error", err)
		return
	}

	if errCS == nil {
		summary.CS = string(cachedCS)
	} else if strings.TrimSpace(summary.CS) != "" {
		if err := s.store.Put(ctx, keyCS, []byte(summary.CS)); err != nil {
			s.log.Warn("diff store failed", "key", keyCS, "error", err)
		}
	}
	if errEN == nil {
		summary.EN = string(cachedEN)
	} else if strings.TrimSpace(summary.EN) != "" {
		if err := s.store.Put(ctx, keyEN, []byte(summary.EN)); err != nil {
			s.log.Warn("diff store failed", "key", keyEN, "error", err)
		}
	}

	if summary.CS != "" {
		diffsCS[pair] = summary.CS
	}
	if summary.EN != "" {
		diffsEN[pair] = summary.EN
	}
}

// buildResult aggregates the stage outputs for the completion callback.
func buildResult(period int, histories map[int]*domain.PrintHistory, pdfKeys, textKeys map[int]string,
	records map[int]domain.ClassificationRecord, lawChanges map[int][]domain.ProposedLawChange,
	subVersions map[int][]domain.SubVersion, diffsCS, diffsEN map[string]string) domain.PeriodResult {

	result := domain.PeriodResult{
		Period:         period,
		Histories:      histories,
		PDFKeys:        pdfKeys,
		TextKeys:       textKeys,
		Topics:         make(map[int][]string, len(records)),
		TopicsEN:       make(map[int][]string, len(records)),
		Summaries:      make(map[int]string, len(records)),
		SummariesEN:    make(map[int]string, len(records)),
		LawChanges:     lawChanges,
		SubVersions:    subVersions,
		VersionDiffs:   diffsCS,
		VersionDiffsEN: diffsEN,
	}
	for ct, record := range records {
		result.Topics[ct] = record.TopicsCS
		result.TopicsEN[ct] = record.TopicsEN
		result.Summaries[ct] = record.SummaryCS
		result.SummariesEN[ct] = record.SummaryEN
	}
	return result
}
