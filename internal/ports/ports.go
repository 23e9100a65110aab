package ports

import (
	"context"
	"errors"
	"time"

	"TiskyPipeline/internal/domain"
)

// ErrNotFound is returned by ArtifactStore.Get for keys that were never written.
var ErrNotFound = errors.New("artifact not found")

// ArtifactStore is the keyed blob store every pipeline stage persists through.
// An artifact's presence is the sole source of truth for "already processed".
type ArtifactStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	ModTime(ctx context.Context, key string) (time.Time, error) // ErrNotFound when absent
}

// HistorySource scrapes legislative metadata pages for a print.
type HistorySource interface {
	FetchHistory(ctx context.Context, period, ct int) (*domain.PrintHistory, error)
	FetchLawChanges(ctx context.Context, period, ct int) ([]domain.ProposedLawChange, error)
	FetchRelatedBills(ctx context.Context, idsb int) ([]domain.RelatedBill, error)
}

// DocumentSource scrapes document listings and sub-version pages.
// FetchDocuments reports found=false when the page itself is absent, which
// is distinct from a present page listing no documents.
type DocumentSource interface {
	FetchDocuments(ctx context.Context, period, ct, ct1 int) (docs []domain.Document, found bool, err error)
	EnumerateSubVersions(ctx context.Context, period, ct, maxVersions int) ([]domain.SubVersion, error)
}

// Downloader streams a document into the artifact store.
// Returns fetched=false when the key was already cached and force was unset.
type Downloader interface {
	Fetch(ctx context.Context, documentID int, key string, force bool) (fetched bool, err error)
}

// TextExtractor renders a cached PDF artifact into plain text.
// Returns extracted=false when the text key was already cached, or when the
// PDF yields only whitespace (the "no text" outcome, nothing is written).
type TextExtractor interface {
	Extract(ctx context.Context, pdfKey, textKey string, force bool) (extracted bool, err error)
}

// LLM is the uniform contract over generation providers. Availability is
// probed once per client instance and memoized; construct a fresh client per
// pipeline stage to re-probe.
type LLM interface {
	Available(ctx context.Context) bool
	Model() string
	ClassifyBilingual(ctx context.Context, title, text string) (topicsCS, topicsEN []string, err error)
	SummarizeBilingual(ctx context.Context, title, text string) (domain.Bilingual, error)
	ConsolidateTopics(ctx context.Context, labelsCS, labelsEN []string) (mapCS, mapEN map[string]string, err error)
	CompareVersions(ctx context.Context, older, newer domain.VersionText) (domain.Bilingual, error)
}

// LLMFactory builds a fresh LLM client, re-probing provider availability.
type LLMFactory func() LLM

// FallbackClassifier assigns topics deterministically when no LLM can.
// Labels are ranked pairs of (Czech, English), capped by the implementation.
type FallbackClassifier interface {
	Classify(title, text string) []domain.Bilingual
}

// PrintIndex supplies the set of print numbers per electoral period. The
// index is produced upstream from the parliament's bulk data exports.
type PrintIndex interface {
	Periods(ctx context.Context) ([]int, error)
	Prints(ctx context.Context, period int) ([]int, error)
	Reload(ctx context.Context) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// Invalidator drops read-side caches for a period so the next read
// re-derives from the freshly persisted artifacts.
type Invalidator interface {
	Invalidate(period int)
}

// Notifier announces completed period runs to an external channel. The
// pipeline treats it as an optional capability; NopNotifier is the default.
type Notifier interface {
	PeriodCompleted(ctx context.Context, result domain.PeriodResult) error
}

// NopNotifier discards every notification.
type NopNotifier struct{}

// PeriodCompleted does nothing.
func (NopNotifier) PeriodCompleted(context.Context, domain.PeriodResult) error { return nil }
