// Package llm adapts interchangeable generation providers (a local Ollama
// server, OpenAI-compatible endpoints, the Anthropic API) to the bilingual
// classification, summarization and comparison needs of the print pipeline.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"TiskyPipeline/internal/config"
	"TiskyPipeline/internal/domain"
	"TiskyPipeline/internal/ports"
)

// backend is the provider-specific transport behind Client.
type backend interface {
	Available(ctx context.Context) bool
	Model() string
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Client runs the bilingual prompt flows on top of a generation backend.
// Provider failures degrade to empty outputs so callers can fall back to
// keyword classification; only context cancellation surfaces as an error.
type Client struct {
	backend  backend
	verbatim int
	max      int
	log      *slog.Logger
}

var _ ports.LLM = (*Client)(nil)

func newClient(b backend, cfg config.LLMConfig, log *slog.Logger) *Client {
	return &Client{
		backend:  b,
		verbatim: cfg.VerbatimChars,
		max:      cfg.MaxChars,
		log:      log,
	}
}

// Available reports whether the backend can serve requests. The probe result
// is memoized per client instance.
func (c *Client) Available(ctx context.Context) bool {
	return c.backend.Available(ctx)
}

// Model names the configured model, used to tag classification records.
func (c *Client) Model() string {
	return c.backend.Model()
}

// ClassifyBilingual assigns up to three free-form topic labels per language.
// Empty slices mean the model produced nothing usable.
func (c *Client) ClassifyBilingual(ctx context.Context, title, text string) ([]string, []string, error) {
	prepared := c.prepare(text)
	topicsCS, err := c.classify(ctx, promptsCS, title, prepared)
	if err != nil {
		return nil, nil, err
	}
	topicsEN, err := c.classify(ctx, promptsEN, title, prepared)
	if err != nil {
		return nil, nil, err
	}
	return topicsCS, topicsEN, nil
}

// SummarizeBilingual produces Czech and English summaries of what the print
// changes. Either side may come back empty on provider failure.
func (c *Client) SummarizeBilingual(ctx context.Context, title, text string) (domain.Bilingual, error) {
	prepared := c.prepare(text)
	cs, err := c.summarize(ctx, promptsCS, title, prepared)
	if err != nil {
		return domain.Bilingual{}, err
	}
	en, err := c.summarize(ctx, promptsEN, title, prepared)
	if err != nil {
		return domain.Bilingual{}, err
	}
	return domain.Bilingual{CS: cs, EN: en}, nil
}

// ConsolidateTopics asks the model to merge overlapping labels under
// canonical names, per language. Labels the model does not remap keep their
// original name, as does everything when the provider fails.
func (c *Client) ConsolidateTopics(ctx context.Context, labelsCS, labelsEN []string) (map[string]string, map[string]string, error) {
	mapCS, err := c.consolidate(ctx, promptsCS, labelsCS)
	if err != nil {
		return nil, nil, err
	}
	mapEN, err := c.consolidate(ctx, promptsEN, labelsEN)
	if err != nil {
		return nil, nil, err
	}
	return mapCS, mapEN, nil
}

// CompareVersions describes the differences between two print versions in
// both languages. Either side may come back empty on provider failure.
func (c *Client) CompareVersions(ctx context.Context, older, newer domain.VersionText) (domain.Bilingual, error) {
	oldText := c.prepare(older.Text)
	newText := c.prepare(newer.Text)
	cs, err := c.compare(ctx, promptsCS, older, newer, oldText, newText)
	if err != nil {
		return domain.Bilingual{}, err
	}
	en, err := c.compare(ctx, promptsEN, older, newer, oldText, newText)
	if err != nil {
		return domain.Bilingual{}, err
	}
	return domain.Bilingual{CS: cs, EN: en}, nil
}

func (c *Client) classify(ctx context.Context, p promptSet, title, prepared string) ([]string, error) {
	prompt := fmt.Sprintf(p.classifyUser, titleOr(Sanitize(title), p.noTitle), prepared)
	out, err := c.generate(ctx, p.classifySystem, prompt)
	if err != nil || out == "" {
		return nil, err
	}
	return ParseTopics(out), nil
}

func (c *Client) summarize(ctx context.Context, p promptSet, title, prepared string) (string, error) {
	prompt := fmt.Sprintf(p.summaryUser, titleOr(Sanitize(title), p.noTitle), prepared)
	out, err := c.generate(ctx, p.summarySystem, prompt)
	if err != nil {
		return "", err
	}
	return StripThink(out), nil
}

func (c *Client) consolidate(ctx context.Context, p promptSet, labels []string) (map[string]string, error) {
	if len(labels) == 0 {
		return map[string]string{}, nil
	}
	prompt := fmt.Sprintf(p.consolidateUser, len(labels), bulletList(labels))
	out, err := c.generate(ctx, p.consolidateSystem, prompt)
	if err != nil {
		return nil, err
	}
	return ParseMapping(out, labels), nil
}

func (c *Client) compare(ctx context.Context, p promptSet, older, newer domain.VersionText, oldText, newText string) (string, error) {
	prompt := fmt.Sprintf(p.compareUser,
		older.Ordinal, versionLabel(older), oldText,
		newer.Ordinal, versionLabel(newer), newText,
	)
	out, err := c.generate(ctx, p.compareSystem, prompt)
	if err != nil {
		return "", err
	}
	return StripThink(out), nil
}

// prepare sanitizes untrusted text and trims it to the prompt budget.
func (c *Client) prepare(text string) string {
	return TruncateLegislative(Sanitize(text), c.verbatim, c.max)
}

// generate runs one request. Provider errors are logged and absorbed into an
// empty response; a canceled context still propagates.
func (c *Client) generate(ctx context.Context, system, prompt string) (string, error) {
	out, err := c.backend.Generate(ctx, system, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.log.Debug("llm generation failed", "model", c.backend.Model(), "error", err)
		return "", nil
	}
	return out, nil
}
