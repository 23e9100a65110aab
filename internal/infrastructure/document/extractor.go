package document

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"TiskyPipeline/internal/ports"
)

// Extractor renders stored PDFs into plain-text artifacts.
type Extractor struct {
	store ports.ArtifactStore
	log   *slog.Logger
}

var _ ports.TextExtractor = (*Extractor)(nil)

// NewExtractor wires the extractor against the artifact store.
func NewExtractor(store ports.ArtifactStore, log *slog.Logger) *Extractor {
	return &Extractor{store: store, log: log}
}

// Extract renders the PDF at pdfKey to text at textKey, joining pages with
// blank lines. A PDF that yields only whitespace caches nothing; "no text"
// is a terminal outcome, not a retriable failure.
func (e *Extractor) Extract(ctx context.Context, pdfKey, textKey string, force bool) (bool, error) {
	if !force {
		exists, err := e.store.Exists(ctx, textKey)
		if err != nil {
			return false, fmt.Errorf("check %s: %w", textKey, err)
		}
		if exists {
			return false, nil
		}
	}

	raw, err := e.store.Get(ctx, pdfKey)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", pdfKey, err)
	}

	text, err := extractText(raw)
	if err != nil {
		return false, fmt.Errorf("extract %s: %w", pdfKey, err)
	}
	if strings.TrimSpace(text) == "" {
		e.log.Warn("pdf yielded no text, likely scanned", "key", pdfKey)
		return false, nil
	}

	if err := e.store.Put(ctx, textKey, []byte(text)); err != nil {
		return false, fmt.Errorf("store %s: %w", textKey, err)
	}
	e.log.Debug("extracted text", "key", textKey, "chars", len(text))
	return true, nil
}

// extractText joins the plain text of every page. The parser panics on some
// malformed files, so the recover turns that into a plain error.
func extractText(raw []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n\n"), nil
}
