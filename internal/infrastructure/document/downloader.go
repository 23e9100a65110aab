// Package document moves print documents from the parliament site into the
// artifact store and renders them to plain text.
package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"TiskyPipeline/internal/ports"
	"TiskyPipeline/internal/ratelimit"
)

// Downloader fetches PDF documents by their id and stores them whole. The
// store write is atomic, so an interrupted download leaves no artifact
// behind and the next run retries it.
type Downloader struct {
	http    *http.Client
	baseURL string
	store   ports.ArtifactStore
	limiter *ratelimit.Limiter
	log     *slog.Logger
}

var _ ports.Downloader = (*Downloader)(nil)

// NewDownloader wires a downloader against the site root and artifact store.
func NewDownloader(baseURL string, store ports.ArtifactStore, limiter *ratelimit.Limiter, log *slog.Logger) *Downloader {
	return &Downloader{
		http:    &http.Client{Timeout: 60 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		store:   store,
		limiter: limiter,
		log:     log,
	}
}

// Fetch downloads one document into the store under key. A key that is
// already present is left alone unless force is set.
func (d *Downloader) Fetch(ctx context.Context, documentID int, key string, force bool) (bool, error) {
	if !force {
		exists, err := d.store.Exists(ctx, key)
		if err != nil {
			return false, fmt.Errorf("check %s: %w", key, err)
		}
		if exists {
			return false, nil
		}
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("limiter: %w", err)
	}

	docURL := fmt.Sprintf("%s/sqw/text/orig2.sqw?idd=%d", d.baseURL, documentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("download idd=%d: %w", documentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("download idd=%d: unexpected status %s", documentID, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read idd=%d: %w", documentID, err)
	}
	if err := d.store.Put(ctx, key, data); err != nil {
		return false, fmt.Errorf("store %s: %w", key, err)
	}

	d.log.Debug("downloaded document", "idd", documentID, "key", key, "bytes", len(data))
	return true, nil
}
