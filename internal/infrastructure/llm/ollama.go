package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"TiskyPipeline/internal/config"
)

const (
	ollamaHealthTimeout = 5 * time.Second
	defaultLLMTimeout   = 120 * time.Second
)

// ollama talks to a local Ollama server through its generate API.
type ollama struct {
	http   *http.Client
	health *http.Client
	base   string
	model  string
	apiKey string
	log    *slog.Logger

	probe     sync.Once
	available bool
}

func newOllama(cfg config.OllamaConfig, log *slog.Logger) *ollama {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}
	return &ollama{
		http:   &http.Client{Timeout: timeout},
		health: &http.Client{Timeout: ollamaHealthTimeout},
		base:   strings.TrimSuffix(cfg.URL, "/"),
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		log:    log,
	}
}

func (o *ollama) Model() string {
	return o.model
}

// Available reports whether the server runs and serves the configured model.
// The probe happens once per client instance.
func (o *ollama) Available(ctx context.Context) bool {
	o.probe.Do(func() {
		o.available = o.probeModel(ctx)
	})
	return o.available
}

func (o *ollama) probeModel(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.base+"/api/tags", nil)
	if err != nil {
		return false
	}
	o.authorize(req)

	resp, err := o.health.Do(req)
	if err != nil {
		o.log.Info("ollama not available", "url", o.base)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		o.log.Info("ollama not available", "url", o.base, "status", resp.StatusCode)
		return false
	}

	var payload struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false
	}

	names := make([]string, 0, len(payload.Models))
	for _, m := range payload.Models {
		names = append(names, m.Name)
	}
	for _, name := range names {
		if o.matchesModel(name) {
			o.log.Info("ollama available", "model", o.model)
			return true
		}
	}
	o.log.Info("ollama running but model not found", "model", o.model, "available", strings.Join(names, ", "))
	return false
}

// matchesModel compares model names with or without the tag suffix, so
// "qwen3" matches "qwen3:8b" and vice versa.
func (o *ollama) matchesModel(name string) bool {
	if name == o.model {
		return true
	}
	if strings.HasPrefix(name, o.model+":") || strings.HasPrefix(o.model, name+":") {
		return true
	}
	base, _, _ := strings.Cut(o.model, ":")
	return name == base
}

func (o *ollama) Generate(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":  o.model,
		"prompt": prompt,
		"system": system,
		"stream": false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	o.authorize(req)

	resp, err := o.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("ollama error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var payload struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return payload.Response, nil
}

func (o *ollama) authorize(req *http.Request) {
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
}
