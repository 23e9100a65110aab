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

	"TiskyPipeline/internal/config"
)

// openAI talks to any OpenAI-compatible chat completion endpoint. The
// /no_think marker is an Ollama convention, so it is stripped from prompts
// before they leave for a hosted API.
type openAI struct {
	http   *http.Client
	base   string
	model  string
	apiKey string
	log    *slog.Logger

	probe     sync.Once
	available bool
}

func newOpenAI(cfg config.OpenAIConfig, log *slog.Logger) *openAI {
	return &openAI{
		http:   &http.Client{Timeout: defaultLLMTimeout},
		base:   strings.TrimSuffix(cfg.BaseURL, "/"),
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		log:    log,
	}
}

func (o *openAI) Model() string {
	return o.model
}

// Available checks that the models endpoint answers. The probe happens once
// per client instance.
func (o *openAI) Available(ctx context.Context) bool {
	o.probe.Do(func() {
		o.available = o.probeEndpoint(ctx)
	})
	return o.available
}

func (o *openAI) probeEndpoint(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.base+"/models", nil)
	if err != nil {
		return false
	}
	o.authorize(req)

	resp, err := o.http.Do(req)
	if err != nil {
		o.log.Info("openai endpoint not available", "url", o.base)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		o.log.Info("openai endpoint not available", "url", o.base, "status", resp.StatusCode)
		return false
	}
	return true
}

func (o *openAI) Generate(ctx context.Context, system, prompt string) (string, error) {
	system = strings.TrimSpace(strings.ReplaceAll(system, "/no_think", ""))
	prompt = strings.TrimSpace(strings.ReplaceAll(prompt, "/no_think", ""))

	body, err := json.Marshal(map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	o.authorize(req)

	resp, err := o.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return payload.Choices[0].Message.Content, nil
}

func (o *openAI) authorize(req *http.Request) {
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
}
