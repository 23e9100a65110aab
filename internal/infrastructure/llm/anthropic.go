package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"

	"TiskyPipeline/internal/config"
)

const anthropicMaxTokens = 1024

// anthropicBackend sends prompts through the Anthropic API via llmkit.
type anthropicBackend struct {
	model  string
	apiKey string
}

func newAnthropic(cfg config.AnthropicConfig) *anthropicBackend {
	return &anthropicBackend{
		model:  cfg.Model,
		apiKey: cfg.APIKey,
	}
}

func (a *anthropicBackend) Model() string {
	return a.model
}

// Available only checks that a key is configured; a live probe would spend
// quota on every pipeline stage.
func (a *anthropicBackend) Available(_ context.Context) bool {
	return a.apiKey != ""
}

func (a *anthropicBackend) Generate(_ context.Context, system, prompt string) (string, error) {
	system = strings.TrimSpace(strings.ReplaceAll(system, "/no_think", ""))
	prompt = strings.TrimSpace(strings.ReplaceAll(prompt, "/no_think", ""))

	settings := types.RequestSettings{
		Model:     a.model,
		MaxTokens: anthropicMaxTokens,
	}
	response, err := anthropic.PromptWithSettings(system, prompt, "", a.apiKey, settings)
	if err != nil {
		return "", fmt.Errorf("anthropic prompt: %w", err)
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("anthropic returned no content")
	}
	return response.Content[0].Text, nil
}
