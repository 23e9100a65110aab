package llm

import (
	"strings"
	"testing"

	"TiskyPipeline/internal/config"
)

func factoryConfig(provider string) config.LLMConfig {
	return config.LLMConfig{
		Provider:      provider,
		Ollama:        config.OllamaConfig{URL: "http://localhost:11434", Model: "qwen3:8b", Timeout: 120},
		OpenAI:        config.OpenAIConfig{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
		Anthropic:     config.AnthropicConfig{Model: "claude-sonnet-4-20250514"},
		VerbatimChars: 8000,
		MaxChars:      12000,
	}
}

func TestFactoryDefaultsToOllama(t *testing.T) {
	t.Parallel()

	factory, err := NewFactory(factoryConfig(""), discardLogger())
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	if got := factory().Model(); got != "qwen3:8b" {
		t.Fatalf("Model() = %q, want the ollama model", got)
	}
}

func TestFactoryProviderNameIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	factory, err := NewFactory(factoryConfig("OLLAMA"), discardLogger())
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	if factory == nil {
		t.Fatal("factory is nil")
	}
}

func TestFactoryOpenAIRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewFactory(factoryConfig("openai"), discardLogger())
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("err = %v, want missing key error", err)
	}

	cfg := factoryConfig("openai")
	cfg.OpenAI.APIKey = "sk-test"
	if _, err := NewFactory(cfg, discardLogger()); err != nil {
		t.Fatalf("NewFactory with key: %v", err)
	}
}

func TestFactoryAnthropicRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewFactory(factoryConfig("anthropic"), discardLogger())
	if err == nil || !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Fatalf("err = %v, want missing key error", err)
	}
}

func TestFactoryUnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := NewFactory(factoryConfig("bogus"), discardLogger())
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Fatalf("err = %v, want not registered error", err)
	}
}

func TestFactoryYieldsFreshClients(t *testing.T) {
	t.Parallel()

	factory, err := NewFactory(factoryConfig("ollama"), discardLogger())
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	if factory() == factory() {
		t.Fatal("factory must build a fresh client per call")
	}
}
